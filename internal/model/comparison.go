package model

import "time"

const (
	// DefaultTopN is the bottleneck list length when the caller does not
	// choose one.
	DefaultTopN = 20

	// DefaultEpsilonSeconds is the baseline-time floor below which the
	// derived ratios are reported as undefined instead of divided.
	// Wall-clock readings under a microsecond are indistinguishable from
	// timer noise.
	DefaultEpsilonSeconds = 1e-6
)

// CalculationTiming records one variable calculation timed on both the
// baseline and reform simulations.
type CalculationTiming struct {
	Variable        string  `json:"variable"`
	Period          string  `json:"period"`
	BaselineSeconds float64 `json:"baseline_time"`
	ReformSeconds   float64 `json:"reform_time"`
}

// Comparison is the structured result of profiling a reform build against a
// baseline build. The four derived fields are pure functions of
// BaselineSeconds and ReformSeconds, computed once in NewComparison and
// never set independently. OverheadPct and SlowdownFactor are nil when the
// baseline time is at or below epsilon; RatiosDefined flags that condition
// so consumers render "undefined" rather than a division artifact.
type Comparison struct {
	Country       string    `json:"country"`
	ReformName    string    `json:"reform_name,omitempty"`
	EngineVersion string    `json:"engine_version,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	BaselineSeconds float64  `json:"baseline_time"`
	ReformSeconds   float64  `json:"reform_time"`
	OverheadSeconds float64  `json:"overhead"`
	OverheadPct     *float64 `json:"overhead_pct,omitempty"`
	SlowdownFactor  *float64 `json:"slowdown_factor,omitempty"`
	RatiosDefined   bool     `json:"ratios_defined"`

	TopFunctions    []ProfileRecord     `json:"top_functions"`
	BaselineProfile *Profile            `json:"baseline_profile,omitempty"`
	ReformProfile   *Profile            `json:"reform_profile,omitempty"`
	Calculations    []CalculationTiming `json:"calculations,omitempty"`
}

// NewComparison derives a Comparison from a baseline and a reform profile.
// The reform run's records form the primary bottleneck list, truncated to
// topN; the baseline profile is carried whole for reference but not ranked
// against the reform's. A non-positive topN or epsilon selects the default.
func NewComparison(country, reformName string, baseline, reform *Profile, topN int, epsilon float64) *Comparison {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilonSeconds
	}

	c := &Comparison{
		Country:         country,
		ReformName:      reformName,
		CreatedAt:       time.Now().UTC(),
		BaselineSeconds: baseline.ElapsedSeconds,
		ReformSeconds:   reform.ElapsedSeconds,
		OverheadSeconds: reform.ElapsedSeconds - baseline.ElapsedSeconds,
		BaselineProfile: baseline,
		ReformProfile:   reform,
	}

	if baseline.ElapsedSeconds > epsilon {
		pct := c.OverheadSeconds / baseline.ElapsedSeconds * 100
		factor := reform.ElapsedSeconds / baseline.ElapsedSeconds
		c.OverheadPct = &pct
		c.SlowdownFactor = &factor
		c.RatiosDefined = true
	}

	records := reform.Records
	if len(records) > topN {
		records = records[:topN]
	}
	c.TopFunctions = make([]ProfileRecord, len(records))
	copy(c.TopFunctions, records)

	return c
}

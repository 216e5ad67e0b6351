// Package model defines the result records produced by the profiling
// pipeline. Records are created fresh per run and never mutated after
// construction; each run returns a new read-only snapshot.
package model

// ProfileRecord is one row of profiler output for a single function,
// ordered by cumulative time descending with ties broken by capture order.
// Samples counts the profile samples in which the function appeared; Go CPU
// profiles are statistical, so no primitive-vs-total call split exists.
type ProfileRecord struct {
	Function    string  `json:"function"`
	File        string  `json:"file,omitempty"`
	Line        int64   `json:"line,omitempty"`
	Samples     int64   `json:"samples"`
	SelfSeconds float64 `json:"self_seconds"`
	CumSeconds  float64 `json:"cumulative_seconds"`
	CumPercent  float64 `json:"cumulative_pct"`
}

// Profile bundles the wall-clock elapsed time of one profiled build with
// the per-function records extracted from the CPU profile.
type Profile struct {
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	TotalSamples   int64           `json:"total_samples"`
	CPUSeconds     float64         `json:"cpu_seconds"`
	Records        []ProfileRecord `json:"records"`
}

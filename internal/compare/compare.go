// Package compare runs the full overhead measurement: baseline build and
// reform build, each under the CPU profiler, aggregated into a single
// comparison record.
package compare

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/harness"
	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/profiler"
	"github.com/policyengine/simprof/pkg/engine"
)

// Options selects what to compare and how much detail to keep.
type Options struct {
	Situation  engine.Situation
	Reform     engine.Reform
	ReformName string

	// TopN bounds the bottleneck list; zero selects the default.
	TopN int

	// Epsilon is the baseline-time floor for the ratio guard; zero
	// selects the default.
	Epsilon float64

	// Variable, when set, is additionally calculated once on each built
	// simulation and the two timings recorded on the result.
	Variable string
	Period   string
}

// Comparer profiles reform overhead through one harness. The profiling and
// timing functions are fields so tests can substitute deterministic ones.
type Comparer struct {
	h         *harness.Harness
	profileFn func(work func() error, topN int) (*model.Profile, error)
	measureFn func(work func() error) (time.Duration, error)
}

// New creates a Comparer backed by the real CPU profiler.
func New(h *harness.Harness) *Comparer {
	return &Comparer{
		h:         h,
		profileFn: profiler.Profile,
		measureFn: profiler.Measure,
	}
}

// Run profiles the baseline build, then the reform build, then derives the
// comparison metrics. A failure in either build aborts the comparison and
// surfaces unchanged; nothing is retried.
func (c *Comparer) Run(ctx context.Context, opts Options) (*model.Comparison, error) {
	eng := c.h.Engine()

	var baselineSim engine.Simulation
	baselineProf, err := c.profileFn(func() error {
		sim, buildErr := c.h.BuildBaseline(ctx, opts.Situation)
		if buildErr != nil {
			return buildErr
		}
		baselineSim = sim
		return nil
	}, opts.TopN)
	if err != nil {
		return nil, err
	}

	var reformSim engine.Simulation
	reformProf, err := c.profileFn(func() error {
		sim, buildErr := c.h.BuildReform(ctx, opts.Situation, opts.Reform)
		if buildErr != nil {
			return buildErr
		}
		reformSim = sim
		return nil
	}, opts.TopN)
	if err != nil {
		return nil, err
	}

	cmp := model.NewComparison(eng.CountryID(), opts.ReformName, baselineProf, reformProf, opts.TopN, opts.Epsilon)
	cmp.EngineVersion = eng.Version()

	if opts.Variable != "" {
		timing, calcErr := c.timeCalculations(ctx, baselineSim, reformSim, opts.Variable, opts.Period)
		if calcErr != nil {
			return nil, calcErr
		}
		cmp.Calculations = append(cmp.Calculations, timing)
	}

	zap.L().Info("compare: profile complete",
		zap.String("country", cmp.Country),
		zap.String("reform", cmp.ReformName),
		zap.Float64("baseline_secs", cmp.BaselineSeconds),
		zap.Float64("reform_secs", cmp.ReformSeconds),
		zap.Float64("overhead_secs", cmp.OverheadSeconds),
		zap.Bool("ratios_defined", cmp.RatiosDefined),
		zap.Int("top_functions", len(cmp.TopFunctions)),
	)

	return cmp, nil
}

// timeCalculations times one calculation of the variable on each handle.
func (c *Comparer) timeCalculations(ctx context.Context, baseline, reform engine.Simulation, variable, period string) (model.CalculationTiming, error) {
	timing := model.CalculationTiming{Variable: variable, Period: period}

	baseDur, err := c.measureFn(func() error {
		_, calcErr := baseline.Calculate(ctx, variable, period)
		return calcErr
	})
	if err != nil {
		return timing, eris.Wrapf(err, "compare: calculate %s on baseline", variable)
	}
	timing.BaselineSeconds = baseDur.Seconds()

	reformDur, err := c.measureFn(func() error {
		_, calcErr := reform.Calculate(ctx, variable, period)
		return calcErr
	})
	if err != nil {
		return timing, eris.Wrapf(err, "compare: calculate %s on reform", variable)
	}
	timing.ReformSeconds = reformDur.Seconds()

	return timing, nil
}

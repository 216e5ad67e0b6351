// Package probe holds the narrower profilers: repeated-calculation timings
// for a single variable, and heap growth across repeated simulation builds.
package probe

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/profiler"
	"github.com/policyengine/simprof/pkg/engine"
)

// DefaultPoints is the number of timed calculations when the caller does
// not choose one.
const DefaultPoints = 5

// ProfileVariable times points sequential calculations of one variable on
// an already-built simulation. The handle is only read. Engines that cache
// computed variables show a dominant first point and cheap repeats; the
// per-point list keeps that visible instead of averaging it away.
func ProfileVariable(ctx context.Context, country string, sim engine.Simulation, variable, period string, points int) (*model.VariableProfile, error) {
	if sim == nil {
		return nil, eris.New("probe: nil simulation handle")
	}
	if variable == "" {
		return nil, eris.New("probe: variable name required")
	}
	if points <= 0 {
		points = DefaultPoints
	}

	vp := &model.VariableProfile{
		Country:      country,
		Variable:     variable,
		Period:       period,
		Points:       points,
		PointSeconds: make([]float64, 0, points),
	}

	for i := 0; i < points; i++ {
		var series []float64
		dur, err := profiler.Measure(func() error {
			var calcErr error
			series, calcErr = sim.Calculate(ctx, variable, period)
			return calcErr
		})
		if err != nil {
			return nil, eris.Wrapf(err, "probe: calculate %s point %d of %d", variable, i+1, points)
		}

		secs := dur.Seconds()
		vp.PointSeconds = append(vp.PointSeconds, secs)
		vp.TotalSeconds += secs
		if i == 0 || secs < vp.MinSeconds {
			vp.MinSeconds = secs
		}
		if secs > vp.MaxSeconds {
			vp.MaxSeconds = secs
		}
		vp.SeriesLength = len(series)
	}

	vp.MeanSeconds = vp.TotalSeconds / float64(points)
	vp.CreatedAt = time.Now().UTC()

	zap.L().Info("probe: variable profile complete",
		zap.String("country", country),
		zap.String("variable", variable),
		zap.String("period", period),
		zap.Int("points", points),
		zap.Float64("total_secs", vp.TotalSeconds),
		zap.Int("series_length", vp.SeriesLength),
	)

	return vp, nil
}

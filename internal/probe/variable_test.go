package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/simprof/pkg/engine"
	"github.com/policyengine/simprof/pkg/engine/synthetic"
)

type timedSim struct {
	perCall time.Duration
	series  []float64
	failAt  int
	calls   int
}

func (s *timedSim) Calculate(context.Context, string, string) ([]float64, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return nil, errors.New("variable not defined: bogus")
	}
	if s.perCall > 0 {
		time.Sleep(s.perCall)
	}
	return s.series, nil
}

func TestProfileVariableAggregates(t *testing.T) {
	sim := &timedSim{perCall: 2 * time.Millisecond, series: make([]float64, 101)}

	vp, err := ProfileVariable(context.Background(), "us", sim, "household_net_income", "2026", 4)
	require.NoError(t, err)

	assert.Equal(t, "us", vp.Country)
	assert.Equal(t, "household_net_income", vp.Variable)
	assert.Equal(t, "2026", vp.Period)
	assert.Equal(t, 4, vp.Points)
	assert.Equal(t, 4, sim.calls)
	assert.Equal(t, 101, vp.SeriesLength)
	assert.False(t, vp.CreatedAt.IsZero())

	require.Len(t, vp.PointSeconds, 4)
	var sum float64
	for _, p := range vp.PointSeconds {
		// time.Sleep never wakes early.
		assert.GreaterOrEqual(t, p, 0.002)
		sum += p
	}
	assert.InDelta(t, sum, vp.TotalSeconds, 1e-12)
	assert.InDelta(t, sum/4, vp.MeanSeconds, 1e-12)
	assert.LessOrEqual(t, vp.MinSeconds, vp.MeanSeconds)
	assert.LessOrEqual(t, vp.MeanSeconds, vp.MaxSeconds)
}

func TestProfileVariableDefaultPoints(t *testing.T) {
	sim := &timedSim{series: []float64{1}}

	vp, err := ProfileVariable(context.Background(), "us", sim, "income", "2026", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultPoints, vp.Points)
	assert.Equal(t, DefaultPoints, sim.calls)
	assert.Len(t, vp.PointSeconds, DefaultPoints)
}

func TestProfileVariableCalcErrorAborts(t *testing.T) {
	sim := &timedSim{series: []float64{1}, failAt: 3}

	vp, err := ProfileVariable(context.Background(), "us", sim, "bogus", "2026", 5)
	require.Error(t, err)
	assert.Nil(t, vp)
	assert.Contains(t, err.Error(), "point 3 of 5")
	assert.Contains(t, err.Error(), "variable not defined: bogus")
	// No further points are attempted after the failure.
	assert.Equal(t, 3, sim.calls)
}

func TestProfileVariableNilSim(t *testing.T) {
	_, err := ProfileVariable(context.Background(), "us", nil, "income", "2026", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil simulation handle")
}

func TestProfileVariableEmptyName(t *testing.T) {
	_, err := ProfileVariable(context.Background(), "us", &timedSim{series: []float64{1}}, "", "2026", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable name required")
}

func TestProfileVariableAgainstSyntheticEngine(t *testing.T) {
	eng := synthetic.New(
		synthetic.WithParameterCount(20),
		synthetic.WithProjectionYears(5),
		synthetic.WithWorkScale(2),
	)
	situation := engine.Situation{
		"people": map[string]any{"you": map[string]any{"age": map[string]any{"2026": 35}}},
		"axes": [][]map[string]any{{{
			"name":   "employment_income",
			"count":  11,
			"min":    0.0,
			"max":    100000.0,
			"period": "2026",
		}}},
	}
	sim, err := eng.NewSimulation(context.Background(), situation, nil)
	require.NoError(t, err)

	vp, err := ProfileVariable(context.Background(), eng.CountryID(), sim, "household_net_income", "2026", 3)
	require.NoError(t, err)

	assert.Equal(t, 11, vp.SeriesLength)
	require.Len(t, vp.PointSeconds, 3)
	for _, p := range vp.PointSeconds {
		assert.GreaterOrEqual(t, p, 0.0)
	}
}

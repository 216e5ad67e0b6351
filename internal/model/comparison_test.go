package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileWithElapsed(secs float64, records ...ProfileRecord) *Profile {
	return &Profile{ElapsedSeconds: secs, Records: records}
}

func TestNewComparisonDerivedMetrics(t *testing.T) {
	tests := []struct {
		name         string
		baseline     float64
		reform       float64
		wantOverhead float64
		wantPct      float64
		wantFactor   float64
	}{
		// overhead = 16.445 - 0.011 = 16.434
		// overhead_pct = 16.434 / 0.011 * 100 = 149400
		// slowdown = 16.445 / 0.011 = 1495.0 -> within +-1 of 1495.9 band
		{"uprating regression", 0.011, 16.445, 16.434, 149400, 1495.9},
		// overhead = 1.0, pct = 100%, factor = 2x
		{"doubling", 1.0, 2.0, 1.0, 100, 2.0},
		// reform faster than baseline: negative overhead is legitimate
		{"improvement", 2.0, 1.5, -0.5, -25, 0.75},
		{"identical", 0.5, 0.5, 0, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComparison("us", "aca-ptc", profileWithElapsed(tt.baseline), profileWithElapsed(tt.reform), 0, 0)

			assert.InDelta(t, tt.baseline, c.BaselineSeconds, 1e-12)
			assert.InDelta(t, tt.reform, c.ReformSeconds, 1e-12)
			assert.InDelta(t, tt.wantOverhead, c.OverheadSeconds, 0.001)

			require.True(t, c.RatiosDefined)
			require.NotNil(t, c.OverheadPct)
			require.NotNil(t, c.SlowdownFactor)
			assert.InDelta(t, tt.wantPct, *c.OverheadPct, 50)
			assert.InDelta(t, tt.wantFactor, *c.SlowdownFactor, 1)

			// The derived fields must satisfy their defining identities
			// exactly, not merely land near expected constants.
			assert.InDelta(t, c.ReformSeconds-c.BaselineSeconds, c.OverheadSeconds, 1e-12)
			assert.InDelta(t, c.OverheadSeconds/c.BaselineSeconds*100, *c.OverheadPct, 1e-9)
			assert.InDelta(t, c.ReformSeconds/c.BaselineSeconds, *c.SlowdownFactor, 1e-12)
		})
	}
}

func TestNewComparisonEpsilonGuard(t *testing.T) {
	tests := []struct {
		name     string
		baseline float64
		epsilon  float64
	}{
		{"zero baseline", 0, 0},
		{"below default epsilon", 1e-9, 0},
		{"at explicit epsilon", 0.5, 0.5},
		{"below explicit epsilon", 0.4, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComparison("us", "", profileWithElapsed(tt.baseline), profileWithElapsed(1.0), 0, tt.epsilon)

			assert.False(t, c.RatiosDefined)
			assert.Nil(t, c.OverheadPct)
			assert.Nil(t, c.SlowdownFactor)
			// Overhead is a subtraction, always defined.
			assert.InDelta(t, 1.0-tt.baseline, c.OverheadSeconds, 1e-12)
		})
	}
}

func TestNewComparisonUndefinedRatiosOmittedFromJSON(t *testing.T) {
	c := NewComparison("us", "", profileWithElapsed(0), profileWithElapsed(1.0), 0, 0)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "overhead_pct")
	assert.NotContains(t, fields, "slowdown_factor")
	assert.Equal(t, false, fields["ratios_defined"])
	assert.Contains(t, fields, "overhead")
}

func TestNewComparisonDefinedZeroPctSurvivesJSON(t *testing.T) {
	// A genuine 0% overhead must serialize as 0, not vanish.
	c := NewComparison("us", "", profileWithElapsed(1.0), profileWithElapsed(1.0), 0, 0)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "overhead_pct")
	assert.Equal(t, float64(0), fields["overhead_pct"])
}

func TestNewComparisonStableWireNames(t *testing.T) {
	c := NewComparison("uk", "uc-standard-allowance", profileWithElapsed(0.5), profileWithElapsed(1.5), 0, 0)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, name := range []string{
		"country", "reform_name", "created_at",
		"baseline_time", "reform_time", "overhead",
		"overhead_pct", "slowdown_factor", "ratios_defined",
		"top_functions",
	} {
		assert.Contains(t, fields, name)
	}
}

func TestNewComparisonTopNTruncation(t *testing.T) {
	records := make([]ProfileRecord, 30)
	for i := range records {
		records[i] = ProfileRecord{Function: "fn", CumSeconds: float64(30 - i)}
	}
	reform := profileWithElapsed(2.0, records...)

	c := NewComparison("us", "", profileWithElapsed(1.0), reform, 5, 0)
	assert.Len(t, c.TopFunctions, 5)

	// Default keeps 20.
	c = NewComparison("us", "", profileWithElapsed(1.0), reform, 0, 0)
	assert.Len(t, c.TopFunctions, DefaultTopN)

	// Fewer records than topN keeps them all.
	c = NewComparison("us", "", profileWithElapsed(1.0), profileWithElapsed(2.0, records[0]), 5, 0)
	assert.Len(t, c.TopFunctions, 1)
}

func TestNewComparisonCopiesRecords(t *testing.T) {
	records := []ProfileRecord{{Function: "a", CumSeconds: 2}, {Function: "b", CumSeconds: 1}}
	reform := profileWithElapsed(2.0, records...)

	c := NewComparison("us", "", profileWithElapsed(1.0), reform, 0, 0)
	records[0].Function = "mutated"

	assert.Equal(t, "a", c.TopFunctions[0].Function)
}

func TestNewComparisonKeepsBothProfiles(t *testing.T) {
	baseline := profileWithElapsed(1.0, ProfileRecord{Function: "base.build", CumSeconds: 1})
	reform := profileWithElapsed(2.0, ProfileRecord{Function: "reform.uprate", CumSeconds: 2})

	c := NewComparison("us", "", baseline, reform, 0, 0)

	// Reform records are the primary list; the baseline profile rides
	// along unranked.
	require.Len(t, c.TopFunctions, 1)
	assert.Equal(t, "reform.uprate", c.TopFunctions[0].Function)
	require.NotNil(t, c.BaselineProfile)
	assert.Equal(t, "base.build", c.BaselineProfile.Records[0].Function)
}

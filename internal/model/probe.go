package model

import "time"

// VariableProfile reports repeated calculations of one variable on one
// simulation handle: per-point timings plus aggregates. The first point on
// a cold handle typically dominates because engines cache computed
// variables.
type VariableProfile struct {
	Country      string    `json:"country"`
	Variable     string    `json:"variable"`
	Period       string    `json:"period"`
	Points       int       `json:"points"`
	PointSeconds []float64 `json:"point_times"`
	TotalSeconds float64   `json:"total_time"`
	MeanSeconds  float64   `json:"mean_time"`
	MinSeconds   float64   `json:"min_time"`
	MaxSeconds   float64   `json:"max_time"`
	SeriesLength int       `json:"series_length"`
	CreatedAt    time.Time `json:"created_at"`
}

// MemoryProfile reports heap growth across repeated simulation builds.
// HeapDeltaBytes is signed: a garbage-collected runtime can legitimately
// end a measurement below where it started.
type MemoryProfile struct {
	Country          string    `json:"country"`
	Builds           int       `json:"builds"`
	HeapBeforeBytes  uint64    `json:"heap_before_bytes"`
	HeapAfterBytes   uint64    `json:"heap_after_bytes"`
	HeapDeltaBytes   int64     `json:"heap_delta_bytes"`
	AvgPerBuildBytes int64     `json:"avg_per_build_bytes"`
	BuildSeconds     []float64 `json:"build_times"`
	TotalSeconds     float64   `json:"total_time"`
	GCCycles         uint32    `json:"gc_cycles"`
	CreatedAt        time.Time `json:"created_at"`
}

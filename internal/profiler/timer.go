// Package profiler wraps units of work in wall-clock timing and CPU
// call-graph profiling, converting raw profile data into the ordered
// per-function records the comparison pipeline consumes.
package profiler

import "time"

// Measure invokes work once and returns its monotonic elapsed time. A
// failure propagates unchanged and no duration is reported for the failed
// attempt. There are no retries: one invocation, one reading.
func Measure(work func() error) (time.Duration, error) {
	start := time.Now()
	if err := work(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

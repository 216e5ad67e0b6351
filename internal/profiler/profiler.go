package profiler

import (
	"bytes"
	"runtime/pprof"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rotisserie/eris"

	"github.com/policyengine/simprof/internal/model"
)

// ErrBusy reports an attempt to start a profile recording while one is
// already active. CPU profiling is process-global state; concurrent
// recordings are refused outright rather than queued, since queuing would
// distort the very timings being measured.
var ErrBusy = eris.New("profiler: recording already active")

// recording guards the process-global CPU profile. Scoped acquisition with
// fail-fast on contention.
var recording atomic.Bool

// Profile runs work under the CPU profiler and returns the elapsed time
// plus up to topN per-function records sorted by cumulative time
// descending. Recording is always stopped before returning, whatever path
// exits. A failure from work propagates unchanged with no profile
// attached.
func Profile(work func() error, topN int) (*model.Profile, error) {
	if topN <= 0 {
		topN = model.DefaultTopN
	}

	if !recording.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer recording.Store(false)

	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		// Some other code in the process holds the profiler.
		return nil, eris.Wrap(ErrBusy, err.Error())
	}
	// Idempotent backstop so a panic inside work cannot leave global
	// profiling enabled.
	defer pprof.StopCPUProfile()

	start := time.Now()
	workErr := work()
	pprof.StopCPUProfile()
	elapsed := time.Since(start)

	if workErr != nil {
		return nil, workErr
	}

	prof, err := profile.Parse(&buf)
	if err != nil {
		return nil, eris.Wrap(err, "profiler: parse cpu profile")
	}

	result := aggregate(prof, topN)
	result.ElapsedSeconds = elapsed.Seconds()
	return result, nil
}

// funcStat accumulates per-function sample data during aggregation.
type funcStat struct {
	name      string
	file      string
	line      int64
	firstSeen int
	samples   int64
	selfNs    int64
	cumNs     int64
}

// aggregate converts a parsed pprof profile into ordered records. Self time
// comes from leaf positions; cumulative time counts each sample once per
// function however many frames of it appear, so recursion is not
// double-counted.
func aggregate(prof *profile.Profile, topN int) *model.Profile {
	sampleIdx, timeIdx := valueIndexes(prof)

	stats := make(map[string]*funcStat)
	var order []*funcStat
	var totalSamples, totalNs int64

	for _, s := range prof.Sample {
		count := s.Value[sampleIdx]
		ns := s.Value[timeIdx]
		totalSamples += count
		totalNs += ns

		counted := make(map[string]bool)
		for i, loc := range s.Location {
			for j, line := range loc.Line {
				fn := line.Function
				if fn == nil {
					continue
				}
				st, ok := stats[fn.Name]
				if !ok {
					st = &funcStat{
						name:      fn.Name,
						file:      fn.Filename,
						line:      line.Line,
						firstSeen: len(order),
					}
					stats[fn.Name] = st
					order = append(order, st)
				}
				if i == 0 && j == 0 {
					st.selfNs += ns
				}
				if !counted[fn.Name] {
					counted[fn.Name] = true
					st.samples += count
					st.cumNs += ns
				}
			}
		}
	}

	// Capture order is the tie-break, so sort the first-seen sequence
	// stably: identical inputs always reproduce the identical ordering.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].cumNs > order[j].cumNs
	})
	if len(order) > topN {
		order = order[:topN]
	}

	records := make([]model.ProfileRecord, len(order))
	for i, st := range order {
		rec := model.ProfileRecord{
			Function:    st.name,
			File:        st.file,
			Line:        st.line,
			Samples:     st.samples,
			SelfSeconds: float64(st.selfNs) / 1e9,
			CumSeconds:  float64(st.cumNs) / 1e9,
		}
		if totalNs > 0 {
			rec.CumPercent = float64(st.cumNs) / float64(totalNs) * 100
		}
		records[i] = rec
	}

	return &model.Profile{
		TotalSamples: totalSamples,
		CPUSeconds:   float64(totalNs) / 1e9,
		Records:      records,
	}
}

// valueIndexes locates the sample-count and cpu-nanoseconds columns. Go CPU
// profiles carry [samples/count, cpu/nanoseconds]; fall back to the last
// column for time if the types are not labeled.
func valueIndexes(prof *profile.Profile) (sampleIdx, timeIdx int) {
	sampleIdx, timeIdx = 0, -1
	for i, st := range prof.SampleType {
		switch st.Type {
		case "samples":
			sampleIdx = i
		case "cpu":
			timeIdx = i
		}
	}
	if timeIdx < 0 {
		timeIdx = len(prof.SampleType) - 1
	}
	return sampleIdx, timeIdx
}

// SortRecords orders records by cumulative time descending with a stable
// tie-break, the same ordering Profile emits. Re-sorting an already sorted
// sequence reproduces it unchanged.
func SortRecords(records []model.ProfileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CumSeconds > records[j].CumSeconds
	})
}

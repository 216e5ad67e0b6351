package probe

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/profiler"
)

// DefaultBuilds is the number of simulation builds when the caller does
// not choose one.
const DefaultBuilds = 10

// ProfileMemory builds n independent simulations through buildFn and
// reports heap growth across the whole loop. The heap is sampled once
// before the loop and once after, each behind a forced GC, so the delta
// reflects memory the builds actually retain rather than collector lag.
// Whether anything is retained is buildFn's business; a build that keeps
// no references should come back near zero.
//
// A hung build blocks here for as long as it hangs. The context is only
// consulted between builds, never used to interrupt one.
func ProfileMemory(ctx context.Context, country string, buildFn func() error, n int) (*model.MemoryProfile, error) {
	if buildFn == nil {
		return nil, eris.New("probe: nil build function")
	}
	if n <= 0 {
		n = DefaultBuilds
	}

	mp := &model.MemoryProfile{
		Country:      country,
		Builds:       n,
		BuildSeconds: make([]float64, 0, n),
	}

	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "probe: memory profile stopped before build %d of %d", i+1, n)
		}
		dur, err := profiler.Measure(buildFn)
		if err != nil {
			return nil, eris.Wrapf(err, "probe: build %d of %d", i+1, n)
		}
		mp.BuildSeconds = append(mp.BuildSeconds, dur.Seconds())
		mp.TotalSeconds += dur.Seconds()
	}

	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	mp.HeapBeforeBytes = before.HeapAlloc
	mp.HeapAfterBytes = after.HeapAlloc
	mp.HeapDeltaBytes = int64(after.HeapAlloc) - int64(before.HeapAlloc)
	mp.AvgPerBuildBytes = mp.HeapDeltaBytes / int64(n)
	mp.GCCycles = after.NumGC - before.NumGC
	mp.CreatedAt = time.Now().UTC()

	zap.L().Info("probe: memory profile complete",
		zap.String("country", country),
		zap.Int("builds", n),
		zap.Int64("heap_delta_bytes", mp.HeapDeltaBytes),
		zap.Int64("avg_per_build_bytes", mp.AvgPerBuildBytes),
		zap.Uint32("gc_cycles", mp.GCCycles),
	)

	return mp, nil
}

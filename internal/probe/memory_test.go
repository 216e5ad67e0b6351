package probe

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sink keeps per-build allocations observable to the runtime.
var sink byte

func TestProfileMemoryRetainedGrowth(t *testing.T) {
	retained := make([][]byte, 0, 10)
	build := func() error {
		buf := make([]byte, 1<<20)
		for i := range buf {
			buf[i] = byte(i)
		}
		retained = append(retained, buf)
		return nil
	}

	mp, err := ProfileMemory(context.Background(), "synthetic", build, 10)
	require.NoError(t, err)

	assert.Equal(t, "synthetic", mp.Country)
	assert.Equal(t, 10, mp.Builds)
	assert.Len(t, mp.BuildSeconds, 10)
	// Ten retained 1 MiB buffers survive the closing GC.
	assert.Greater(t, mp.HeapDeltaBytes, int64(8<<20))
	assert.Greater(t, mp.AvgPerBuildBytes, int64(0))
	assert.GreaterOrEqual(t, mp.GCCycles, uint32(1))
	assert.False(t, mp.CreatedAt.IsZero())

	runtime.KeepAlive(retained)
}

func TestProfileMemoryReleasedStaysFlat(t *testing.T) {
	build := func() error {
		buf := make([]byte, 1<<20)
		for i := range buf {
			buf[i] = byte(i)
		}
		sink = buf[len(buf)-1]
		return nil
	}

	mp, err := ProfileMemory(context.Background(), "synthetic", build, 10)
	require.NoError(t, err)

	// Each build releases its 1 MiB, so after the closing GC the delta
	// is noise: well under a single build's allocation either way.
	delta := mp.HeapDeltaBytes
	if delta < 0 {
		delta = -delta
	}
	assert.Less(t, delta, int64(1<<19))
}

func TestProfileMemoryTimingsSum(t *testing.T) {
	calls := 0
	build := func() error {
		calls++
		return nil
	}

	mp, err := ProfileMemory(context.Background(), "us", build, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	require.Len(t, mp.BuildSeconds, 4)
	var sum float64
	for _, s := range mp.BuildSeconds {
		assert.GreaterOrEqual(t, s, 0.0)
		sum += s
	}
	assert.InDelta(t, sum, mp.TotalSeconds, 1e-12)
}

func TestProfileMemoryDefaultBuilds(t *testing.T) {
	calls := 0
	mp, err := ProfileMemory(context.Background(), "us", func() error {
		calls++
		return nil
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultBuilds, mp.Builds)
	assert.Equal(t, DefaultBuilds, calls)
}

func TestProfileMemoryBuildErrorAborts(t *testing.T) {
	calls := 0
	build := func() error {
		calls++
		if calls == 3 {
			return errors.New("invalid situation: no households")
		}
		return nil
	}

	mp, err := ProfileMemory(context.Background(), "us", build, 10)
	require.Error(t, err)
	assert.Nil(t, mp)
	assert.Contains(t, err.Error(), "build 3 of 10")
	assert.Contains(t, err.Error(), "invalid situation: no households")
	assert.Equal(t, 3, calls)
}

func TestProfileMemoryNilBuildFn(t *testing.T) {
	_, err := ProfileMemory(context.Background(), "us", nil, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil build function")
}

func TestProfileMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProfileMemory(ctx, "us", func() error { return nil }, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

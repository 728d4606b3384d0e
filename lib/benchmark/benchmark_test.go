package benchmark

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/display"
	"github.com/unclesp1d3r/meshcrack/lib/testhelpers"
)

// countingRunner wraps a FakeRunner with a device name.
type countingRunner struct {
	*testhelpers.FakeRunner
	name string
}

func (r *countingRunner) DeviceName() string { return r.name }

func newCountingRunner(size uint64) *countingRunner {
	return &countingRunner{FakeRunner: testhelpers.NewFakeRunner(size), name: "fake"}
}

// stepClock advances by step on every reading.
func stepClock(step time.Duration) func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newTestManager(runner Runner) *Manager {
	m := NewManager(runner)
	m.now = stepClock(100 * time.Millisecond)

	return m
}

func TestRun_MeasuresAndCaches(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	runner := newCountingRunner(500)
	m := newTestManager(runner)

	result, cached, err := m.Run(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fake", result.Device)
	assert.Equal(t, 2, result.Length)
	assert.Equal(t, uint64(500+500+296+500), result.Candidates)
	assert.Equal(t, 400*time.Millisecond, result.Elapsed)
	assert.InDelta(t, 1796/0.4, result.Rate, 0.001)

	// Batches wrap at the end of the 1296-name tier.
	ranges := runner.Ranges()
	require.Len(t, ranges, 4)
	assert.Equal(t, uint64(1000), ranges[2].Offset)
	assert.Equal(t, uint64(296), ranges[2].Size)
	assert.Equal(t, uint64(0), ranges[3].Offset)

	assert.FileExists(t, crackstate.State.BenchmarkCachePath)

	again, cached, err := m.Run(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, result.Candidates, again.Candidates)
	assert.Len(t, runner.Ranges(), 4, "cached result needs no dispatch")
}

func TestRun_ForceIgnoresCache(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	runner := newCountingRunner(100)
	m := newTestManager(runner)

	_, _, err := m.Run(context.Background(), 1, 1)
	require.NoError(t, err)

	crackstate.State.ForceBenchmark = true

	_, cached, err := m.Run(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, runner.BatchCalls())

	results, err := loadBenchmarkCache()
	require.NoError(t, err)
	assert.Len(t, results, 1, "a re-run replaces the device entry")
}

func TestRun_Errors(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	tests := []struct {
		name    string
		length  int
		batches int
		setup   func(*countingRunner)
		kind    crackerr.Kind
	}{
		{name: "no batches", length: 3, batches: 0, kind: crackerr.KindInput},
		{name: "length out of range", length: 13, batches: 1, kind: crackerr.KindInput},
		{
			name: "unavailable", length: 3, batches: 1,
			setup: func(r *countingRunner) { r.Unavailable = true },
			kind:  crackerr.KindAccelerationUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newCountingRunner(100)
			if tt.setup != nil {
				tt.setup(runner)
			}

			_, _, err := newTestManager(runner).Run(context.Background(), tt.length, tt.batches)
			require.Error(t, err)
			assert.True(t, crackerr.IsKind(err, tt.kind), "err: %v", err)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestManager(newCountingRunner(100)).Run(ctx, 3, 2)
	require.Error(t, err)
	assert.True(t, crackerr.IsKind(err, crackerr.KindAborted))
}

func TestRun_HostExecutor(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	exec := accel.NewExecutor(accel.Config{Backend: accel.BackendHost, Workers: 2, BatchFloor: 4096, BatchMax: 1 << 16})

	result, cached, err := NewManager(exec).Run(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, accel.BackendHost, result.Device)
	assert.GreaterOrEqual(t, result.Candidates, uint64(4096))
	assert.Positive(t, result.BatchSize)
}

func TestBenchmarkCache(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	results := []display.BenchmarkResult{{Device: "host", Length: 6, Candidates: 10, Rate: 1.5}}
	require.NoError(t, saveBenchmarkCache(results))

	loaded, err := loadBenchmarkCache()
	require.NoError(t, err)
	assert.Equal(t, results, loaded)

	_, err = os.Stat(crackstate.State.BenchmarkCachePath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	ClearCache()
	assert.NoFileExists(t, crackstate.State.BenchmarkCachePath)
	ClearCache()
}

func TestBenchmarkCache_Corrupt(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	require.NoError(t, os.WriteFile(crackstate.State.BenchmarkCachePath, []byte("{not json"), 0o600))

	loaded, err := loadBenchmarkCache()
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.NoFileExists(t, crackstate.State.BenchmarkCachePath)
}

func TestBenchmarkCache_NoPath(t *testing.T) {
	cleanup := testhelpers.SetupTestState()
	defer cleanup()

	crackstate.State.BenchmarkCachePath = ""

	require.Error(t, saveBenchmarkCache(nil))

	loaded, err := loadBenchmarkCache()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestUpsertResult(t *testing.T) {
	results := []display.BenchmarkResult{
		{Device: "host", Length: 6, Rate: 1},
		{Device: "host", Length: 7, Rate: 2},
	}

	results = upsertResult(results, display.BenchmarkResult{Device: "host", Length: 7, Rate: 3})
	require.Len(t, results, 2)
	assert.InDelta(t, 3.0, results[1].Rate, 0)

	results = upsertResult(results, display.BenchmarkResult{Device: "gpu0", Length: 6})
	assert.Len(t, results, 3)

	got, ok := findResult(results, "gpu0", 6)
	assert.True(t, ok)
	assert.Equal(t, "gpu0", got.Device)

	_, ok = findResult(results, "gpu0", 7)
	assert.False(t, ok)
}

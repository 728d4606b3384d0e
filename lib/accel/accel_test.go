package accel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// stubDevice records lifecycle calls and returns canned matches.
type stubDevice struct {
	mu         sync.Mutex
	opens      int
	closes     int
	dispatches []Job
	openErr    error
	matches    []uint64
}

func (d *stubDevice) Name() string { return "stub" }

func (d *stubDevice) Open(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens++

	return d.openErr
}

func (d *stubDevice) Dispatch(_ context.Context, job Job) ([]uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dispatches = append(d.dispatches, job)

	return d.matches, nil
}

func (d *stubDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closes++

	return nil
}

// stepClock advances by step on every reading.
func stepClock(step time.Duration) func() time.Time {
	var (
		mu  sync.Mutex
		cur = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		cur = cur.Add(step)

		return cur
	}
}

// scalarMatches is the reference filter, computed one name at a time.
func scalarMatches(t *testing.T, target byte, length int, offset, count uint64) []uint64 {
	t.Helper()

	var out []uint64

	for ordinal := offset; ordinal < offset+count; ordinal++ {
		name, err := roomname.IndexToName(length, ordinal)
		require.NoError(t, err)

		if channelkey.ChannelHash(channelkey.DeriveKey(name)) == target {
			out = append(out, ordinal)
		}
	}

	return out
}

func TestHostDevice_MatchesScalarPipeline(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		length  int
		offset  uint64
		count   uint64
	}{
		{name: "single worker whole tier", workers: 1, length: 2, offset: 0, count: 1296},
		{name: "many workers", workers: 7, length: 3, offset: 1000, count: 20000},
		{name: "tier tail", workers: 4, length: 3, offset: 47000, count: 952},
		{name: "tiny job", workers: 8, length: 1, offset: 3, count: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewHostDevice(tt.workers)
			require.NoError(t, d.Open(context.Background()))
			defer func() { _ = d.Close() }()

			target := channelkey.ChannelHash(channelkey.DeriveKey("ab"))

			got, err := d.Dispatch(context.Background(), Job{Target: target, Length: tt.length, Offset: tt.offset, Count: tt.count})
			require.NoError(t, err)
			assert.Equal(t, scalarMatches(t, target, tt.length, tt.offset, tt.count), got)
		})
	}
}

func TestHostDevice_Errors(t *testing.T) {
	d := NewHostDevice(2)

	_, err := d.Dispatch(context.Background(), Job{Length: 1, Count: 1})
	require.ErrorIs(t, err, ErrDeviceClosed)

	require.NoError(t, d.Open(context.Background()))
	assert.Equal(t, 2, d.Workers())

	_, err = d.Dispatch(context.Background(), Job{Length: 1, Offset: 30, Count: 7})
	require.ErrorIs(t, err, ErrJobOutOfRange)

	_, err = d.Dispatch(context.Background(), Job{Length: 0, Count: 1})
	require.ErrorIs(t, err, ErrJobOutOfRange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Dispatch(ctx, Job{Length: 1, Count: 1})
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestHostDevice_AllCores(t *testing.T) {
	d := NewHostDevice(0)
	require.NoError(t, d.Open(context.Background()))
	assert.GreaterOrEqual(t, d.Workers(), 1)
}

func TestOpenDevice(t *testing.T) {
	for _, backend := range []string{"", "auto", "host", " HOST "} {
		d, err := OpenDevice(backend, 1)
		require.NoError(t, err, backend)
		assert.Equal(t, "host", d.Name())
	}

	_, err := OpenDevice("none", 0)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, crackerr.IsKind(err, crackerr.KindAccelerationUnavailable))

	_, err = OpenDevice("quantum", 0)
	require.ErrorIs(t, err, ErrUnknownBackend)
	assert.True(t, crackerr.IsKind(err, crackerr.KindInput))
}

func TestDetect(t *testing.T) {
	devices, err := Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "host", devices[0].Name)
	assert.GreaterOrEqual(t, devices[0].LogicalCores, 1)
}

func TestBatchTuner(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		expected uint64
	}{
		{name: "fast device scales up", elapsed: 125 * time.Millisecond, expected: 262144},
		{name: "exact target keeps size", elapsed: time.Second, expected: 32768},
		{name: "slow device clamps to floor", elapsed: 4 * time.Second, expected: 32768},
		{name: "rounds to nearest power of two", elapsed: time.Second / 3, expected: 131072},
		{name: "instant device clamps to max", elapsed: 0, expected: 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuner := newBatchTuner(32768, 1<<20, time.Second)
			tuner.observe(32768, tt.elapsed)
			assert.Equal(t, tt.expected, tuner.size)
		})
	}
}

func TestBatchTuner_OnlyOnceAndOnlyFullBatches(t *testing.T) {
	tuner := newBatchTuner(32768, 1<<26, time.Second)

	assert.False(t, tuner.observe(1000, time.Millisecond), "partial batch must not tune")
	assert.Equal(t, uint64(32768), tuner.size)

	assert.True(t, tuner.observe(32768, 250*time.Millisecond))
	assert.Equal(t, uint64(131072), tuner.size)

	assert.False(t, tuner.observe(131072, time.Millisecond))
	assert.Equal(t, uint64(131072), tuner.size)
}

func TestBatchTuner_Defaults(t *testing.T) {
	tuner := newBatchTuner(0, 0, 0)
	assert.Equal(t, DefaultBatchFloor, tuner.size)
	assert.Equal(t, DefaultBatchMax, tuner.max)
	assert.Equal(t, DefaultBatchTarget, tuner.target)
}

func TestNearestPowerOfTwo(t *testing.T) {
	assert.Equal(t, uint64(1), nearestPowerOfTwo(0.5))
	assert.Equal(t, uint64(4), nearestPowerOfTwo(5))
	assert.Equal(t, uint64(8), nearestPowerOfTwo(6))
	assert.Equal(t, uint64(1024), nearestPowerOfTwo(1024))
}

func TestExecutor_Lifecycle(t *testing.T) {
	dev := &stubDevice{matches: []uint64{3}}
	e := NewExecutor(Config{BatchFloor: 1024, BatchMax: 1 << 16, BatchTarget: time.Second},
		WithDevice(dev), WithClock(stepClock(250*time.Millisecond)))

	assert.False(t, e.Available())
	assert.Equal(t, uint64(1024), e.BatchSize())

	_, err := e.RunBatch(context.Background(), 0, 3, 0, 1024, nil, nil)
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.True(t, crackerr.IsKind(err, crackerr.KindAccelerationUnavailable))

	require.True(t, e.Init(context.Background()))
	require.True(t, e.Init(context.Background()))
	assert.Equal(t, 1, dev.opens)
	assert.Equal(t, "stub", e.DeviceName())

	matches, err := e.RunBatch(context.Background(), 0x42, 3, 0, e.BatchSize(), []byte{1}, []byte{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, matches)
	assert.Equal(t, uint64(4096), e.BatchSize())

	e.Destroy()
	e.Destroy()
	assert.Equal(t, 1, dev.closes)
	assert.False(t, e.Available())
	assert.Empty(t, e.DeviceName())

	// Re-initializing starts tuning over from the floor.
	require.True(t, e.Init(context.Background()))
	assert.Equal(t, uint64(1024), e.BatchSize())
	e.Destroy()
	assert.Equal(t, 2, dev.closes)
}

func TestExecutor_ClampsToTierEnd(t *testing.T) {
	dev := &stubDevice{}
	e := NewExecutor(Config{BatchFloor: 1024}, WithDevice(dev), WithClock(stepClock(time.Millisecond)))
	require.True(t, e.Init(context.Background()))
	defer e.Destroy()

	_, err := e.RunBatch(context.Background(), 0, 2, 1000, 1024, nil, nil)
	require.NoError(t, err)
	require.Len(t, dev.dispatches, 1)
	assert.Equal(t, Job{Target: 0, Length: 2, Offset: 1000, Count: 296}, dev.dispatches[0])

	// The truncated batch was not full-size, so no tuning happened.
	assert.Equal(t, uint64(1024), e.BatchSize())

	_, err = e.RunBatch(context.Background(), 0, 2, 1296, 1024, nil, nil)
	require.ErrorIs(t, err, ErrJobOutOfRange)
	assert.True(t, crackerr.IsKind(err, crackerr.KindInput))
}

func TestExecutor_InitFailures(t *testing.T) {
	e := NewExecutor(Config{Backend: "none"})
	assert.False(t, e.Init(context.Background()))
	require.ErrorIs(t, e.InitErr(), ErrUnavailable)
	assert.False(t, e.Available())
	e.Destroy()

	dev := &stubDevice{openErr: errors.New("no driver")}
	e = NewExecutor(Config{}, WithDevice(dev))
	assert.False(t, e.Init(context.Background()))
	assert.True(t, crackerr.IsKind(e.InitErr(), crackerr.KindAccelerationUnavailable))
}

func TestExecutor_HostBackendFindsName(t *testing.T) {
	e := NewExecutor(Config{Backend: "host", Workers: 3, BatchFloor: 32768})
	require.True(t, e.Init(context.Background()))
	defer e.Destroy()

	pos, err := roomname.NameToIndex("mx7")
	require.NoError(t, err)

	target := channelkey.ChannelHash(channelkey.DeriveKey("mx7"))

	matches, err := e.RunBatch(context.Background(), target, 3, 0, roomname.MustCount(3), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, matches, pos.Offset)
}

func TestConfigFromState(t *testing.T) {
	orig := crackstate.State.Backend
	origWorkers := crackstate.State.Workers

	defer func() {
		crackstate.State.Backend = orig
		crackstate.State.Workers = origWorkers
	}()

	crackstate.State.Backend = "none"
	crackstate.State.Workers = 3

	cfg := ConfigFromState()
	assert.Equal(t, "none", cfg.Backend)
	assert.Equal(t, 3, cfg.Workers)
}

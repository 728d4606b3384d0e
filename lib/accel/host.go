package accel

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// minChunk is the smallest range worth handing to a separate worker.
const minChunk = 4096

// HostDevice runs the filter on the host CPU, splitting each job across all logical cores.
type HostDevice struct {
	mu        sync.Mutex
	requested int // Requested worker count, 0 means all logical cores
	workers   int
	open      bool
}

// NewHostDevice returns a host device using the given number of workers (0 for all cores).
func NewHostDevice(workers int) *HostDevice {
	return &HostDevice{requested: max(workers, 0)}
}

// Name returns "host".
func (d *HostDevice) Name() string {
	return BackendHost
}

// Workers returns the number of workers used per dispatch, or 0 before Open.
func (d *HostDevice) Workers() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.workers
}

// Open sizes the worker pool from the logical core count.
func (d *HostDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}

	workers := d.requested
	if workers == 0 {
		workers = logicalCores(ctx)
	}

	d.workers = workers
	d.open = true

	crackstate.Logger.Debug("Host device opened", "workers", workers)

	return nil
}

// logicalCores asks gopsutil for the logical core count and falls back to the Go runtime.
func logicalCores(ctx context.Context) int {
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil || count < 1 {
		crackstate.Logger.Debug("Couldn't count logical cores, using runtime count", "error", err)

		return runtime.NumCPU()
	}

	return count
}

// Close marks the device closed.
func (d *HostDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false

	return nil
}

// Dispatch scans the job range in parallel. Each worker owns one contiguous chunk and a
// reusable name buffer, so the scan itself does not allocate except to record matches.
func (d *HostDevice) Dispatch(ctx context.Context, job Job) ([]uint64, error) {
	d.mu.Lock()
	open, workers := d.open, d.workers
	d.mu.Unlock()

	if !open {
		return nil, ErrDeviceClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count, err := roomname.CountNamesForLength(job.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobOutOfRange, err)
	}

	if job.Offset > count || job.Count > count-job.Offset {
		return nil, fmt.Errorf("%w: [%d, +%d) in %d names of length %d",
			ErrJobOutOfRange, job.Offset, job.Count, count, job.Length)
	}

	if job.Count == 0 {
		return nil, nil
	}

	workers = int(min(uint64(workers), max(job.Count/minChunk, 1))) //nolint:gosec // Bounded by workers
	chunk := (job.Count + uint64(workers) - 1) / uint64(workers)    //nolint:gosec // workers >= 1
	end := job.Offset + job.Count
	results := make([][]uint64, workers)

	var g errgroup.Group

	for w := range workers {
		start := job.Offset + uint64(w)*chunk //nolint:gosec // w >= 0
		stop := min(start+chunk, end)

		if start >= stop {
			continue
		}

		g.Go(func() error {
			matches, err := scanRange(job.Target, job.Length, start, stop)
			results[w] = matches

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(results...), nil
}

// scanRange returns the ordinals in [start, stop) whose channel hash equals target.
func scanRange(target byte, length int, start, stop uint64) ([]uint64, error) {
	buf := make([]byte, 1, 1+length)
	buf[0] = channelkey.Marker

	var matches []uint64

	for ordinal := start; ordinal < stop; ordinal++ {
		marked, err := roomname.AppendName(buf[:1], length, ordinal)
		if err != nil {
			return nil, err
		}

		if channelkey.ChannelHash(channelkey.DeriveKeyMarked(marked)) == target {
			matches = append(matches, ordinal)
		}
	}

	return matches, nil
}

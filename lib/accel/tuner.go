package accel

import (
	"math"
	"time"
)

const (
	// DefaultBatchFloor is the initial and smallest batch size.
	DefaultBatchFloor uint64 = 32768
	// DefaultBatchMax caps the tuned batch size.
	DefaultBatchMax uint64 = 1 << 26
	// DefaultBatchTarget is the dispatch time the tuner aims for.
	DefaultBatchTarget = time.Second
)

// batchTuner rescales the batch size once, after the first full-size dispatch.
type batchTuner struct {
	floor  uint64
	max    uint64
	target time.Duration
	size   uint64
	tuned  bool
}

func newBatchTuner(floor, maxSize uint64, target time.Duration) *batchTuner {
	if floor == 0 {
		floor = DefaultBatchFloor
	}

	if maxSize < floor {
		maxSize = max(DefaultBatchMax, floor)
	}

	if target <= 0 {
		target = DefaultBatchTarget
	}

	return &batchTuner{floor: floor, max: maxSize, target: target, size: floor}
}

// observe records a dispatch of n candidates taking elapsed. Only the first dispatch of
// the current full size retunes; it reports whether the size changed.
func (t *batchTuner) observe(n uint64, elapsed time.Duration) bool {
	if t.tuned || n < t.size {
		return false
	}

	t.tuned = true

	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	scaled := float64(n) * float64(t.target) / float64(elapsed)
	next := min(max(nearestPowerOfTwo(scaled), t.floor), t.max)

	changed := next != t.size
	t.size = next

	return changed
}

// nearestPowerOfTwo rounds x to the nearest power of two in log space.
func nearestPowerOfTwo(x float64) uint64 {
	if x <= 1 {
		return 1
	}

	exp := math.Round(math.Log2(x))
	if exp >= 63 {
		return 1 << 63
	}

	return 1 << uint(exp)
}

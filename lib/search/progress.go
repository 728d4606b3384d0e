package search

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/unclesp1d3r/meshcrack/lib/progress"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// tracker turns run counters into snapshots on a wall-clock cadence. Between emissions
// it only compares timestamps.
type tracker struct {
	fn       ProgressFunc
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	runID       uuid.UUID
	started     time.Time
	lastEmit    time.Time
	lastChecked uint64

	phase        Phase
	checked      uint64
	total        uint64
	position     roomname.Position
	wordsChecked int
	wordsTotal   int
}

func newTracker(runID uuid.UUID, fn ProgressFunc, interval time.Duration, now func() time.Time, logger *log.Logger) *tracker {
	started := now()

	return &tracker{
		fn:       fn,
		interval: interval,
		now:      now,
		logger:   logger,
		runID:    runID,
		started:  started,
		lastEmit: started,
	}
}

// tick emits a snapshot and yields the goroutine once the interval has passed since the
// previous emission.
func (t *tracker) tick() {
	now := t.now()
	if now.Sub(t.lastEmit) < t.interval {
		return
	}

	t.emit(now)
	runtime.Gosched()
}

// flush emits a snapshot regardless of the cadence.
func (t *tracker) flush() {
	t.emit(t.now())
}

func (t *tracker) emit(now time.Time) {
	rate := progress.Rate(t.checked-t.lastChecked, now.Sub(t.lastEmit))

	snapshot := Snapshot{
		RunID:        t.runID,
		Phase:        t.phase,
		Checked:      t.checked,
		Total:        t.total,
		Rate:         rate,
		ETA:          progress.ETA(t.checked, t.total, rate),
		Elapsed:      now.Sub(t.started),
		Length:       t.position.Length,
		Position:     t.position,
		WordsChecked: t.wordsChecked,
		WordsTotal:   t.wordsTotal,
	}

	t.lastEmit = now
	t.lastChecked = t.checked

	t.deliver(snapshot)
}

// deliver calls the progress callback, isolating the search from panics inside it.
func (t *tracker) deliver(snapshot Snapshot) {
	if t.fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Progress callback panicked", "panic", r)
		}
	}()

	t.fn(snapshot)
}

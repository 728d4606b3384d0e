package display

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// barTemplate renders the phase, counter, bar, rate and ETA of a crack run.
const barTemplate = `{{string . "phase"}} {{counters . }} {{bar . }} {{percent . }} {{speed . "%s keys/s"}} {{rtime . "ETA %s"}}`

// ProgressBar draws brute-force progress snapshots as a terminal bar.
type ProgressBar struct {
	mu     sync.Mutex
	bar    *pb.ProgressBar
	output io.Writer
}

// NewProgressBar returns a bar writing to w. Nothing is drawn until the first Update.
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{output: w}
}

// Update moves the bar to checked of total, starting it on the first call.
func (p *ProgressBar) Update(phase string, checked, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = pb.New64(int64(total)) //nolint:gosec // Keyspace fits in int64
		p.bar.SetTemplateString(barTemplate)

		if p.output != nil {
			p.bar.SetWriter(p.output)
		}

		p.bar.Start()
	}

	p.bar.SetTotal(int64(total))     //nolint:gosec // Keyspace fits in int64
	p.bar.SetCurrent(int64(checked)) //nolint:gosec // Bounded by total
	p.bar.Set("phase", phase)
}

// Finish stops the bar if it was started.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

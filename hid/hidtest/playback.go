package hidtest

import (
	"sync"
	"time"

	"github.com/optoforge/go-stradus/hid"
)

// Playback is a scripted transport: every Read consumes the next queued
// step in order, regardless of what was written. Use it when a test needs
// exact control over the response sequence (timeouts, corrupt frames) and
// exact write counts.
type Playback struct {
	mu     sync.Mutex
	steps  []step
	writes [][]byte
}

type step struct {
	report  []byte
	err     error
	timeout bool
}

var _ hid.Transport = (*Playback)(nil)

// NewPlayback returns an empty script. With no steps queued, every Read
// times out.
func NewPlayback() *Playback {
	return &Playback{}
}

// QueueReport queues a report to be returned by a Read.
func (p *Playback) QueueReport(report []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step{report: report})
}

// QueueTimeout queues one Read that times out.
func (p *Playback) QueueTimeout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step{timeout: true})
}

// QueueError queues one Read that fails with err.
func (p *Playback) QueueError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step{err: err})
}

// Writes returns the reports written so far.
func (p *Playback) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// WriteCount returns the number of reports written so far.
func (p *Playback) WriteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

// Write records the report.
func (p *Playback) Write(report []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := make([]byte, len(report))
	copy(buf, report)
	p.writes = append(p.writes, buf)
	return nil
}

// Read consumes the next scripted step.
func (p *Playback) Read(timeout time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.steps) == 0 {
		return nil, hid.ErrReadTimeout
	}

	s := p.steps[0]
	p.steps = p.steps[1:]

	switch {
	case s.timeout:
		return nil, hid.ErrReadTimeout
	case s.err != nil:
		return nil, s.err
	default:
		return s.report, nil
	}
}

// Close is a no-op.
func (p *Playback) Close() error { return nil }

package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many documents have been indexed. The total
// is usually unknown while a corpus streams, so only counts and rates are
// printed.
type ProgressTracker struct {
	mu           sync.Mutex
	writer       io.Writer
	interval     int
	count        int
	lastReported int
	started      time.Time
}

// NewProgressTracker creates a tracker writing to w every interval
// documents. A non-positive interval reports on every Add.
func NewProgressTracker(w io.Writer, interval int) *ProgressTracker {
	return &ProgressTracker{
		writer:   w,
		interval: max(1, interval),
		started:  time.Now(),
	}
}

// Add records n more indexed documents.
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count += n
	if p.count-p.lastReported >= p.interval {
		p.report()
		p.lastReported = p.count
	}
}

// Count returns the number of documents recorded so far.
func (p *ProgressTracker) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Finish prints the final count followed by a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.report()
	fmt.Fprintln(p.writer)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.count) / elapsed
	}
	fmt.Fprintf(p.writer, "\rIndexed %d documents (%.1f docs/s)", p.count, rate)
}

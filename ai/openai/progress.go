package openai

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressReporter prints embedding throughput while a large batch runs.
// A reporter with a nil writer does nothing.
type progressReporter struct {
	writer    io.Writer
	total     int
	current   int
	startTime time.Time
	mu        sync.Mutex
}

func newProgressReporter(w io.Writer, total int) *progressReporter {
	return &progressReporter{writer: w, total: total}
}

func (p *progressReporter) start() {
	if p.writer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.current = 0
	p.report()
}

func (p *progressReporter) add(delta int) {
	if p.writer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(p.current+delta, p.total)
	p.report()
}

func (p *progressReporter) finish() {
	if p.writer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// report must be called with the lock held.
func (p *progressReporter) report() {
	rate := 0.0
	if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rEmbedding: %d/%d (%.1f%%) - %.1f texts/s",
		p.current, p.total, percentage, rate)
}

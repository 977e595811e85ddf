package indexer

import "sync"

// progressReporter serializes progress callbacks and keeps the reported count
// monotonic when batches finish out of order.
type progressReporter struct {
	mu    sync.Mutex
	fn    ProgressFunc
	total int
	last  int
}

func newProgressReporter(fn ProgressFunc, total int) *progressReporter {
	return &progressReporter{fn: fn, total: total}
}

func (p *progressReporter) report(done int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if done <= p.last {
		return
	}
	p.last = done
	p.fn(done, p.total)
}

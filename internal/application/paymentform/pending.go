package paymentform

import (
	"context"
	"sync"
)

// Pending completes once every lookup triggered by one command has been
// applied or dropped as stale
type Pending struct {
	mu   sync.Mutex
	n    int
	err  error
	done chan struct{}
}

func newPending() *Pending {
	return &Pending{n: 1, done: make(chan struct{})}
}

func (p *Pending) add(n int) {
	p.mu.Lock()
	p.n += n
	p.mu.Unlock()
}

func (p *Pending) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil && p.err == nil {
		p.err = err
	}
	p.n--
	if p.n == 0 {
		close(p.done)
	}
}

// Done is closed when all work has completed
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the first lookup failure, if any. Stale responses are not failures.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the work completes or ctx ends
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

package paymentform

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a keystroke triggers lookups
const DefaultDebounce = 200 * time.Millisecond

// debouncer runs the latest function scheduled under a key once the key has
// been quiet for delay. Superseded functions are handed to their cancel hook.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	entries map[string]*debounced
}

type debounced struct {
	timer  *time.Timer
	cancel func()
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		entries: make(map[string]*debounced),
	}
}

// Schedule arranges for fn to run after the delay unless key is scheduled
// again first, in which case cancel runs instead. A zero delay runs fn
// synchronously.
func (d *debouncer) Schedule(key string, fn, cancel func()) {
	d.mu.Lock()
	if prev, ok := d.entries[key]; ok {
		delete(d.entries, key)
		if prev.timer.Stop() && prev.cancel != nil {
			defer prev.cancel()
		}
	}
	if d.delay <= 0 {
		d.mu.Unlock()
		fn()
		return
	}

	entry := &debounced{cancel: cancel}
	entry.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.entries[key] != entry {
			d.mu.Unlock()
			if entry.cancel != nil {
				entry.cancel()
			}
			return
		}
		delete(d.entries, key)
		d.mu.Unlock()
		fn()
	})
	d.entries[key] = entry
	d.mu.Unlock()
}

// StopAll cancels everything scheduled
func (d *debouncer) StopAll() {
	d.mu.Lock()
	entries := d.entries
	d.entries = make(map[string]*debounced)
	d.mu.Unlock()

	for _, e := range entries {
		if e.timer.Stop() && e.cancel != nil {
			e.cancel()
		}
	}
}

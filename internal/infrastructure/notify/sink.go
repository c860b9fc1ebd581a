// Package notify provides NotificationSink implementations for payment editors.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/paymentmanager/backend/internal/application/paymentform"
	"go.uber.org/zap"
)

// LogSink writes editor notifications to a zap logger
type LogSink struct {
	logger *zap.Logger
}

var _ paymentform.NotificationSink = (*LogSink)(nil)

// NewLogSink creates a sink that logs through logger
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("editor")}
}

// ProgressStarted implements paymentform.NotificationSink
func (s *LogSink) ProgressStarted() {
	s.logger.Debug("Lookup started")
}

// ProgressEnded implements paymentform.NotificationSink
func (s *LogSink) ProgressEnded() {
	s.logger.Debug("Lookup finished")
}

// Notify implements paymentform.NotificationSink
func (s *LogSink) Notify(n paymentform.Notification) {
	if n.Level == paymentform.LevelError {
		s.logger.Warn(n.Message)
		return
	}
	s.logger.Info(n.Message)
}

// DefaultBufferCapacity bounds a BufferSink when no capacity is given
const DefaultBufferCapacity = 20

// BufferSink keeps the most recent notifications until they are drained,
// and counts lookups in progress
type BufferSink struct {
	mu       sync.Mutex
	capacity int
	items    []paymentform.Notification
	active   atomic.Int32
}

var _ paymentform.NotificationSink = (*BufferSink)(nil)

// NewBufferSink creates a buffer holding at most capacity notifications;
// older ones are dropped first
func NewBufferSink(capacity int) *BufferSink {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &BufferSink{capacity: capacity}
}

// ProgressStarted implements paymentform.NotificationSink
func (s *BufferSink) ProgressStarted() {
	s.active.Add(1)
}

// ProgressEnded implements paymentform.NotificationSink
func (s *BufferSink) ProgressEnded() {
	s.active.Add(-1)
}

// Notify implements paymentform.NotificationSink
func (s *BufferSink) Notify(n paymentform.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == s.capacity {
		s.items = s.items[1:]
	}
	s.items = append(s.items, n)
}

// Drain returns buffered notifications oldest first and empties the buffer
func (s *BufferSink) Drain() []paymentform.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items
	s.items = nil
	if out == nil {
		out = []paymentform.Notification{}
	}
	return out
}

// InProgress returns the number of lookups started but not yet ended
func (s *BufferSink) InProgress() int {
	return int(s.active.Load())
}

// Fanout forwards every call to each sink in order
type Fanout []paymentform.NotificationSink

var _ paymentform.NotificationSink = Fanout(nil)

// ProgressStarted implements paymentform.NotificationSink
func (f Fanout) ProgressStarted() {
	for _, s := range f {
		s.ProgressStarted()
	}
}

// ProgressEnded implements paymentform.NotificationSink
func (f Fanout) ProgressEnded() {
	for _, s := range f {
		s.ProgressEnded()
	}
}

// Notify implements paymentform.NotificationSink
func (f Fanout) Notify(n paymentform.Notification) {
	for _, s := range f {
		s.Notify(n)
	}
}

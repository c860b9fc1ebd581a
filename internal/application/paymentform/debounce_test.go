package paymentform

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_RunsLatestOnly(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var ran, cancelled atomic.Int32
	done := make(chan struct{})
	d.Schedule("country", func() { ran.Add(1) }, func() { cancelled.Add(1) })
	d.Schedule("country", func() { ran.Add(10); close(done) }, func() { cancelled.Add(1) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	assert.Equal(t, int32(10), ran.Load())
	assert.Equal(t, int32(1), cancelled.Load())
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)

	country := make(chan struct{})
	state := make(chan struct{})
	d.Schedule("country", func() { close(country) }, nil)
	d.Schedule("state", func() { close(state) }, nil)

	for _, ch := range []chan struct{}{country, state} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("debounced function never ran")
		}
	}
}

func TestDebouncer_ZeroDelayRunsInline(t *testing.T) {
	d := newDebouncer(0)
	ran := false
	d.Schedule("k", func() { ran = true }, nil)
	assert.True(t, ran)
}

func TestDebouncer_StopAll(t *testing.T) {
	d := newDebouncer(time.Hour)
	var cancelled atomic.Int32
	d.Schedule("a", func() { t.Error("must not run") }, func() { cancelled.Add(1) })
	d.Schedule("b", func() { t.Error("must not run") }, func() { cancelled.Add(1) })

	d.StopAll()
	assert.Equal(t, int32(2), cancelled.Load())
}

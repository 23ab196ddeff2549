package rlc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRLCTimerFiresOnFire(t *testing.T) {
	var mu sync.Mutex
	fired := make(chan struct{}, 1)

	rt := newRLCTimer(&mu, func() { fired <- struct{}{} }, nil)

	mu.Lock()
	rt.start(5 * time.Millisecond)
	mu.Unlock()

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer never fired")
	}
}

func TestRLCTimerStopPreventsFire(t *testing.T) {
	var mu sync.Mutex
	fired := make(chan struct{}, 1)

	rt := newRLCTimer(&mu, func() { fired <- struct{}{} }, nil)

	mu.Lock()
	rt.start(20 * time.Millisecond)
	rt.stop()
	mu.Unlock()

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestRLCTimerRestartReplacesDeadline(t *testing.T) {
	var mu sync.Mutex
	var fireCount int

	rt := newRLCTimer(&mu, func() { fireCount++ }, nil)

	mu.Lock()
	rt.start(10 * time.Millisecond)
	rt.start(200 * time.Millisecond) // push the deadline out
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	count := fireCount
	active := rt.isActive()
	mu.Unlock()

	assert.Equal(t, 0, count)
	assert.True(t, active)
}

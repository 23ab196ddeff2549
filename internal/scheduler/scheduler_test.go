package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYieldRunsInFIFOOrder(t *testing.T) {
	var s Scheduler
	var order []int

	s.Put(Item{Run: func() { order = append(order, 1) }})
	s.Put(Item{Run: func() { order = append(order, 2) }})
	s.Put(Item{Run: func() { order = append(order, 3) }})

	s.Yield()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.False(t, s.Pending())
}

func TestYieldRunsCleanupAfterRun(t *testing.T) {
	var s Scheduler
	var trace []string

	s.Put(Item{
		Run:     func() { trace = append(trace, "run") },
		Cleanup: func() { trace = append(trace, "cleanup") },
	})

	s.Yield()

	assert.Equal(t, []string{"run", "cleanup"}, trace)
}

func TestReentrantPutDuringYieldIsDeferred(t *testing.T) {
	var s Scheduler
	var order []int

	s.Put(Item{Run: func() {
		order = append(order, 1)
		s.Put(Item{Run: func() { order = append(order, 99) }})
	}})

	s.Yield()
	assert.Equal(t, []int{1}, order)
	assert.True(t, s.Pending())

	s.Yield()
	assert.Equal(t, []int{1, 99}, order)
}

func TestYieldOnEmptyQueueIsNoop(t *testing.T) {
	var s Scheduler
	assert.NotPanics(t, func() { s.Yield() })
}

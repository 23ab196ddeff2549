package rlc

import (
	"testing"

	"github.com/samsamfire/gonrlc/internal/seglist"
	"github.com/stretchr/testify/assert"
)

func TestNewTXSDUCoversWholePayload(t *testing.T) {
	s := newTXSDU(3, []byte("hello world"))
	head, ok := s.unsent.Head()
	assert.True(t, ok)
	assert.Equal(t, seglist.Segment{Start: 0, End: 11}, head)
	assert.EqualValues(t, 11, s.size)
	assert.Equal(t, StateReady, s.state)
}

func TestInsertPayloadGrowsBufferAndReportsUnique(t *testing.T) {
	s := newRXSDU(1)

	uniques := s.insertPayload(0, []byte("abc"))
	assert.Len(t, uniques, 1)
	assert.Equal(t, []byte("abc"), s.buffer.Flatten())

	uniques = s.insertPayload(3, []byte("def"))
	assert.Len(t, uniques, 1)
	assert.Equal(t, []byte("abcdef"), s.buffer.Flatten())
}

func TestInsertPayloadOutOfOrderSplicesCorrectly(t *testing.T) {
	s := newRXSDU(1)
	s.insertPayload(3, []byte("def"))
	s.insertPayload(0, []byte("abc"))
	assert.Equal(t, []byte("abcdef"), s.buffer.Flatten())
}

func TestInsertPayloadDuplicateIsNoop(t *testing.T) {
	s := newRXSDU(1)
	s.insertPayload(0, []byte("abc"))
	uniques := s.insertPayload(0, []byte("abc"))
	assert.Len(t, uniques, 0)
	assert.Equal(t, []byte("abc"), s.buffer.Flatten())
}

func TestIsRxDoneRequiresLastReceivedAndFullCoverage(t *testing.T) {
	s := newRXSDU(1)
	s.insertPayload(0, []byte("abc"))
	assert.False(t, s.isRxDone())

	s.lastReceived = true
	assert.True(t, s.isRxDone())
}

func TestIsRxDoneFalseWithInteriorGap(t *testing.T) {
	s := newRXSDU(1)
	s.insertPayload(0, []byte("ab"))
	s.insertPayload(5, []byte("xy"))
	s.lastReceived = true
	assert.False(t, s.isRxDone())
}

func TestRetainRelease(t *testing.T) {
	s := newTXSDU(0, []byte("x"))
	assert.EqualValues(t, 1, s.refcount)
	s.retain()
	assert.EqualValues(t, 2, s.refcount)
	assert.False(t, s.release())
	assert.True(t, s.release())
}

package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasWithinWindow(t *testing.T) {
	w := New(10, 4)
	assert.True(t, w.Has(10, 64))
	assert.True(t, w.Has(13, 64))
	assert.False(t, w.Has(14, 64))
	assert.False(t, w.Has(9, 64))
}

func TestHasWraparound(t *testing.T) {
	// 6-bit SN space, mod 64. Window wraps past 63 back to 0.
	w := New(62, 4)
	assert.True(t, w.Has(62, 64))
	assert.True(t, w.Has(63, 64))
	assert.True(t, w.Has(0, 64))
	assert.True(t, w.Has(1, 64))
	assert.False(t, w.Has(2, 64))
}

func TestMoveToAndEnd(t *testing.T) {
	w := New(0, 32)
	assert.EqualValues(t, 32, w.End())
	w.MoveTo(5)
	assert.EqualValues(t, 5, w.Base)
	assert.EqualValues(t, 37, w.End())
}

func TestIndex(t *testing.T) {
	w := New(100, 10)
	assert.EqualValues(t, 0, w.Index(100, 1<<18))
	assert.EqualValues(t, 9, w.Index(109, 1<<18))
}

package rlc

import (
	"testing"

	"github.com/samsamfire/gonrlc/pkg/codec"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidateRejectsBadSNWidth(t *testing.T) {
	c := amConfig()
	c.SNWidth = 7
	err := c.validate()
	assert.NotNil(t, err)
	assert.True(t, err.Is(ErrInvalidArgument))
}

func TestConfigValidateRejectsAMWithSN6(t *testing.T) {
	c := amConfig()
	c.SNWidth = codec.SN6
	err := c.validate()
	assert.NotNil(t, err)
}

func TestConfigValidateRejectsZeroWindow(t *testing.T) {
	c := umConfig()
	c.WindowSize = 0
	assert.NotNil(t, c.validate())
}

func TestConfigValidateRejectsWindowTooWide(t *testing.T) {
	c := umConfig()
	c.WindowSize = c.snSpace()
	assert.NotNil(t, c.validate())
}

func TestConfigValidateAcceptsUMWithSN6(t *testing.T) {
	c := umConfig()
	c.SNWidth = codec.SN6
	c.WindowSize = 32
	assert.Nil(t, c.validate())
}

func TestSNSpace(t *testing.T) {
	c := Config{SNWidth: codec.SN12}
	assert.EqualValues(t, 4096, c.snSpace())
}

package rlc

import "github.com/samsamfire/gonrlc/pkg/codec"

// Mode selects the RLC service mode of a bearer.
type Mode int

const (
	ModeTM Mode = iota
	ModeUM
	ModeAM
)

func (m Mode) codecMode() codec.Mode {
	switch m {
	case ModeTM:
		return codec.ModeTM
	case ModeUM:
		return codec.ModeUM
	default:
		return codec.ModeAM
	}
}

// Config is the immutable configuration of one bearer, built by the caller
// and validated once by Init, the same way the teacher validates the
// entry12xx object-dictionary shape once inside NewSDOServer rather than on
// every call.
type Config struct {
	// Mode selects TM, UM or AM behavior.
	Mode Mode
	// WindowSize is the width of the TX/RX sliding window, in SNs.
	WindowSize uint32
	// SNWidth is the sequence-number field width: 6, 12 or 18 bits.
	SNWidth codec.SNWidth
	// PDUWithoutPollMax is the AM poll threshold on PDU count.
	PDUWithoutPollMax uint32
	// ByteWithoutPollMax is the AM poll threshold on byte count.
	ByteWithoutPollMax uint32
	// TReassemblyUs is the reassembly timer duration in microseconds.
	TReassemblyUs uint64
	// TPollRetransmitUs is the poll-retransmit timer duration in
	// microseconds.
	TPollRetransmitUs uint64
	// TStatusProhibitUs is the status-prohibit timer duration in
	// microseconds. Zero disables the prohibit entirely: status PDUs may
	// then be emitted back-to-back with no rate limit.
	TStatusProhibitUs uint64
	// MaxRetxThreshold bounds retransmission attempts per SDU. Zero means
	// "never retransmit": the first retransmission attempt immediately
	// signals TX_FAIL for that SDU.
	MaxRetxThreshold uint32
}

// snSpace returns 2^SNWidth, the modular sequence-number space.
func (c Config) snSpace() uint32 {
	return uint32(1) << uint(c.SNWidth)
}

// validate checks the configuration shape, mirroring the teacher's
// validation of entry12xx's expected sub-index layout before accepting it.
func (c Config) validate() *Error {
	switch c.SNWidth {
	case codec.SN6, codec.SN12, codec.SN18:
	default:
		return newError(KindInvalidArgument, "sn_width must be 6, 12 or 18")
	}
	if c.Mode == ModeAM && c.SNWidth == codec.SN6 {
		return newError(KindInvalidArgument, "AM requires a 12 or 18-bit sn_width")
	}
	if c.WindowSize == 0 {
		return newError(KindInvalidArgument, "window_size must be non-zero")
	}
	if c.WindowSize >= c.snSpace() {
		return newError(KindInvalidArgument, "window_size must be smaller than the sn space")
	}
	return nil
}

package rlc

import (
	"github.com/samsamfire/gonrlc/internal/fb"
	"github.com/samsamfire/gonrlc/internal/seglist"
)

// Direction distinguishes TX from RX SDUs within the SDU store.
type Direction int

const (
	DirTX Direction = iota
	DirRX
)

// SDUState tracks an SDU's lifecycle, per §3's READY/WAIT/DONE state model.
type SDUState int

const (
	// StateReady: TX has data left to transmit / RX can still accept
	// segments.
	StateReady SDUState = iota
	// StateWait: TX only; submitted and awaiting ACK.
	StateWait
	// StateDone: RX only; fully received, awaiting delivery or window
	// advance.
	StateDone
)

// sdu is one upper-layer payload tracked by the SDU store, either on the TX
// or the RX side of a bearer.
type sdu struct {
	sn        uint32
	dir       Direction
	state     SDUState
	buffer    *fb.Chain
	size      uint32
	refcount  int

	// TX-only.
	unsent    *seglist.List
	retxCount uint32
	done      chan TxOutcome

	// RX-only.
	received     *seglist.List
	lastReceived bool
}

// newTXSDU builds a TX SDU with its unsent list covering the full payload.
func newTXSDU(sn uint32, payload []byte) *sdu {
	return &sdu{
		sn:       sn,
		dir:      DirTX,
		state:    StateReady,
		buffer:   fb.NewOwned(payload),
		size:     uint32(len(payload)),
		refcount: 1,
		unsent:   seglist.New(seglist.Segment{Start: 0, End: uint32(len(payload))}),
		done:     make(chan TxOutcome, 1),
	}
}

// newRXSDU builds an empty RX SDU ready to accept segments.
func newRXSDU(sn uint32) *sdu {
	return &sdu{
		sn:       sn,
		dir:      DirRX,
		state:    StateReady,
		buffer:   fb.NewOwned(nil),
		refcount: 1,
		received: &seglist.List{},
	}
}

func (s *sdu) retain() {
	s.refcount++
}

// release decrements refcount and reports whether it reached zero.
func (s *sdu) release() bool {
	s.refcount--
	return s.refcount <= 0
}

// isRxDone reports whether an RX SDU is completely reassembled:
// is_rx_done ⇔ last_received ∧ list = [(0,N)].
func (s *sdu) isRxDone() bool {
	return s.lastReceived && s.received.Covers(s.size)
}

// insertPayload splices newly-received bytes at the given SN-space offset
// into the SDU's buffer, growing the buffer's owned storage as needed.
// Returns the unique sub-intervals that were newly added.
func (s *sdu) insertPayload(offset uint32, payload []byte) []seglist.Segment {
	end := offset + uint32(len(payload))
	uniques := s.received.InsertAll(seglist.Segment{Start: offset, End: end})
	if len(uniques) == 0 {
		return uniques
	}

	if end > s.size {
		s.size = end
	}

	flat := s.buffer.Flatten()
	if uint32(len(flat)) < s.size {
		grown := make([]byte, s.size)
		copy(grown, flat)
		flat = grown
	}
	for _, u := range uniques {
		srcStart := u.Start - offset
		copy(flat[u.Start:u.End], payload[srcStart:srcStart+(u.End-u.Start)])
	}
	s.buffer = fb.NewOwned(flat)

	return uniques
}

package rlc

import (
	"time"

	"github.com/samsamfire/gonrlc/pkg/codec"
)

// TxOutcome is the terminal result an SDUHandle resolves to.
type TxOutcome int

const (
	TxOutcomeOK TxOutcome = iota
	TxOutcomeFail
)

// SDUHandle is returned by Send; awaiting it yields the terminal outcome of
// the SDU it names, mirroring the source's completion semaphore with an
// explicit, never-internally-held wait.
type SDUHandle struct {
	SN   uint32
	done <-chan TxOutcome
}

// Await blocks for the SDU's terminal outcome (OK or TX_FAIL) or until
// timeout elapses, in which case it returns ErrTimeout and leaves the SDU
// untouched so the caller may retry the wait.
func (h SDUHandle) Await(timeout time.Duration) (TxOutcome, *Error) {
	select {
	case outcome := <-h.done:
		return outcome, nil
	case <-time.After(timeout):
		return 0, ErrTimeout
	}
}

// Send enqueues buf as a new TX SDU, assigning it the next sequence number
// if the TX window has room.
func (c *Context) Send(payload []byte) (SDUHandle, *Error) {
	c.mu.Lock()
	s, err := c.sendLocked(payload)
	c.mu.Unlock()

	if err != nil {
		return SDUHandle{}, err
	}

	c.sched.Yield()
	return SDUHandle{SN: s.sn, done: s.done}, nil
}

func (c *Context) sendLocked(payload []byte) (*sdu, *Error) {
	if !c.txWindow.Has(c.txNext, c.snSpace()) {
		return nil, ErrWindowFull
	}

	s := newTXSDU(c.txNext, payload)
	c.txNext = (c.txNext + 1) % c.snSpace()
	c.store.insert(s)

	c.put(c.methods.TxRequest)

	return s, nil
}

// TxAvail grants the engine budget bytes of transmission capacity: ARQ
// consumes budget for a pending status PDU first, then the TX engine
// consumes what remains. Returns the number of bytes actually used.
func (c *Context) TxAvail(budget uint32) uint32 {
	c.mu.Lock()
	used := c.txAvailLocked(budget)
	c.mu.Unlock()

	c.sched.Yield()
	return used
}

func (c *Context) txAvailLocked(budget uint32) uint32 {
	used := uint32(0)

	if c.mode == ModeAM {
		used += c.arqTxStatusLocked(budget)
	}

	remaining := budget
	if used < budget {
		remaining = budget - used
	} else {
		remaining = 0
	}

	for _, s := range c.store.ordered(DirTX) {
		if remaining == 0 {
			break
		}
		if s.state != StateReady {
			continue
		}
		n := c.serveSDULocked(s, remaining)
		used += n
		remaining -= n
	}

	return used
}

// dataHeaderSize returns the wire size, in bytes, of a TM/UM/AM data header
// with the given SegInfo/has-SO shape, independent of the field values
// themselves (the bit widths alone determine byte count).
func dataHeaderSize(mode Mode, width codec.SNWidth, hasSO bool) int {
	switch mode {
	case ModeTM:
		return 0
	case ModeUM:
		base := 1
		if width == codec.SN12 {
			base = 2
		}
		if hasSO {
			base += 2
		}
		return base
	default: // AM
		base := 2
		if width == codec.SN18 {
			base = 3
		}
		if hasSO {
			base += 2
		}
		return base
	}
}

// serveSDULocked produces at most one PDU for s within budget bytes,
// submits it via the scheduler, and advances s's unsent list and state.
// Returns the number of budget bytes consumed (header + payload).
func (c *Context) serveSDULocked(s *sdu, budget uint32) uint32 {
	head, ok := s.unsent.Head()
	if !ok {
		return 0
	}

	isFirst := head.Start == 0
	segLen := head.End - head.Start
	onlySegment := s.unsent.Len() == 1

	// UM no-SN optimization: when this is the first PDU of the SDU, no
	// other segment is pending, and the whole remaining payload fits
	// under a 1-byte complete header, prefer that over a segmented First
	// header even when the latter would have had to split the SDU.
	useNoSN := c.mode == ModeUM && isFirst && onlySegment && head.End == s.size && budget >= 1+segLen

	var hdrSize int
	var payloadSize uint32
	var isLast bool
	var si codec.SegInfo

	if useNoSN {
		hdrSize = 1
		payloadSize = segLen
		isLast = true
		si = codec.SIComplete
	} else {
		hdrSize = dataHeaderSize(c.mode, c.cfg.SNWidth, !isFirst)
		if budget <= uint32(hdrSize) {
			return 0
		}
		maxPayload := budget - uint32(hdrSize)

		payloadSize = segLen
		if payloadSize > maxPayload {
			payloadSize = maxPayload
		}
		if payloadSize == 0 {
			return 0
		}

		isLast = payloadSize == segLen && head.End == s.size && onlySegment
		si = segInfoFor(isFirst, isLast)
	}

	c.pduWithoutPoll++
	c.byteWithoutPoll += payloadSize

	polled := false
	if c.mode == ModeAM {
		polled = c.arqPollableLocked(s, isLast)
	}

	hasSN := !(c.mode == ModeUM && si == codec.SIComplete)
	hdr := codec.DataHeader{SN: s.sn, SI: si, SO: head.Start, Polled: polled, HasSN: hasSN}

	headerBuf, err := codec.EncodeData(c.mode.codecMode(), c.cfg.SNWidth, hdr)
	if err != nil {
		c.logger.Error("tx: failed to encode data header", "sn", s.sn, "err", err)
		return 0
	}

	flat := s.buffer.Flatten()
	payload := flat[head.Start : head.Start+payloadSize]

	pdu := make([]byte, 0, len(headerBuf)+len(payload))
	pdu = append(pdu, headerBuf...)
	pdu = append(pdu, payload...)

	c.put(func() { c.methods.TxSubmit(pdu) })

	if payloadSize == segLen {
		s.unsent.PopHead()
	} else {
		s.unsent.SetHeadStart(head.Start + payloadSize)
	}

	if polled {
		c.pollSN = c.maxSubmittedUnackedSNLocked(s.sn)
		c.pduWithoutPoll = 0
		c.byteWithoutPoll = 0
		c.forcePoll = false
		c.pollRetransmitTimer.start(time.Duration(c.cfg.TPollRetransmitUs) * time.Microsecond)
	}

	if isLast {
		if c.mode == ModeAM {
			s.state = StateWait
		} else {
			c.store.remove(DirTX, s.sn)
			c.fireTxDoneLocked(s, TxOutcomeOK, TxDone)
		}
	} else if c.mode == ModeAM && s.unsent.Len() == 0 {
		// A retransmitted range ending short of the SDU's end leaves
		// nothing unsent either.
		s.state = StateWait
	}

	return uint32(hdrSize) + payloadSize
}

func segInfoFor(isFirst, isLast bool) codec.SegInfo {
	switch {
	case isFirst && isLast:
		return codec.SIComplete
	case isFirst:
		return codec.SIFirst
	case isLast:
		return codec.SILast
	default:
		return codec.SIMiddle
	}
}

// maxSubmittedUnackedSNLocked returns the highest SN (by modular distance
// from txWindow.Base) among TX SDUs still present in the store (submitted
// but not yet acknowledged), including the SDU just served.
func (c *Context) maxSubmittedUnackedSNLocked(atLeast uint32) uint32 {
	snSpace := c.snSpace()
	max := atLeast
	maxDist := c.txWindow.Index(atLeast, snSpace)
	for _, s := range c.store.ordered(DirTX) {
		if head, ok := s.unsent.Head(); ok && s.state == StateReady && s.retxCount == 0 && head.Start == 0 {
			continue // not submitted yet
		}
		if dist := c.txWindow.Index(s.sn, snSpace); dist > maxDist {
			max = s.sn
			maxDist = dist
		}
	}
	return max
}

// fireTxDoneLocked signals s's completion channel with outcome and enqueues
// the matching event. The sdu must already have been removed from the
// store by the caller.
func (c *Context) fireTxDoneLocked(s *sdu, outcome TxOutcome, evKind EventKind) {
	s.done <- outcome
	c.put(func() { c.methods.Event(Event{Kind: evKind, SN: s.sn}) })
}

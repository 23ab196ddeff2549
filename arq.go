package rlc

import (
	"time"

	"github.com/samsamfire/gonrlc/internal/seglist"
	"github.com/samsamfire/gonrlc/pkg/codec"
)

// arqPollableLocked decides the P bit for the PDU currently being built for
// s, per §4.3's poll triggers: an outstanding force-poll request, the
// pdu/byte-without-poll thresholds, or s being the last pending SDU with no
// other READY TX SDU left behind it.
func (c *Context) arqPollableLocked(s *sdu, isLast bool) bool {
	if c.forcePoll {
		return true
	}
	if c.cfg.PDUWithoutPollMax > 0 && c.pduWithoutPoll >= c.cfg.PDUWithoutPollMax {
		return true
	}
	if c.cfg.ByteWithoutPollMax > 0 && c.byteWithoutPoll >= c.cfg.ByteWithoutPollMax {
		return true
	}
	if !isLast {
		return false
	}
	for _, other := range c.store.ordered(DirTX) {
		if other.sn != s.sn && other.state == StateReady {
			return false
		}
	}
	return true
}

// arqTxStatusLocked builds and submits a status PDU if one is pending and
// the status-prohibit timer isn't running, truncating the NACK element list
// to fit budget and deferring whatever didn't fit to the next opportunity.
func (c *Context) arqTxStatusLocked(budget uint32) uint32 {
	if !c.genStatus || c.statusProhibitTimer.isActive() {
		return 0
	}

	fullElems, ackSN := c.buildStatusElementsLocked()
	elems := fullElems

	for {
		hdr := codec.StatusHeader{AckSN: ackSN, Elements: elems}
		buf, err := codec.EncodeStatus(c.cfg.SNWidth, hdr)
		if err != nil {
			c.logger.Error("arq: failed to encode status pdu", "err", err)
			return 0
		}

		if uint32(len(buf)) <= budget {
			c.put(func() { c.methods.TxSubmit(buf) })
			if len(elems) == len(fullElems) {
				c.genStatus = false
			}
			if c.cfg.TStatusProhibitUs > 0 {
				c.statusProhibitTimer.start(time.Duration(c.cfg.TStatusProhibitUs) * time.Microsecond)
			}
			return uint32(len(buf))
		}

		if len(elems) == 0 {
			return 0
		}
		elems = elems[:len(elems)-1]
		// Acknowledge only up to the first element left out, so the SNs it
		// names stay unacknowledged until the next status PDU.
		ackSN = fullElems[len(elems)].NackSN
	}
}

// buildStatusElementsLocked walks RX SDUs in SN order from rxWindow.Base up
// to nextHighest, emitting a plain NACK for a single missing SN, a ranged
// NACK for a run of entirely-missing SNs, and an offset NACK per gap inside
// a partially-received SDU. ackSN is set to the SN immediately past the
// last SN referenced by any element (or nextHighest if nothing is missing).
func (c *Context) buildStatusElementsLocked() ([]codec.StatusElement, uint32) {
	var elems []codec.StatusElement
	lastReferenced := c.rxWindow.Base

	snSpace := c.snSpace()
	prevSN := func(n uint32) uint32 { return (n + snSpace - 1) % snSpace }

	sn := c.rxWindow.Base
	for sn != c.nextHighest {
		s, ok := c.store.get(DirRX, sn)
		if !ok {
			gapStart := sn
			gapLen := uint32(0)
			for sn != c.nextHighest {
				if _, ok2 := c.store.get(DirRX, sn); ok2 {
					break
				}
				sn = (sn + 1) % snSpace
				gapLen++
			}
			if gapLen == 1 {
				elems = append(elems, codec.StatusElement{NackSN: gapStart})
			} else {
				elems = append(elems, codec.StatusElement{NackSN: gapStart, HasRange: true, Range: uint8(gapLen)})
			}
			lastReferenced = prevSN(sn)
			continue
		}

		if !s.isRxDone() {
			endBound := s.size
			if !s.lastReceived {
				endBound = 0
			}
			gaps := s.received.Gaps(endBound)
			for i, g := range gaps {
				end := g.End
				if i == len(gaps)-1 && !s.lastReceived {
					end = 0xFFFF
				}
				elems = append(elems, codec.StatusElement{NackSN: sn, HasOffset: true, OffsetStart: g.Start, OffsetEnd: end})
			}
			lastReferenced = sn
		}
		sn = (sn + 1) % snSpace
	}

	ackSN := (lastReferenced + 1) % snSpace
	if len(elems) == 0 {
		ackSN = c.nextHighest
	}
	return elems, ackSN
}

// arqRxStatusLocked processes a received status PDU: every NACK element
// marks the SDUs it names for retransmission, then ackSN acknowledges
// everything below it and shifts the TX window.
func (c *Context) arqRxStatusLocked(status codec.StatusHeader) {
	for _, el := range status.Elements {
		c.processNackLocked(el)
	}
	snSpace := c.snSpace()
	if c.txWindow.Index(status.AckSN, snSpace) > c.txWindow.Index(c.pollSN, snSpace) {
		c.pollRetransmitTimer.stop()
	}

	c.ackLocked(status.AckSN)
}

// processNackLocked retransmits the SDU range(s) a single status element
// names. A plain (no-range, no-offset) element that names an SDU the store
// no longer holds is logged and skipped rather than retransmitted — the
// corrected behaviour for a NACK arriving after that SDU's data was already
// acknowledged by a previous status round.
func (c *Context) processNackLocked(el codec.StatusElement) {
	if el.HasRange {
		snSpace := c.snSpace()
		sn := el.NackSN
		for i := uint8(0); i < el.Range; i++ {
			s, ok := c.store.get(DirTX, sn)
			if !ok {
				c.logger.Warn("arq: ranged nack for unknown sn, skipping", "sn", sn)
			} else {
				c.markRangeForRetransmitLocked(s, 0, s.size)
			}
			sn = (sn + 1) % snSpace
		}
		return
	}

	s, ok := c.store.get(DirTX, el.NackSN)
	if !ok {
		c.logger.Warn("arq: nack for unknown sn, skipping", "sn", el.NackSN)
		return
	}

	if el.HasOffset {
		end := el.OffsetEnd
		if end == 0xFFFF {
			end = s.size
		}
		c.markRangeForRetransmitLocked(s, el.OffsetStart, end)
		return
	}

	c.markRangeForRetransmitLocked(s, 0, s.size)
}

// markRangeForRetransmitLocked re-queues [start,end) of s's unsent list. If
// s has exhausted its retransmit budget, it fails the SDU instead.
func (c *Context) markRangeForRetransmitLocked(s *sdu, start, end uint32) {
	if s.state != StateWait {
		return
	}

	if s.retxCount >= c.cfg.MaxRetxThreshold {
		c.store.remove(DirTX, s.sn)
		c.fireTxDoneLocked(s, TxOutcomeFail, TxFail)
		return
	}

	s.retxCount++
	s.unsent.InsertAll(seglist.Segment{Start: start, End: end})
	s.state = StateReady
	c.put(c.methods.TxRequest)
}

// ackLocked removes every WAIT-state TX SDU with sn < ackSN (in modular
// distance from the current txWindow.Base), fires its TX-done event, and
// advances txWindow.Base to the lowest SN still held (or txNext if the
// store is empty of TX SDUs).
func (c *Context) ackLocked(ackSN uint32) {
	snSpace := c.snSpace()
	ackDist := c.txWindow.Index(ackSN, snSpace)

	var done []*sdu
	for _, s := range c.store.ordered(DirTX) {
		if s.state == StateWait && c.txWindow.Index(s.sn, snSpace) < ackDist {
			done = append(done, s)
		}
	}
	for _, s := range done {
		c.store.remove(DirTX, s.sn)
		c.fireTxDoneLocked(s, TxOutcomeOK, TxDone)
	}

	remaining := c.store.ordered(DirTX)
	if len(remaining) > 0 {
		lowest := remaining[0]
		for _, s := range remaining[1:] {
			if c.txWindow.Index(s.sn, snSpace) < c.txWindow.Index(lowest.sn, snSpace) {
				lowest = s
			}
		}
		c.txWindow.MoveTo(lowest.sn)
	} else {
		c.txWindow.MoveTo(c.txNext)
	}
}

// onPollRetransmitTimeout implements t_poll_retransmit's expiry action: a
// stalled poll is retried by forcing the P bit on the next PDU.
func (c *Context) onPollRetransmitTimeout() {
	c.forcePoll = true
	c.put(c.methods.TxRequest)
}

// onStatusProhibitExpiry lets a status PDU deferred during the prohibit
// window go out as soon as a TX opportunity arrives.
func (c *Context) onStatusProhibitExpiry() {
	if c.genStatus {
		c.put(c.methods.TxRequest)
	}
}

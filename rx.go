package rlc

import (
	"time"

	"github.com/samsamfire/gonrlc/pkg/codec"
)

// RxSubmit decodes an incoming PDU and routes it to the status or data
// path, per §4.4.
func (c *Context) RxSubmit(buf []byte) {
	c.mu.Lock()
	c.rxSubmitLocked(buf)
	c.mu.Unlock()

	c.sched.Yield()
}

func (c *Context) rxSubmitLocked(buf []byte) {
	pdu, n, err := codec.DecodePDU(c.mode.codecMode(), c.cfg.SNWidth, buf)
	if err != nil {
		c.logger.Warn("rx: failed to decode pdu header", "err", err)
		c.put(c.methods.TxRequest)
		return
	}

	if c.mode == ModeTM {
		payload := cloneBytes(buf)
		c.put(func() { c.methods.Event(Event{Kind: RxDone, Payload: payload}) })
		c.put(c.methods.TxRequest)
		return
	}

	payload := buf[n:]

	if pdu.IsStatus {
		c.arqRxStatusLocked(pdu.Status)
		c.put(c.methods.TxRequest)
		return
	}

	c.rxDataLocked(pdu.Data, payload)
	c.put(c.methods.TxRequest)
}

func (c *Context) rxDataLocked(hdr codec.DataHeader, payload []byte) {
	if !hdr.HasSN {
		// Complete UM SDU with no SN field: delivered directly, never
		// allocates an RX SDU record.
		out := cloneBytes(payload)
		c.put(func() { c.methods.Event(Event{Kind: RxDone, Payload: out}) })
		return
	}

	sn := hdr.SN
	s, found := c.store.get(DirRX, sn)
	if !found {
		if !c.rxWindow.Has(sn, c.snSpace()) {
			c.logger.Warn("rx: pdu sn outside window, dropping", "sn", sn)
			return
		}
		s = newRXSDU(sn)
		c.store.insert(s)
	}

	if s.state != StateReady {
		c.logger.Warn("rx: pdu for non-ready sdu, dropping", "sn", sn)
		return
	}

	s.insertPayload(hdr.SO, payload)

	if hdr.SI.IsLast() {
		s.lastReceived = true
	}

	if next := (sn + 1) % c.snSpace(); c.rxWindow.Index(next, c.snSpace()) > c.rxWindow.Index(c.nextHighest, c.snSpace()) {
		c.nextHighest = next
	}

	if c.mode == ModeAM && hdr.Polled {
		c.genStatus = true
	}

	if s.isRxDone() {
		if c.mode == ModeAM {
			s.state = StateDone
			c.rxAdvanceAndDeliverLocked()
		} else {
			c.store.remove(DirRX, sn)
			out := s.buffer.Flatten()
			c.put(func() { c.methods.Event(Event{Kind: RxDone, SN: sn, Payload: out}) })
		}
	}

	c.updateReassemblyTimerLocked()
}

// rxAdvanceAndDeliverLocked delivers the contiguous prefix of DONE SDUs
// starting at rxWindow.Base and advances rxWindow.Base/highestAck past
// them, per §4.4 step 8 (AM path).
func (c *Context) rxAdvanceAndDeliverLocked() {
	sn := c.rxWindow.Base
	for {
		s, ok := c.store.get(DirRX, sn)
		if !ok || !s.isRxDone() {
			break
		}
		payload := s.buffer.Flatten()
		c.store.remove(DirRX, sn)
		deliverSN := sn
		c.put(func() { c.methods.Event(Event{Kind: RxDone, SN: deliverSN, Payload: payload}) })
		sn = (sn + 1) % c.snSpace()
	}
	if sn != c.rxWindow.Base {
		c.rxWindow.MoveTo(sn)
		c.highestAck = sn
	}
}

// headSDUHasGapLocked reports whether the RX SDU sitting at rxWindow.Base
// has more than one received segment, i.e. bytes are missing before its
// already-received tail.
func (c *Context) headSDUHasGapLocked() bool {
	s, ok := c.store.get(DirRX, c.rxWindow.Base)
	if !ok {
		return false
	}
	return s.received.Len() > 1
}

func (c *Context) nextHighestDistanceLocked() uint32 {
	return c.rxWindow.Index(c.nextHighest, c.snSpace())
}

// shouldStartReassemblyLocked implements should_start_reassembly.
func (c *Context) shouldStartReassemblyLocked() bool {
	if c.reassemblyTimer.isActive() {
		return false
	}
	dist := c.nextHighestDistanceLocked()
	if dist > 1 {
		return true
	}
	return dist == 1 && c.headSDUHasGapLocked()
}

// shouldStopReassemblyLocked implements should_stop_reassembly.
func (c *Context) shouldStopReassemblyLocked() bool {
	if !c.reassemblyTimer.isActive() {
		return false
	}
	if c.rxWindow.Base >= c.nextStatusTrigger {
		return true
	}
	return c.rxWindow.Base == c.nextStatusTrigger-1 && !c.headSDUHasGapLocked()
}

func (c *Context) updateReassemblyTimerLocked() {
	if c.shouldStopReassemblyLocked() {
		c.reassemblyTimer.stop()
		return
	}
	if c.shouldStartReassemblyLocked() {
		c.nextStatusTrigger = c.nextHighest
		c.reassemblyTimer.start(time.Duration(c.cfg.TReassemblyUs) * time.Microsecond)
	}
}

// lowestSNNotDoneLocked finds the lowest SN >= nextStatusTrigger that is
// not yet fully received, per alarm_reassembly / lowest_sn_not_recv.
func (c *Context) lowestSNNotDoneLocked() uint32 {
	sn := c.nextStatusTrigger
	for sn != c.nextHighest {
		s, ok := c.store.get(DirRX, sn)
		if !ok || !s.isRxDone() {
			return sn
		}
		sn = (sn + 1) % c.snSpace()
	}
	return sn
}

// onReassemblyTimeout implements alarm_reassembly: it shifts the RX window
// to the lowest unresolved SN, delivering completed SDUs and dropping
// incomplete ones strictly below the new base, then restarts the timer if
// loss still remains ahead.
func (c *Context) onReassemblyTimeout() {
	lowest := c.lowestSNNotDoneLocked()

	for sn := c.rxWindow.Base; sn != lowest; sn = (sn + 1) % c.snSpace() {
		s, ok := c.store.get(DirRX, sn)
		if ok {
			c.store.remove(DirRX, sn)
		}
		if ok && s.isRxDone() {
			payload := s.buffer.Flatten()
			deliverSN := sn
			c.put(func() { c.methods.Event(Event{Kind: RxDone, SN: deliverSN, Payload: payload}) })
		} else {
			dropSN := sn
			c.put(func() { c.methods.Event(Event{Kind: RxFail, SN: dropSN}) })
		}
	}

	c.rxWindow.MoveTo(lowest)
	c.highestAck = lowest

	c.updateReassemblyTimerLocked()
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

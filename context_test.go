package rlc

import (
	"sync"
	"time"

	"github.com/samsamfire/gonrlc/pkg/codec"
)

// recordingMethods is a test double for Methods that records every submitted
// PDU and event, and lets tests drive TxRequest/TxAvail manually.
type recordingMethods struct {
	mu sync.Mutex

	submitted   [][]byte
	events      []Event
	txRequested int
}

func (m *recordingMethods) TxSubmit(buf []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.submitted = append(m.submitted, cp)
}

func (m *recordingMethods) TxRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txRequested++
}

func (m *recordingMethods) Event(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *recordingMethods) snapshotEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *recordingMethods) snapshotSubmitted() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.submitted))
	copy(out, m.submitted)
	return out
}

func amConfig() Config {
	return Config{
		Mode:               ModeAM,
		WindowSize:         16,
		SNWidth:            codec.SN12,
		PDUWithoutPollMax:  4,
		ByteWithoutPollMax: 1000,
		TReassemblyUs:      uint64(50 * time.Millisecond / time.Microsecond),
		TPollRetransmitUs:  uint64(50 * time.Millisecond / time.Microsecond),
		TStatusProhibitUs:  uint64(10 * time.Millisecond / time.Microsecond),
		MaxRetxThreshold:   4,
	}
}

func umConfig() Config {
	return Config{
		Mode:          ModeUM,
		WindowSize:    16,
		SNWidth:       codec.SN12,
		TReassemblyUs: uint64(50 * time.Millisecond / time.Microsecond),
	}
}

func tmConfig() Config {
	return Config{Mode: ModeTM, WindowSize: 1, SNWidth: codec.SN6}
}

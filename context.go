package rlc

import (
	"log/slog"
	"sync"

	"github.com/samsamfire/gonrlc/internal/scheduler"
	"github.com/samsamfire/gonrlc/internal/window"
)

// Context is the process-addressable unit of a single RLC bearer: TX/RX
// windows, SN counters, ARQ flags, the SDU store, the deferred-callback
// scheduler and the timers, all guarded by one plain sync.Mutex. Go has no
// reentrant mutex, so unlike the spec's "single recursive mutex per
// context", every exported method below locks mu exactly once on entry and
// delegates to an unexported *Locked helper that assumes the lock is
// already held and never re-acquires it — the same discipline the teacher
// applies in SDOServer.Process and TIME.timerProducerHandler.
type Context struct {
	mode Mode
	cfg  Config

	methods Methods
	logger  *slog.Logger

	mu    sync.Mutex
	store *sduStore
	sched scheduler.Scheduler

	txWindow window.Window
	rxWindow window.Window

	txNext            uint32
	nextHighest       uint32
	highestAck        uint32
	nextStatusTrigger uint32
	pollSN            uint32

	forcePoll bool
	genStatus bool

	pduWithoutPoll  uint32
	byteWithoutPoll uint32

	reassemblyTimer     *rlcTimer
	pollRetransmitTimer *rlcTimer
	statusProhibitTimer *rlcTimer
}

// Init builds and wires a new Context for config, validating it once up
// front the way NewSDOServer validates its object-dictionary entry shape
// once at construction rather than on every call.
func Init(cfg Config, methods Methods, logger *slog.Logger) (*Context, *Error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if methods == nil {
		return nil, newError(KindInvalidArgument, "methods must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := &Context{
		mode:     cfg.Mode,
		cfg:      cfg,
		methods:  methods,
		logger:   logger.With("bearer", cfg.Mode),
		store:    newSDUStore(),
		txWindow: window.New(0, cfg.WindowSize),
		rxWindow: window.New(0, cfg.WindowSize),
	}
	ctx.reassemblyTimer = newRLCTimer(&ctx.mu, ctx.onReassemblyTimeout, ctx.sched.Yield)
	ctx.pollRetransmitTimer = newRLCTimer(&ctx.mu, ctx.onPollRetransmitTimeout, ctx.sched.Yield)
	ctx.statusProhibitTimer = newRLCTimer(&ctx.mu, ctx.onStatusProhibitExpiry, ctx.sched.Yield)

	return ctx, nil
}

// Reset clears all SDUs, windows and counters but preserves config and
// methods, mirroring the teacher's reset semantics for long-lived
// server/client objects that are reused across NMT state transitions.
func (c *Context) Reset() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()

	c.sched.Yield()
}

func (c *Context) resetLocked() {
	c.store.reset()
	c.txWindow = window.New(0, c.cfg.WindowSize)
	c.rxWindow = window.New(0, c.cfg.WindowSize)
	c.txNext = 0
	c.nextHighest = 0
	c.highestAck = 0
	c.nextStatusTrigger = 0
	c.pollSN = 0
	c.forcePoll = false
	c.genStatus = false
	c.pduWithoutPoll = 0
	c.byteWithoutPoll = 0
	c.reassemblyTimer.stop()
	c.pollRetransmitTimer.stop()
	c.statusProhibitTimer.stop()
}

// Deinit tears down the context: stops all timers and drains the
// scheduler so no deferred callback fires after return.
func (c *Context) Deinit() {
	c.mu.Lock()
	c.reassemblyTimer.stop()
	c.pollRetransmitTimer.stop()
	c.statusProhibitTimer.stop()
	c.mu.Unlock()

	c.sched.Yield()
}

// put enqueues a deferred user-visible callback. Caller must hold c.mu;
// put itself never invokes user code (see internal/scheduler).
func (c *Context) put(run func()) {
	c.sched.Put(scheduler.Item{Run: run})
}

// snSpace returns the configured modular sequence-number space.
func (c *Context) snSpace() uint32 {
	return c.cfg.snSpace()
}

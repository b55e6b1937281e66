// Package buffer implements the distributed data buffer: a per-signal triple buffer
// that assembles incoming samples into frames and hands completed frames to consumers.
//
// This package is INTERNAL - clients use the public API in the module root.
//
// Buffer roles:
//
//	producer ── Update ──► Write ──(sync / missed sync)──► Stock ──(dispatch)──► Read
//	                                                                             │
//	                                         LockData / SyncListener ◄───────────┘
//
// Rotations are pointer swaps; no frame data is copied after the initial sample copy.
// A producer is never blocked by a slow consumer: if Stock still holds an undispatched
// frame, the newer frame replaces it and a "dropping frame" incident is raised.
package buffer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/incident"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

const incidentSource = "ddb"

// Buffer is the triple-buffer engine for one signal.
//
// Goroutine topology:
//   - N external producers calling Update (serialized by writeMu)
//   - 1 dispatch goroutine per CreateEntry (rotates Stock→Read, runs listeners)
//   - M external consumers calling LockData/UnlockData
//
// Lock order: readMu → writeMu → stockMu → wakeMu. The dispatch goroutine takes
// listenersMu before readMu (shared).
//
// Thread-safety: all exported methods are safe for concurrent use.
type Buffer struct {
	sink   incident.Sink
	logger *slog.Logger

	// --- Frames ---

	readMu  sync.RWMutex // exclusive for Stock→Read, shared for consumers and dispatch
	writeMu sync.Mutex   // guards write, configuration and continuity bookkeeping
	stockMu sync.Mutex   // guards stock and stockIsFull

	read  *frame.Frame
	stock *frame.Frame
	write *frame.Frame

	stockIsFull bool

	// --- Configuration (written under readMu+writeMu+stockMu) ---

	signal     sample.Handle
	strategy   DeliveryStrategy
	configured bool

	// --- Continuity bookkeeping (writeMu) ---

	prevFrameID      uint64
	prevSampleNumber uint16
	prevSync         bool

	// --- Dispatch wake-up ---

	wakeMu   sync.Mutex
	wakeCond *sync.Cond
	wake     bool // Stock went from empty to full since the last dispatch pass

	// --- Listeners ---

	listenersMu reentrantMutex
	listeners   []SyncListener

	sharedLocks atomic.Int64 // outstanding LockData holds

	// --- Lifecycle ---

	lifeMu sync.Mutex // serializes CreateEntry and Close
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	stats counters
}

type counters struct {
	updates        atomic.Uint64
	rotations      atomic.Uint64
	dispatched     atomic.Uint64
	droppedFrames  atomic.Uint64
	abortedSyncs   atomic.Uint64
	overruns       atomic.Uint64
	mismatches     atomic.Uint64
	listenerErrors atomic.Uint64
}

// New returns an unconfigured buffer reporting to sink. A nil sink is a programming
// error and panics. A nil logger selects slog.Default().
func New(sink incident.Sink, logger *slog.Logger) *Buffer {
	if sink == nil {
		panic("ddb: nil incident sink")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Buffer{
		sink:     sink,
		logger:   logger,
		read:     frame.New(),
		stock:    frame.New(),
		write:    frame.New(),
		prevSync: true,
	}
	b.wakeCond = sync.NewCond(&b.wakeMu)
	return b
}

// CreateEntry configures the buffer for one signal with maxEntries slots per frame and
// starts the dispatch goroutine.
//
// Calling CreateEntry again stops the running dispatch goroutine, reallocates all three
// frames (discarding their contents), resets continuity bookkeeping and starts a fresh
// goroutine. Outstanding LockData holds block reconfiguration until released.
func (b *Buffer) CreateEntry(signal sample.Handle, maxEntries int, opts ...EntryOption) error {
	if signal == (sample.Handle{}) {
		return fmt.Errorf("%w: null signal handle", ErrInvalidArgument)
	}
	if maxEntries <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidArgument, maxEntries)
	}

	cfg := entryConfig{strategy: DeliverIncomplete}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleSize < 0 {
		return fmt.Errorf("%w: negative sample size %d", ErrInvalidArgument, cfg.sampleSize)
	}
	if cfg.strategy != DeliverIncomplete && cfg.strategy != DropIncomplete {
		return fmt.Errorf("%w: unknown delivery strategy %d", ErrInvalidArgument, cfg.strategy)
	}

	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	b.stopDispatch()

	b.readMu.Lock()
	b.writeMu.Lock()
	b.stockMu.Lock()

	b.read.InitMemory(maxEntries, cfg.sampleSize)
	b.stock.InitMemory(maxEntries, cfg.sampleSize)
	b.write.InitMemory(maxEntries, cfg.sampleSize)
	b.stockIsFull = false

	b.signal = signal
	b.strategy = cfg.strategy
	b.configured = true
	b.resetContinuity()

	b.stockMu.Unlock()
	b.writeMu.Unlock()
	b.readMu.Unlock()

	b.clearWake()
	b.startDispatch()
	b.closed = false

	b.logger.Info("ddb entry created",
		"signal", signal.String(),
		"max_entries", maxEntries,
		"sample_size", cfg.sampleSize,
		"strategy", cfg.strategy.String(),
	)
	return nil
}

// ResetData invalidates all three frames and zeroes the continuity bookkeeping. A
// frame waiting in Stock is discarded. Afterwards LockData reports ErrEmpty until the
// next frame is delivered.
func (b *Buffer) ResetData() {
	b.readMu.Lock()
	b.writeMu.Lock()
	b.stockMu.Lock()

	b.read.InvalidateData()
	b.stock.InvalidateData()
	b.write.InvalidateData()
	b.stockIsFull = false
	b.resetContinuity()

	b.clearWake()

	b.stockMu.Unlock()
	b.writeMu.Unlock()
	b.readMu.Unlock()

	b.logger.Debug("ddb data reset", "signal", b.signalString())
}

// Close stops the dispatch goroutine and releases all frame memory.
//
// Outstanding LockData holds are force-released first; their owners must not touch
// the frame afterwards (UnlockData then reports ErrNotLocked). Producers must have
// stopped calling Update. Close is idempotent; CreateEntry may reconfigure a closed
// buffer.
func (b *Buffer) Close() error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for n := b.sharedLocks.Swap(0); n > 0; n-- {
		b.readMu.RUnlock()
	}

	b.stopDispatch()

	b.readMu.Lock()
	b.writeMu.Lock()
	b.stockMu.Lock()

	b.read.DeleteMemory()
	b.stock.DeleteMemory()
	b.write.DeleteMemory()
	b.stockIsFull = false
	b.configured = false
	b.resetContinuity()

	b.stockMu.Unlock()
	b.writeMu.Unlock()
	b.readMu.Unlock()

	b.logger.Debug("ddb closed", "signal", b.signalString())
	return nil
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	b.listenersMu.Lock()
	listeners := len(b.listeners)
	b.listenersMu.Unlock()

	return Stats{
		Updates:        b.stats.updates.Load(),
		Rotations:      b.stats.rotations.Load(),
		Dispatched:     b.stats.dispatched.Load(),
		DroppedFrames:  b.stats.droppedFrames.Load(),
		AbortedSyncs:   b.stats.abortedSyncs.Load(),
		Overruns:       b.stats.overruns.Load(),
		Mismatches:     b.stats.mismatches.Load(),
		ListenerErrors: b.stats.listenerErrors.Load(),
		SharedLocks:    b.sharedLocks.Load(),
		Listeners:      listeners,
	}
}

// resetContinuity requires writeMu.
func (b *Buffer) resetContinuity() {
	b.prevFrameID = 0
	b.prevSampleNumber = 0
	b.prevSync = true
}

func (b *Buffer) signalString() string {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.signal.String()
}

func (b *Buffer) notify(code incident.Code, severity incident.Severity, description string) {
	b.sink.Notify(incident.New(code, severity, incidentSource, description))
}

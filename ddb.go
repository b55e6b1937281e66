// Package ddb provides the distributed data buffer: a per-signal triple buffer that
// assembles timed samples into frames and delivers them to consumers without ever
// blocking the producer.
//
// Core policy: "Never block the producer. Consumers see the newest frame."
//
// Usage:
//
//	buf := ddb.New(ddb.WithLogger(logger))
//	defer buf.Close()
//
//	signal := ddb.HandleForSignal("VehicleState")
//	buf.CreateEntry(signal, 15, ddb.WithDeliveryStrategy(ddb.DropIncomplete))
//	buf.RegisterSyncListener(listener)
//
//	// transmission callback
//	buf.Update(sample)
//
//	// polling consumer
//	if f, err := buf.LockData(); err == nil {
//	    use(f)
//	    buf.UnlockData()
//	}
//
// Public API Stability:
//
// The public API (types, interfaces, errors) is the stable contract. The engine lives
// in internal/ and can evolve freely.
package ddb

import (
	"log/slog"

	"github.com/audi/fep-participant-sub006/internal/buffer"
	"github.com/audi/fep-participant-sub006/internal/incident"
)

// Buffer is the public interface of the distributed data buffer.
//
// Lifecycle: New() → CreateEntry() → Update()/LockData()/listeners → Close()
//
// Thread-safety: all methods are safe for concurrent use.
type Buffer interface {
	// CreateEntry configures the buffer for one signal with maxEntries slots per frame
	// and starts delivery. Calling it again reconfigures and discards buffered data.
	//
	// Returns ErrInvalidArgument for a null handle or a non-positive capacity.
	CreateEntry(signal Handle, maxEntries int, opts ...EntryOption) error

	// Update copies a sample into the frame under construction. A sync-flagged sample
	// completes the frame.
	//
	// Update never blocks on consumers. Apart from ErrNilSample and ErrNotConfigured it
	// returns nil; dropped samples and frames are reported to the incident sink.
	Update(s Preparation) error

	// ResetData discards all buffered frames. LockData reports ErrEmpty afterwards.
	ResetData()

	// LockData returns the most recently delivered frame under a shared lock.
	//
	// Contract:
	//   - the frame is valid until UnlockData and MUST NOT be retained
	//   - every successful LockData needs exactly one UnlockData
	//   - do not call LockData again from the same goroutine before UnlockData
	//
	// Returns ErrEmpty (no lock held) when nothing was delivered yet.
	LockData() (Frame, error)

	// UnlockData releases one LockData hold. Returns ErrNotLocked without one.
	UnlockData() error

	// RegisterSyncListener adds a listener called once per delivered frame, in
	// registration order, on the delivery goroutine. Listeners may register and
	// unregister from inside their callback. Returns ErrInvalidArgument for a
	// listener whose type is not comparable.
	RegisterSyncListener(l SyncListener) error

	// UnregisterSyncListener removes a listener. Returns ErrListenerNotFound if it
	// was not registered.
	UnregisterSyncListener(l SyncListener) error

	// Stats returns a snapshot of operational counters.
	Stats() Stats

	// Close stops delivery and frees all frames. Idempotent.
	Close() error
}

type options struct {
	sink   incident.Sink
	logger *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithIncidentSink routes incidents to sink instead of the logger.
func WithIncidentSink(sink IncidentSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an unconfigured buffer. Without WithIncidentSink, incidents are logged.
func New(opts ...Option) Buffer {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.sink == nil {
		o.sink = incident.NewLogSink(o.logger)
	}
	return buffer.New(o.sink, o.logger)
}

package buffer

import (
	"errors"

	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

// Errors returned by the buffer. The public package re-exports them.
var (
	ErrInvalidArgument  = errors.New("ddb: invalid argument")
	ErrNotConfigured    = errors.New("ddb: buffer not configured")
	ErrNilSample        = errors.New("ddb: nil sample")
	ErrEmpty            = errors.New("ddb: no frame available")
	ErrNotLocked        = errors.New("ddb: no data lock held")
	ErrNilListener      = errors.New("ddb: nil listener")
	ErrListenerNotFound = errors.New("ddb: listener not registered")

	// Rotation outcomes. These never leave Update; they are logged and counted.
	ErrIncompleteFrame = errors.New("ddb: incomplete frame refused")
	ErrFrameDropped    = errors.New("ddb: undispatched frame superseded")
)

// DeliveryStrategy decides whether an incomplete frame reaches consumers.
type DeliveryStrategy int

const (
	// DeliverIncomplete rotates every frame, complete or not.
	DeliverIncomplete DeliveryStrategy = iota
	// DropIncomplete refuses incomplete frames; consumers keep seeing the last
	// complete one.
	DropIncomplete
)

func (s DeliveryStrategy) String() string {
	switch s {
	case DeliverIncomplete:
		return "deliver_incomplete"
	case DropIncomplete:
		return "drop_incomplete"
	default:
		return "unknown"
	}
}

// SyncListener is notified once per delivered frame, on the dispatch goroutine.
//
// The frame is only valid until ProcessSync returns; implementations MUST NOT retain
// it and MUST NOT call LockData (self-deadlock against a pending rotation). Registering
// or unregistering listeners from within the callback is allowed; the change applies
// from the next frame on.
//
// Listeners are compared with == on unregistration, so RegisterSyncListener rejects
// implementations that are not comparable. Pointer receivers are the usual choice.
type SyncListener interface {
	ProcessSync(signal sample.Handle, f frame.View) error
}

// EntryOption configures CreateEntry.
type EntryOption func(*entryConfig)

type entryConfig struct {
	sampleSize int
	strategy   DeliveryStrategy
}

// WithSampleSize fixes every slot to n payload bytes. 0 (the default) keeps slots
// dynamic.
func WithSampleSize(n int) EntryOption {
	return func(c *entryConfig) { c.sampleSize = n }
}

// WithDeliveryStrategy selects the delivery strategy (default DeliverIncomplete).
func WithDeliveryStrategy(s DeliveryStrategy) EntryOption {
	return func(c *entryConfig) { c.strategy = s }
}

// Stats is a snapshot of buffer counters.
type Stats struct {
	// Updates counts samples accepted by Update for processing (configured buffer).
	Updates uint64
	// Rotations counts Write→Stock swaps, including those that superseded a frame.
	Rotations uint64
	// Dispatched counts frames handed to the listeners.
	Dispatched uint64
	// DroppedFrames counts Stock frames superseded before dispatch.
	DroppedFrames uint64
	// AbortedSyncs counts incomplete frames refused under DropIncomplete.
	AbortedSyncs uint64

	Overruns       uint64
	Mismatches     uint64
	ListenerErrors uint64

	// SharedLocks is the number of outstanding LockData holds.
	SharedLocks int64
	Listeners   int
}

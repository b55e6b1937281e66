package ddb

import (
	"github.com/audi/fep-participant-sub006/internal/buffer"
	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/incident"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

// Public API - Re-export internal types as stable contract

// Frame is the read-only view of one delivered frame
type Frame = frame.View

// Sample is the concrete sample handed to Update
type Sample = sample.Sample

// SampleView is the read-only view of a stored sample
type SampleView = sample.View

// Preparation is what Update consumes; *Sample implements it
type Preparation = sample.Preparation

// Handle identifies a signal
type Handle = sample.Handle

// Stamper assigns frame ids and sample numbers to outgoing samples
type Stamper = sample.Stamper

// SyncListener is notified once per delivered frame
type SyncListener = buffer.SyncListener

// EntryOption configures CreateEntry
type EntryOption = buffer.EntryOption

// DeliveryStrategy decides whether incomplete frames reach consumers
type DeliveryStrategy = buffer.DeliveryStrategy

const (
	// DeliverIncomplete delivers every frame, complete or not
	DeliverIncomplete = buffer.DeliverIncomplete
	// DropIncomplete keeps the last complete frame visible instead of an incomplete one
	DropIncomplete = buffer.DropIncomplete
)

// Stats is a snapshot of buffer counters
type Stats = buffer.Stats

// Incident is a notification raised by the buffer
type Incident = incident.Incident

// IncidentSink receives incidents
type IncidentSink = incident.Sink

// Public API errors - Re-export internal errors as stable contract
var (
	ErrInvalidArgument  = buffer.ErrInvalidArgument
	ErrNotConfigured    = buffer.ErrNotConfigured
	ErrNilSample        = buffer.ErrNilSample
	ErrEmpty            = buffer.ErrEmpty
	ErrNotLocked        = buffer.ErrNotLocked
	ErrNilListener      = buffer.ErrNilListener
	ErrListenerNotFound = buffer.ErrListenerNotFound
	ErrPayloadTooLarge  = sample.ErrPayloadTooLarge
)

// WithSampleSize fixes every slot to n payload bytes (0 = dynamic)
func WithSampleSize(n int) EntryOption { return buffer.WithSampleSize(n) }

// WithDeliveryStrategy selects the delivery strategy
func WithDeliveryStrategy(s DeliveryStrategy) EntryOption { return buffer.WithDeliveryStrategy(s) }

// NewSample returns a dynamic sample with a zeroed payload of size bytes
func NewSample(size int) *Sample { return sample.New(size) }

// NewFixedSample returns a sample whose capacity is fixed to size bytes
func NewFixedSample(size int) *Sample { return sample.NewFixed(size) }

// NewStamper returns a stamper starting at frame 1
func NewStamper() *Stamper { return sample.NewStamper() }

// HandleForSignal derives the handle of a named signal
func HandleForSignal(name string) Handle { return sample.HandleForSignal(name) }

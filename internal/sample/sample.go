// Package sample defines the timed data sample handled by the distributed data buffer.
//
// A sample is a byte payload tagged with a simulation time, the frame it belongs to,
// its position within that frame and a sync flag marking the last sample of a frame.
package sample

import (
	"errors"

	"github.com/google/uuid"
)

// Errors returned by sample operations.
var (
	ErrPayloadTooLarge = errors.New("sample: payload exceeds fixed capacity")
	ErrNilDestination  = errors.New("sample: nil destination")
)

// Handle identifies the signal a sample originates from. uuid.Nil is the null handle.
type Handle = uuid.UUID

// signalNamespace scopes handles derived from signal names.
var signalNamespace = uuid.MustParse("6f1d2c8e-3b4a-5e7f-9a0b-1c2d3e4f5a6b")

// HandleForSignal derives a deterministic handle from a signal name, so that every
// participant referring to the same signal name agrees on its identity.
func HandleForSignal(name string) Handle {
	return uuid.NewSHA1(signalNamespace, []byte(name))
}

// Preparation is the producer-side view of a sample consumed by the buffer's Update.
type Preparation interface {
	Time() int64
	FrameID() uint64
	SampleNumber() uint16
	SyncFlag() bool
	SignalHandle() Handle

	// CopyTo deep-copies payload and metadata into dst.
	CopyTo(dst *Sample) error
}

// View is the read-only view of a sample handed out by a frame.
//
// Bytes returns the stored payload without copying; callers MUST NOT modify it.
type View interface {
	Time() int64
	FrameID() uint64
	SampleNumber() uint16
	SyncFlag() bool
	SignalHandle() Handle
	Size() int
	Bytes() []byte
}

// Sample is the concrete sample implementation. A Sample is either dynamic (payload
// grows as needed) or fixed (capacity set at creation, larger copies fail).
//
// Sample is not safe for concurrent mutation.
type Sample struct {
	time         int64
	frameID      uint64
	sampleNumber uint16
	sync         bool
	handle       Handle

	data  []byte
	fixed bool
}

// New returns a dynamic sample with a zeroed payload of size bytes.
func New(size int) *Sample {
	if size < 0 {
		size = 0
	}
	return &Sample{data: make([]byte, size)}
}

// NewFixed returns a sample whose payload capacity is fixed to size bytes.
func NewFixed(size int) *Sample {
	s := New(size)
	s.fixed = true
	return s
}

func (s *Sample) Time() int64 { return s.time }
func (s *Sample) FrameID() uint64 { return s.frameID }
func (s *Sample) SampleNumber() uint16 { return s.sampleNumber }
func (s *Sample) SyncFlag() bool { return s.sync }
func (s *Sample) SignalHandle() Handle { return s.handle }
func (s *Sample) Size() int { return len(s.data) }
func (s *Sample) Capacity() int { return cap(s.data) }
func (s *Sample) Fixed() bool { return s.fixed }

// Bytes returns the payload. Producers write into it directly.
func (s *Sample) Bytes() []byte { return s.data }

func (s *Sample) SetTime(t int64) { s.time = t }
func (s *Sample) SetFrameID(id uint64) { s.frameID = id }
func (s *Sample) SetSampleNumber(n uint16) { s.sampleNumber = n }
func (s *Sample) SetSyncFlag(sync bool) { s.sync = sync }
func (s *Sample) SetSignalHandle(h Handle) { s.handle = h }

// SetSize resizes the payload. A fixed sample cannot grow beyond its capacity.
// Growing a dynamic sample keeps the existing bytes.
func (s *Sample) SetSize(n int) error {
	if n < 0 {
		n = 0
	}
	if n <= cap(s.data) {
		s.data = s.data[:n]
		return nil
	}
	if s.fixed {
		return ErrPayloadTooLarge
	}
	grown := make([]byte, n)
	copy(grown, s.data)
	s.data = grown
	return nil
}

// CopyTo deep-copies s into dst. The copy never aliases s's payload, so the caller may
// reuse s immediately after CopyTo returns.
func (s *Sample) CopyTo(dst *Sample) error {
	if dst == nil {
		return ErrNilDestination
	}
	if err := dst.SetSize(len(s.data)); err != nil {
		return err
	}
	copy(dst.data, s.data)
	dst.time = s.time
	dst.frameID = s.frameID
	dst.sampleNumber = s.sampleNumber
	dst.sync = s.sync
	dst.handle = s.handle
	return nil
}

// Zero wipes payload bytes and metadata in place. The allocation and the payload size
// are kept.
func (s *Sample) Zero() {
	clear(s.data[:cap(s.data)])
	s.time = 0
	s.frameID = 0
	s.sampleNumber = 0
	s.sync = false
	s.handle = uuid.Nil
}

// Package frame implements the per-frame sample storage of the distributed data buffer.
//
// A Frame holds one slot per expected sample of a frame plus a validity bit per slot.
// Raw writes (SetSample) leave the frame stale; AnalyseFrame recomputes validity,
// valid count and frame size from the frame ids and sync flags stored in the slots.
// Until analysed, a frame answers every query as if it were empty.
package frame

import (
	"errors"
	"fmt"

	"github.com/audi/fep-participant-sub006/internal/sample"
)

// ErrSlotOutOfRange is returned by SetSample for a slot index beyond the frame capacity.
var ErrSlotOutOfRange = errors.New("frame: slot index out of range")

// View is the read-only access to a frame given to consumers.
//
// A View is only valid while the lock it was obtained under is held. Implementations
// MUST NOT be retained past that point.
type View interface {
	// Sample returns the sample at slot i, or nil if the slot is invalid.
	Sample(i int) sample.View
	IsValidSample(i int) bool
	// IsComplete reports whether every slot up to the frame size is valid.
	IsComplete() bool
	MaxSize() int
	ValidCount() int
	FrameSize() int
	FrameID() uint64
}

// Frame stores up to MaxSize samples of one frame.
//
// Frame is not safe for concurrent use; the buffer serializes access with its locks.
type Frame struct {
	samples  []*sample.Sample
	validity []bool

	maxSize    int
	validCount int
	frameSize  int
	frameID    uint64
	current    bool
}

// New returns an empty, unallocated frame.
func New() *Frame {
	return &Frame{}
}

// InitMemory allocates maxEntries slots, discarding any previous allocation. Slots are
// fixed to sampleSize bytes, or dynamic when sampleSize is 0.
func (f *Frame) InitMemory(maxEntries, sampleSize int) {
	if f.maxSize != 0 {
		f.DeleteMemory()
	}
	if maxEntries < 0 {
		maxEntries = 0
	}

	f.samples = make([]*sample.Sample, maxEntries)
	f.validity = make([]bool, maxEntries)
	for i := range f.samples {
		if sampleSize > 0 {
			f.samples[i] = sample.NewFixed(sampleSize)
		} else {
			f.samples[i] = sample.New(0)
		}
	}
	f.maxSize = maxEntries
	f.current = false
}

// DeleteMemory releases all slots and resets the frame to its unallocated state.
func (f *Frame) DeleteMemory() {
	f.samples = nil
	f.validity = nil
	f.maxSize = 0
	f.validCount = 0
	f.frameSize = 0
	f.frameID = 0
	f.current = false
}

// SetSample copies s into the given slot and marks the frame stale. Validity is not
// touched until the next AnalyseFrame.
//
// On a copy failure the slot is wiped (payload zeroed, frame id and sync flag cleared)
// so that no partial sample survives, and the copy error is returned.
func (f *Frame) SetSample(s sample.Preparation, slot int) error {
	if slot < 0 || slot >= f.maxSize {
		return fmt.Errorf("%w: slot %d, capacity %d", ErrSlotOutOfRange, slot, f.maxSize)
	}

	dst := f.samples[slot]
	err := s.CopyTo(dst)
	f.current = false
	if err != nil {
		clear(dst.Bytes()[:dst.Capacity()])
		dst.SetFrameID(0)
		dst.SetSyncFlag(false)
		return err
	}
	return nil
}

// AnalyseFrame recomputes validity, valid count and frame size.
//
// The frame id is the largest id among all slots; 0 means the frame holds nothing.
// A slot is valid iff it carries that id. Every valid slot overwrites the frame size:
// with slot+1 if it is sync-flagged, else slot+2 (an open trailing sample implies at
// least one more). The last valid slot therefore decides the frame size.
func (f *Frame) AnalyseFrame() {
	f.frameID = 0
	for _, s := range f.samples {
		if s.FrameID() > f.frameID {
			f.frameID = s.FrameID()
		}
	}

	f.validCount = 0
	f.frameSize = 0
	if f.frameID == 0 {
		for i := range f.validity {
			f.validity[i] = false
		}
	} else {
		for i, s := range f.samples {
			if s.FrameID() != f.frameID {
				f.validity[i] = false
				continue
			}
			f.validity[i] = true
			f.validCount++
			if s.SyncFlag() {
				f.frameSize = i + 1
			} else {
				f.frameSize = i + 2
			}
		}
	}
	f.current = true
}

// InvalidateData wipes every slot in place and clears all validity. Allocations are
// kept.
func (f *Frame) InvalidateData() {
	for _, s := range f.samples {
		s.Zero()
	}
	for i := range f.validity {
		f.validity[i] = false
	}
	f.frameSize = 0
	f.validCount = 0
	f.frameID = 0
	f.current = false
}

func (f *Frame) Sample(i int) sample.View {
	if !f.IsValidSample(i) {
		return nil
	}
	return f.samples[i]
}

func (f *Frame) IsValidSample(i int) bool {
	if !f.current || i < 0 || i >= f.maxSize {
		return false
	}
	return f.validity[i]
}

func (f *Frame) IsComplete() bool {
	return f.current && f.maxSize != 0 && f.frameSize == f.validCount
}

func (f *Frame) MaxSize() int { return f.maxSize }

func (f *Frame) ValidCount() int {
	if !f.current {
		return 0
	}
	return f.validCount
}

func (f *Frame) FrameSize() int {
	if !f.current {
		return 0
	}
	return f.frameSize
}

func (f *Frame) FrameID() uint64 {
	if !f.current {
		return 0
	}
	return f.frameID
}

// IsCurrent reports whether the frame was analysed since its last raw write.
func (f *Frame) IsCurrent() bool { return f.current }

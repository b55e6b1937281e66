package buffer

import (
	"errors"
	"fmt"

	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/incident"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

// Update stores a copy of s in the Write frame and rotates the frame towards the
// consumers when s carries the sync flag.
//
// Algorithm:
//  1. Reject when not configured (NotInitialized incident, ErrNotConfigured)
//  2. Drop samples of a foreign signal (GeneralWarning incident)
//  3. Missed sync: a newer frame id after an unsynced sample rotates the pending
//     frame first, so the incomplete frame is still handled per delivery strategy
//  4. Copy s into slot SampleNumber (RxOverrun incident on overflow or copy failure)
//  5. Sync flag: analyse and rotate Write→Stock
//  6. Record frame id, sample number and sync flag of s, even if s was dropped
//
// Update is a transmission callback: apart from ErrNilSample and ErrNotConfigured it
// always returns nil. Everything else is reported through the incident sink.
// The caller may reuse s as soon as Update returns.
func (b *Buffer) Update(s sample.Preparation) error {
	if s == nil {
		return ErrNilSample
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if !b.configured || b.write.MaxSize() == 0 {
		b.notify(incident.NotInitialized, incident.CriticalLocal,
			"receiving data without a properly configured buffer")
		return ErrNotConfigured
	}

	if s.SignalHandle() != b.signal {
		b.stats.mismatches.Add(1)
		b.notify(incident.GeneralWarning, incident.Warning,
			"dump: received signal handle does not match the registered one")
		return nil
	}
	b.stats.updates.Add(1)

	if s.FrameID() > b.prevFrameID && !b.prevSync {
		b.logger.Debug("ddb missed sync",
			"signal", b.signal.String(),
			"prev_frame_id", b.prevFrameID,
			"frame_id", s.FrameID(),
		)
		b.write.AnalyseFrame()
		b.rotate()
	}

	if err := b.write.SetSample(s, int(s.SampleNumber())); err != nil {
		b.stats.overruns.Add(1)
		if errors.Is(err, frame.ErrSlotOutOfRange) || errors.Is(err, sample.ErrPayloadTooLarge) {
			b.notify(incident.RxOverrun, incident.CriticalLocal,
				fmt.Sprintf("received sample exceeded buffer size, sample dropped: %v", err))
		} else {
			b.notify(incident.RxOverrun, incident.CriticalLocal,
				fmt.Sprintf("failed to enqueue data sample: %v", err))
		}
	}

	if s.SyncFlag() {
		b.write.AnalyseFrame()
		b.rotate()
	}

	b.prevFrameID = s.FrameID()
	b.prevSampleNumber = s.SampleNumber()
	b.prevSync = s.SyncFlag()
	return nil
}

// rotate moves the analysed Write frame to Stock. Rotation errors are expected
// outcomes of the delivery policy and stay internal.
func (b *Buffer) rotate() {
	if err := b.switchWriteBuffer(); err != nil {
		b.logger.Debug("ddb rotation", "signal", b.signal.String(), "result", err)
	}
}

// switchWriteBuffer swaps Write and Stock. Requires writeMu.
//
// Returns ErrIncompleteFrame when DropIncomplete refuses the Write frame (no swap) and
// ErrFrameDropped when the swap superseded an undispatched Stock frame. The dispatch
// goroutine is woken only on the empty→full transition of Stock.
func (b *Buffer) switchWriteBuffer() error {
	if b.strategy == DropIncomplete && b.write.ValidCount() != b.write.FrameSize() {
		b.stats.abortedSyncs.Add(1)
		b.notify(incident.RxAbortSync, incident.Warning,
			"reception abort: the frame is incomplete; use the deliver_incomplete strategy to avoid this")
		return ErrIncompleteFrame
	}

	b.stockMu.Lock()
	defer b.stockMu.Unlock()

	var err error
	if b.stockIsFull {
		b.stats.droppedFrames.Add(1)
		code := incident.RxAbortSync
		if b.sharedLocks.Load() > 0 {
			code = incident.RxAbortManual
		}
		b.notify(code, incident.Warning,
			"dropping frame: new sync received while stock buffer is still full")
		err = ErrFrameDropped
	}

	b.write, b.stock = b.stock, b.write
	b.stats.rotations.Add(1)

	if !b.stockIsFull {
		b.stockIsFull = true
		b.signalFrameReady()
	}
	return err
}

// switchReadBuffer swaps Stock and Read. Requires readMu held exclusively; only the
// dispatch goroutine calls it.
func (b *Buffer) switchReadBuffer() error {
	b.stockMu.Lock()
	defer b.stockMu.Unlock()

	if !b.stockIsFull {
		return ErrEmpty
	}
	b.stock, b.read = b.read, b.stock
	b.stockIsFull = false
	return nil
}

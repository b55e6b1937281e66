package frame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/audi/fep-participant-sub006/internal/sample"
)

type testValue struct {
	a, b uint32
}

func newTestSample(v testValue) *sample.Sample {
	s := sample.New(8)
	putValue(s, v)
	s.SetSignalHandle(sample.HandleForSignal("frame-test"))
	s.SetTime(42)
	return s
}

func putValue(s *sample.Sample, v testValue) {
	binary.LittleEndian.PutUint32(s.Bytes()[0:4], v.a)
	binary.LittleEndian.PutUint32(s.Bytes()[4:8], v.b)
}

func getValue(s sample.View) testValue {
	return testValue{
		a: binary.LittleEndian.Uint32(s.Bytes()[0:4]),
		b: binary.LittleEndian.Uint32(s.Bytes()[4:8]),
	}
}

func assertStats(t *testing.T, f *Frame, frameSize, maxSize, validCount int) {
	t.Helper()
	if f.FrameSize() != frameSize {
		t.Errorf("FrameSize() = %d, want %d", f.FrameSize(), frameSize)
	}
	if f.MaxSize() != maxSize {
		t.Errorf("MaxSize() = %d, want %d", f.MaxSize(), maxSize)
	}
	if f.ValidCount() != validCount {
		t.Errorf("ValidCount() = %d, want %d", f.ValidCount(), validCount)
	}
}

func assertValidity(t *testing.T, f *Frame, want ...bool) {
	t.Helper()
	for i, w := range want {
		if f.IsValidSample(i) != w {
			t.Errorf("IsValidSample(%d) = %v, want %v", i, f.IsValidSample(i), w)
		}
	}
}

// TestUnallocatedFrame validates that a frame without memory reports empty, before and
// after analysis.
func TestUnallocatedFrame(t *testing.T) {
	f := New()

	for _, analysed := range []bool{false, true} {
		if analysed {
			f.AnalyseFrame()
		}
		assertStats(t, f, 0, 0, 0)
		if f.IsComplete() {
			t.Errorf("analysed=%v: unallocated frame reported complete", analysed)
		}
		assertValidity(t, f, false)
		if f.IsValidSample(5) {
			t.Errorf("analysed=%v: slot 5 reported valid", analysed)
		}
	}
}

// TestEmptyFrame validates that an allocated but empty frame is complete once analysed.
func TestEmptyFrame(t *testing.T) {
	f := New()
	f.InitMemory(10, 0)

	assertStats(t, f, 0, 10, 0)
	if f.IsComplete() {
		t.Error("un-analysed frame reported complete")
	}
	if f.Sample(0) != nil {
		t.Error("un-analysed frame returned a sample")
	}

	f.AnalyseFrame()

	assertStats(t, f, 0, 10, 0)
	if !f.IsComplete() {
		t.Error("an empty analysed frame is complete")
	}
	if f.IsValidSample(0) || f.IsValidSample(11) {
		t.Error("empty frame reported a valid slot")
	}
	if f.Sample(0) != nil || f.Sample(11) != nil {
		t.Error("empty frame returned a sample")
	}
}

func TestSetSampleOutOfRange(t *testing.T) {
	f := New()
	f.InitMemory(10, 0)

	st := sample.NewStamper()
	s := newTestSample(testValue{1, 2})
	st.Stamp(s, true)

	if err := f.SetSample(s, 11); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	f.AnalyseFrame()
	if f.FrameSize() != 0 {
		t.Errorf("out-of-range write changed frame size to %d", f.FrameSize())
	}
}

// TestFrameAnalysis walks the gap patterns a frame must classify: complete frames, a
// missing first, middle and trailing (unsynced) sample.
func TestFrameAnalysis(t *testing.T) {
	f := New()
	f.InitMemory(10, 0)
	st := sample.NewStamper()
	s := newTestSample(testValue{1, 2})

	set := func(slot int) {
		t.Helper()
		if err := f.SetSample(s, slot); err != nil {
			t.Fatalf("SetSample(%d) failed: %v", slot, err)
		}
	}

	t.Run("one element", func(t *testing.T) {
		st.Stamp(s, true)
		set(0)
		f.AnalyseFrame()

		assertStats(t, f, 1, 10, 1)
		if !f.IsComplete() {
			t.Error("expected complete frame")
		}
		got := f.Sample(0)
		if got == nil {
			t.Fatal("Sample(0) returned nil")
		}
		if got.SignalHandle() != s.SignalHandle() || got.Size() != s.Size() ||
			got.SyncFlag() != s.SyncFlag() || got.FrameID() != s.FrameID() ||
			got.Time() != s.Time() || got.SampleNumber() != s.SampleNumber() {
			t.Error("not all fields were copied")
		}
		if getValue(got) != (testValue{1, 2}) {
			t.Errorf("payload = %+v, want {1 2}", getValue(got))
		}
	})

	t.Run("three elements", func(t *testing.T) {
		st.Stamp(s, false)
		set(0)
		st.Stamp(s, false)
		set(1)
		st.Stamp(s, true)
		set(2)
		f.AnalyseFrame()

		assertStats(t, f, 3, 10, 3)
		if !f.IsComplete() {
			t.Error("expected complete frame")
		}
		assertValidity(t, f, true, true, true)
	})

	t.Run("first missing", func(t *testing.T) {
		st.Stamp(s, false)
		st.Stamp(s, false)
		set(1)
		st.Stamp(s, true)
		set(2)
		f.AnalyseFrame()

		assertStats(t, f, 3, 10, 2)
		if f.IsComplete() {
			t.Error("expected incomplete frame")
		}
		assertValidity(t, f, false, true, true)
	})

	t.Run("second missing", func(t *testing.T) {
		st.Stamp(s, false)
		set(0)
		st.Stamp(s, false)
		st.Stamp(s, true)
		set(2)
		f.AnalyseFrame()

		assertStats(t, f, 3, 10, 2)
		if f.IsComplete() {
			t.Error("expected incomplete frame")
		}
		assertValidity(t, f, true, false, true)
	})

	t.Run("third missing without sync", func(t *testing.T) {
		st.Stamp(s, false)
		set(0)
		st.Stamp(s, false)
		set(1)
		f.AnalyseFrame()

		assertStats(t, f, 3, 10, 2)
		if f.IsComplete() {
			t.Error("expected incomplete frame")
		}
		assertValidity(t, f, true, true, false)
	})

	t.Run("invalidate data", func(t *testing.T) {
		held := f.Sample(1)
		if held == nil {
			t.Fatal("Sample(1) returned nil")
		}

		f.InvalidateData()

		if held.SignalHandle() != (sample.Handle{}) {
			t.Error("handle not cleared")
		}
		if held.Size() != s.Size() {
			t.Errorf("size = %d, want %d kept", held.Size(), s.Size())
		}
		if held.SyncFlag() || held.FrameID() != 0 || held.Time() != 0 || held.SampleNumber() != 0 {
			t.Error("metadata not cleared")
		}
		if getValue(held) != (testValue{}) {
			t.Errorf("payload = %+v, want zero", getValue(held))
		}
		assertStats(t, f, 0, 10, 0)
	})

	t.Run("delete memory", func(t *testing.T) {
		f.DeleteMemory()
		for _, analysed := range []bool{false, true} {
			if analysed {
				f.AnalyseFrame()
			}
			assertStats(t, f, 0, 0, 0)
			if f.IsComplete() {
				t.Error("deleted frame reported complete")
			}
			assertValidity(t, f, false)
		}
	})
}

// TestFrameSizeLastValidSlotWins validates that the frame size follows the highest valid
// slot, not the maximum over all slots.
func TestFrameSizeLastValidSlotWins(t *testing.T) {
	f := New()
	f.InitMemory(6, 0)
	s := newTestSample(testValue{})

	write := func(slot int, id uint64, sync bool) {
		s.SetFrameID(id)
		s.SetSampleNumber(uint16(slot))
		s.SetSyncFlag(sync)
		if err := f.SetSample(s, slot); err != nil {
			t.Fatalf("SetSample(%d) failed: %v", slot, err)
		}
	}

	// slot 1 synced, slot 3 open: the open trailing slot decides.
	write(1, 5, true)
	write(3, 5, false)
	f.AnalyseFrame()
	if f.FrameSize() != 5 {
		t.Errorf("FrameSize() = %d, want 5", f.FrameSize())
	}
	if f.ValidCount() != 2 {
		t.Errorf("ValidCount() = %d, want 2", f.ValidCount())
	}
	if f.FrameID() != 5 {
		t.Errorf("FrameID() = %d, want 5", f.FrameID())
	}
}

// TestSetSampleCopyFailureWipesSlot validates that a failed copy leaves no partial state.
func TestSetSampleCopyFailureWipesSlot(t *testing.T) {
	f := New()
	f.InitMemory(2, 4)

	small := sample.New(4)
	copy(small.Bytes(), []byte{1, 2, 3, 4})
	small.SetFrameID(1)
	small.SetSyncFlag(true)
	if err := f.SetSample(small, 0); err != nil {
		t.Fatalf("SetSample() failed: %v", err)
	}

	big := sample.New(16)
	big.SetFrameID(2)
	if err := f.SetSample(big, 0); !errors.Is(err, sample.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	f.AnalyseFrame()
	if f.IsValidSample(0) {
		t.Error("slot with failed copy reported valid")
	}
	if f.FrameID() != 0 {
		t.Errorf("FrameID() = %d, want 0", f.FrameID())
	}
	if got := f.samples[0].Bytes(); string(got) != string([]byte{0, 0, 0, 0}) {
		t.Errorf("payload not wiped: %v", got)
	}
}

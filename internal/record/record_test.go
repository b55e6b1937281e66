package record

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

var signal = sample.HandleForSignal("record-test")

// buildFrame returns an analysed frame of capacity 4 holding slots 0, 1 and 3 of
// frame 7 (slot 3 sync-flagged).
func buildFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New()
	f.InitMemory(4, 0)

	s := sample.New(3)
	s.SetSignalHandle(signal)
	s.SetFrameID(7)
	for _, slot := range []int{0, 1, 3} {
		copy(s.Bytes(), []byte{byte(slot), 0xAB, 0xCD})
		s.SetTime(int64(1000 + slot))
		s.SetSampleNumber(uint16(slot))
		s.SetSyncFlag(slot == 3)
		if err := f.SetSample(s, slot); err != nil {
			t.Fatalf("SetSample(%d) failed: %v", slot, err)
		}
	}
	f.AnalyseFrame()
	return f
}

func TestFromFrameCopiesValidSlots(t *testing.T) {
	f := buildFrame(t)
	rec := FromFrame(signal, f)

	if rec.Signal != signal.String() || rec.FrameID != 7 || rec.MaxSize != 4 {
		t.Errorf("header = %+v", rec)
	}
	if rec.FrameSize != 4 || rec.ValidCount != 3 || rec.Complete {
		t.Errorf("stats = size %d valid %d complete %v, want 4/3/false",
			rec.FrameSize, rec.ValidCount, rec.Complete)
	}
	if len(rec.Samples) != 3 {
		t.Fatalf("len(Samples) = %d, want 3", len(rec.Samples))
	}
	last := rec.Samples[2]
	if last.Slot != 3 || !last.Sync || last.Time != 1003 || !bytes.Equal(last.Data, []byte{3, 0xAB, 0xCD}) {
		t.Errorf("last entry = %+v", last)
	}

	// the record must not alias frame memory
	f.InvalidateData()
	if !bytes.Equal(rec.Samples[0].Data, []byte{0, 0xAB, 0xCD}) {
		t.Errorf("record data changed with the frame: %v", rec.Samples[0].Data)
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecorder(&buf)
	f := buildFrame(t)

	for i := 0; i < 3; i++ {
		if err := w.ProcessSync(signal, f); err != nil {
			t.Fatalf("ProcessSync() failed: %v", err)
		}
	}
	if w.Written() != 3 {
		t.Errorf("Written() = %d, want 3", w.Written())
	}

	r := NewReader(&buf)
	for i := 0; i < 3; i++ {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next() #%d failed: %v", i, err)
		}
		if rec.FrameID != 7 || len(rec.Samples) != 3 || rec.Samples[1].Slot != 1 {
			t.Errorf("record #%d = %+v", i, rec)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last record, got %v", err)
	}
}

func TestReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecorder(&buf)
	if err := w.ProcessSync(signal, buildFrame(t)); err != nil {
		t.Fatalf("ProcessSync() failed: %v", err)
	}

	cut := buf.Bytes()[:buf.Len()-2]
	if _, err := NewReader(bytes.NewReader(cut)).Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReaderRejectsOversizedRecord(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	if _, err := NewReader(bytes.NewReader(data)).Next(); !errors.Is(err, ErrRecordTooLarge) {
		t.Errorf("expected ErrRecordTooLarge, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRecorderWriteError(t *testing.T) {
	w := NewRecorder(failingWriter{})
	if err := w.ProcessSync(signal, buildFrame(t)); err == nil {
		t.Error("expected write error")
	}
	if w.Written() != 0 {
		t.Errorf("Written() = %d, want 0", w.Written())
	}
}

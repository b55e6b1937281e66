package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	ddb "github.com/audi/fep-participant-sub006"
	"github.com/audi/fep-participant-sub006/internal/config"
	"github.com/audi/fep-participant-sub006/internal/incident"
	"github.com/audi/fep-participant-sub006/internal/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPayloadRoundTrip(t *testing.T) {
	b := make([]byte, payloadSize)
	sent := time.Unix(1700000000, 123456789)
	encodePayload(b, 42, sent, 7)

	seq, got, client, ok := decodePayload(b)
	if !ok || seq != 42 || !got.Equal(sent) || client != 7 {
		t.Errorf("decodePayload = %d %v %d %v", seq, got, client, ok)
	}
	if _, _, _, ok := decodePayload(b[:payloadSize-1]); ok {
		t.Error("short payload decoded")
	}
}

func TestNewSenderRejectsSmallSamples(t *testing.T) {
	buf := ddb.New(ddb.WithIncidentSink(incident.NewRecorder()))
	defer buf.Close()

	cfg := config.SenderConfig{PeriodMS: 1, SamplesPerFrame: 1, Frames: 1}
	if _, err := newSender(buf, ddb.HandleForSignal("s"), cfg, payloadSize-1, discardLogger()); err == nil {
		t.Error("expected error for a sample size below the payload")
	}
	if _, err := newSender(buf, ddb.HandleForSignal("s"), cfg, 0, discardLogger()); err != nil {
		t.Errorf("dynamic samples rejected: %v", err)
	}
}

func TestSenderDeliversFrames(t *testing.T) {
	rec := incident.NewRecorder()
	buf := ddb.New(ddb.WithIncidentSink(rec), ddb.WithLogger(discardLogger()))
	defer buf.Close()

	signal := ddb.HandleForSignal("VehicleState")
	if err := buf.CreateEntry(signal, 2, ddb.WithSampleSize(32)); err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	stats := newSyncStats()
	buf.RegisterSyncListener(stats)

	cfg := config.SenderConfig{PeriodMS: 1, SamplesPerFrame: 2, Frames: 3}
	p, err := newSender(buf, signal, cfg, 32, discardLogger())
	if err != nil {
		t.Fatalf("newSender() failed: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	waitDrained(buf, time.Second)

	b := buf.Stats()
	if b.Updates != 6 || b.Rotations != 3 {
		t.Errorf("buffer stats = %+v", b)
	}
	s := stats.Snapshot()
	if s.LastFrame != 3 {
		t.Errorf("last frame = %d, want 3", s.LastFrame)
	}
	if s.Incomplete != 0 || s.Complete != s.Frames {
		t.Errorf("consumer stats = %+v", s)
	}
	if b.Dispatched != s.Frames {
		t.Errorf("dispatched %d, listener saw %d", b.Dispatched, s.Frames)
	}
	if rec.CountCode(incident.RxOverrun) != 0 {
		t.Errorf("unexpected overruns: %+v", rec.Incidents())
	}
}

func TestSenderStopsOnCancel(t *testing.T) {
	buf := ddb.New(ddb.WithIncidentSink(incident.NewRecorder()), ddb.WithLogger(discardLogger()))
	defer buf.Close()

	signal := ddb.HandleForSignal("s")
	buf.CreateEntry(signal, 1)

	p, err := newSender(buf, signal, config.SenderConfig{PeriodMS: 1, SamplesPerFrame: 1}, 0, discardLogger())
	if err != nil {
		t.Fatalf("newSender() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
}

func TestRecordingStopsBeforeFileCloses(t *testing.T) {
	buf := ddb.New(ddb.WithIncidentSink(incident.NewRecorder()), ddb.WithLogger(discardLogger()))
	defer buf.Close()

	signal := ddb.HandleForSignal("VehicleState")
	if err := buf.CreateEntry(signal, 2); err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "capture.ddb")
	stop, err := startRecording(buf, path, discardLogger())
	if err != nil {
		t.Fatalf("startRecording() failed: %v", err)
	}

	p, err := newSender(buf, signal, config.SenderConfig{PeriodMS: 1, SamplesPerFrame: 2, Frames: 2}, 0, discardLogger())
	if err != nil {
		t.Fatalf("newSender() failed: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	waitDrained(buf, time.Second)
	dispatched := buf.Stats().Dispatched

	stop()

	// frames after stop must not reach the closed file
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	waitDrained(buf, time.Second)
	if got := buf.Stats().ListenerErrors; got != 0 {
		t.Errorf("ListenerErrors = %d, want 0", got)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer f.Close()

	r := record.NewReader(f)
	var n uint64
	for {
		if _, err := r.Next(); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Next() failed: %v", err)
			}
			break
		}
		n++
	}
	if n != dispatched {
		t.Errorf("recorded %d frames, want %d", n, dispatched)
	}
}

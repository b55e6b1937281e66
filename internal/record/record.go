// Package record captures delivered frames for offline analysis.
//
// A capture is a sequence of records, each framed as a 4-byte big-endian length
// followed by a msgpack document.
package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/audi/fep-participant-sub006/internal/frame"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

// maxRecordSize bounds a single record on read; larger length prefixes mean a corrupt
// capture.
const maxRecordSize = 64 << 20

// ErrRecordTooLarge is returned by Reader.Next for a length prefix above the limit.
var ErrRecordTooLarge = errors.New("record: record exceeds size limit")

// Record is one delivered frame.
type Record struct {
	Signal     string    `msgpack:"signal"`
	FrameID    uint64    `msgpack:"frame_id"`
	MaxSize    int       `msgpack:"max_size"`
	FrameSize  int       `msgpack:"frame_size"`
	ValidCount int       `msgpack:"valid_count"`
	Complete   bool      `msgpack:"complete"`
	Received   time.Time `msgpack:"received"`
	Samples    []Entry   `msgpack:"samples"`
}

// Entry is one valid slot of a recorded frame.
type Entry struct {
	Slot         int    `msgpack:"slot"`
	Time         int64  `msgpack:"time"`
	SampleNumber uint16 `msgpack:"sample_number"`
	Sync         bool   `msgpack:"sync"`
	Data         []byte `msgpack:"data"`
}

// FromFrame copies the valid slots of f into a Record. The result does not reference
// frame memory and may outlive the listener callback.
func FromFrame(signal sample.Handle, f frame.View) Record {
	rec := Record{
		Signal:     signal.String(),
		FrameID:    f.FrameID(),
		MaxSize:    f.MaxSize(),
		FrameSize:  f.FrameSize(),
		ValidCount: f.ValidCount(),
		Complete:   f.IsComplete(),
		Received:   time.Now(),
		Samples:    make([]Entry, 0, f.ValidCount()),
	}
	for i := 0; i < f.MaxSize(); i++ {
		s := f.Sample(i)
		if s == nil {
			continue
		}
		rec.Samples = append(rec.Samples, Entry{
			Slot:         i,
			Time:         s.Time(),
			SampleNumber: s.SampleNumber(),
			Sync:         s.SyncFlag(),
			Data:         append([]byte(nil), s.Bytes()...),
		})
	}
	return rec
}

// Recorder is a sync listener writing every delivered frame to w.
type Recorder struct {
	mu      sync.Mutex
	w       io.Writer
	written uint64
}

func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// ProcessSync records f. Write errors are returned to the buffer, which reports them
// as listener failures.
func (r *Recorder) ProcessSync(signal sample.Handle, f frame.View) error {
	return r.Write(FromFrame(signal, f))
}

// Write appends one record.
func (r *Recorder) Write(rec Record) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write record length: %w", err)
	}
	if _, err := r.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	r.written++
	return nil
}

// Written returns the number of records written so far.
func (r *Recorder) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Reader reads records written by a Recorder.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF after the last one. A capture cut off inside
// a record yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		return Record{}, err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxRecordSize {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}

	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

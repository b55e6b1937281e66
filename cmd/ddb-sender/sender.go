package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ddb "github.com/audi/fep-participant-sub006"
	"github.com/audi/fep-participant-sub006/internal/config"
)

// payloadSize is the stimulus payload: sequence, send time, client id.
const payloadSize = 24

// sender plays the transmission side: every period it pushes one frame of
// stamped samples into the buffer.
type sender struct {
	buf     ddb.Buffer
	signal  ddb.Handle
	cfg     config.SenderConfig
	logger  *slog.Logger
	stamper *ddb.Stamper
	sample  *ddb.Sample
	client  uint64
	start   time.Time
	seq     uint64
}

func newSender(buf ddb.Buffer, signal ddb.Handle, cfg config.SenderConfig, sampleSize int, logger *slog.Logger) (*sender, error) {
	var s *ddb.Sample
	switch {
	case sampleSize == 0:
		s = ddb.NewSample(payloadSize)
	case sampleSize < payloadSize:
		return nil, fmt.Errorf("buffer.sample_size %d too small for the %d byte stimulus", sampleSize, payloadSize)
	default:
		s = ddb.NewFixedSample(sampleSize)
	}
	s.SetSignalHandle(signal)

	id := uuid.New()
	return &sender{
		buf:     buf,
		signal:  signal,
		cfg:     cfg,
		logger:  logger.With("component", "sender"),
		stamper: ddb.NewStamper(),
		sample:  s,
		client:  binary.BigEndian.Uint64(id[:8]),
	}, nil
}

// Run sends frames until ctx is cancelled or cfg.Frames frames went out.
func (p *sender) Run(ctx context.Context) error {
	period := time.Duration(p.cfg.PeriodMS) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	p.start = time.Now()
	p.logger.Info("sender started", "period", period, "samples_per_frame", p.cfg.SamplesPerFrame)

	for sent := 0; p.cfg.Frames == 0 || sent < p.cfg.Frames; sent++ {
		select {
		case <-ctx.Done():
			p.logger.Info("sender cancelled", "frames_sent", sent)
			return ctx.Err()
		case <-ticker.C:
		}
		if err := p.sendFrame(); err != nil {
			return err
		}
	}

	p.logger.Info("sender finished", "frames_sent", p.cfg.Frames)
	return nil
}

func (p *sender) sendFrame() error {
	n := p.cfg.SamplesPerFrame
	for i := 0; i < n; i++ {
		now := time.Now()
		encodePayload(p.sample.Bytes(), p.seq, now, p.client)
		p.sample.SetTime(now.Sub(p.start).Microseconds())
		p.stamper.Stamp(p.sample, i == n-1)
		p.seq++

		if err := p.buf.Update(p.sample); err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
	}
	return nil
}

func encodePayload(b []byte, seq uint64, sent time.Time, client uint64) {
	binary.BigEndian.PutUint64(b[0:8], seq)
	binary.BigEndian.PutUint64(b[8:16], uint64(sent.UnixNano()))
	binary.BigEndian.PutUint64(b[16:24], client)
}

func decodePayload(b []byte) (seq uint64, sent time.Time, client uint64, ok bool) {
	if len(b) < payloadSize {
		return 0, time.Time{}, 0, false
	}
	seq = binary.BigEndian.Uint64(b[0:8])
	sent = time.Unix(0, int64(binary.BigEndian.Uint64(b[8:16])))
	client = binary.BigEndian.Uint64(b[16:24])
	return seq, sent, client, true
}

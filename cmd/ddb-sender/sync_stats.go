package main

import (
	"sync"
	"time"

	ddb "github.com/audi/fep-participant-sub006"
)

// SyncStatsSnapshot is a copy of the listener's counters.
type SyncStatsSnapshot struct {
	Frames     uint64
	Complete   uint64
	Incomplete uint64
	Gaps       uint64 // frame ids skipped between two deliveries
	LastFrame  uint64
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
}

// syncStats is a sync listener measuring what consumers actually see:
// completeness, skipped frames and send-to-delivery latency of the last
// sample of each frame.
type syncStats struct {
	mu           sync.Mutex
	s            SyncStatsSnapshot
	totalLatency time.Duration
	latencyCount int64
	now          func() time.Time
}

func newSyncStats() *syncStats {
	return &syncStats{now: time.Now}
}

func (st *syncStats) ProcessSync(_ ddb.Handle, f ddb.Frame) error {
	id := f.FrameID()
	complete := f.IsComplete()

	var sent time.Time
	var haveLatency bool
	for i := f.MaxSize() - 1; i >= 0; i-- {
		if !f.IsValidSample(i) {
			continue
		}
		if _, t, _, ok := decodePayload(f.Sample(i).Bytes()); ok {
			sent, haveLatency = t, true
		}
		break
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.Frames++
	if complete {
		st.s.Complete++
	} else {
		st.s.Incomplete++
	}
	if st.s.LastFrame != 0 && id > st.s.LastFrame+1 {
		st.s.Gaps += id - st.s.LastFrame - 1
	}
	st.s.LastFrame = id

	if haveLatency {
		lat := st.now().Sub(sent)
		if st.latencyCount == 0 || lat < st.s.MinLatency {
			st.s.MinLatency = lat
		}
		if lat > st.s.MaxLatency {
			st.s.MaxLatency = lat
		}
		st.totalLatency += lat
		st.latencyCount++
	}
	return nil
}

// Snapshot returns the current counters.
func (st *syncStats) Snapshot() SyncStatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.s
	if st.latencyCount > 0 {
		s.AvgLatency = st.totalLatency / time.Duration(st.latencyCount)
	}
	return s
}

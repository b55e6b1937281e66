package incident

import (
	"sync"
	"time"
)

// Recorder keeps every incident in memory. It is used by tests and by tooling that
// wants to count incidents after a run.
type Recorder struct {
	mu        sync.Mutex
	cond      *sync.Cond
	incidents []Incident
}

func NewRecorder() *Recorder {
	r := &Recorder{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Recorder) Notify(in Incident) {
	r.mu.Lock()
	r.incidents = append(r.incidents, in)
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Count returns the number of recorded incidents.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.incidents)
}

// CountCode returns the number of recorded incidents with the given code.
func (r *Recorder) CountCode(code Code) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, in := range r.incidents {
		if in.Code == code {
			n++
		}
	}
	return n
}

// Incidents returns a copy of the recorded incidents in arrival order.
func (r *Recorder) Incidents() []Incident {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Incident, len(r.incidents))
	copy(out, r.incidents)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.incidents = nil
	r.mu.Unlock()
}

// Wait blocks until at least n incidents were recorded or the timeout elapses.
// It reports whether the count was reached.
func (r *Recorder) Wait(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.incidents) < n {
		if !time.Now().Before(deadline) {
			return false
		}
		r.cond.Wait()
	}
	return true
}

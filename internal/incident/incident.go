// Package incident carries the notifications the distributed data buffer raises while
// receiving and delivering data. Incidents are purely observational: raising one never
// changes the buffer's control flow.
package incident

import (
	"time"

	"github.com/google/uuid"
)

// Code classifies an incident. Values follow the participant incident table.
type Code int16

const (
	// GeneralWarning covers signal-handle mismatches and listener-reported errors.
	GeneralWarning Code = 3
	// RxOverrun: a sample did not fit into the buffer or could not be copied.
	RxOverrun Code = 50
	// NotInitialized: data received before the buffer was configured.
	NotInitialized Code = 51
	// RxAbortSync: a frame was aborted (incomplete under drop policy, or superseded
	// before it could be dispatched).
	RxAbortSync Code = 53
	// RxAbortManual: a frame was superseded while a consumer held a manual data lock.
	RxAbortManual Code = 54
)

func (c Code) String() string {
	switch c {
	case GeneralWarning:
		return "general_warning"
	case RxOverrun:
		return "ddb_rx_overrun"
	case NotInitialized:
		return "ddb_not_initialized"
	case RxAbortSync:
		return "ddb_rx_abort_sync"
	case RxAbortManual:
		return "ddb_rx_abort_manual"
	default:
		return "unknown"
	}
}

// Severity of an incident.
type Severity int

const (
	Info Severity = iota
	Warning
	CriticalLocal
	CriticalGlobal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case CriticalLocal:
		return "critical_local"
	case CriticalGlobal:
		return "critical_global"
	default:
		return "unknown"
	}
}

// Incident is one notification.
type Incident struct {
	ID          uuid.UUID `msgpack:"id"`
	Code        Code      `msgpack:"code"`
	Severity    Severity  `msgpack:"severity"`
	Description string    `msgpack:"description"`
	Source      string    `msgpack:"source"`
	Time        time.Time `msgpack:"time"`
}

// New stamps a fresh incident with an id and the current time.
func New(code Code, severity Severity, source, description string) Incident {
	return Incident{
		ID:          uuid.New(),
		Code:        code,
		Severity:    severity,
		Description: description,
		Source:      source,
		Time:        time.Now(),
	}
}

// Sink receives incidents. Implementations must be safe for concurrent use and must
// not block for long: Notify is called from producer callbacks and the dispatch loop.
type Sink interface {
	Notify(Incident)
}

// NotifyFunc adapts a function to the Sink interface.
type NotifyFunc func(Incident)

func (f NotifyFunc) Notify(in Incident) { f(in) }

// Multi fans out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Notify(in Incident) {
	for _, s := range m {
		s.Notify(in)
	}
}

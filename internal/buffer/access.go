package buffer

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/audi/fep-participant-sub006/internal/frame"
)

// LockData takes a shared hold on the Read frame and returns it.
//
// The frame stays valid until the matching UnlockData. While the hold is outstanding
// the dispatch goroutine cannot rotate, so new frames pile up in Stock and supersede
// each other (see Update). A pending rotation also blocks further LockData calls
// (sync.RWMutex is writer-preferring): calling LockData twice from one goroutine
// without UnlockData in between may deadlock.
//
// Returns ErrEmpty, without a hold, when no frame was delivered yet.
func (b *Buffer) LockData() (frame.View, error) {
	b.readMu.RLock()
	if b.read.MaxSize() == 0 || b.read.FrameSize() == 0 {
		b.readMu.RUnlock()
		return nil, ErrEmpty
	}
	b.sharedLocks.Add(1)
	return b.read, nil
}

// UnlockData releases one hold taken by LockData.
func (b *Buffer) UnlockData() error {
	for {
		n := b.sharedLocks.Load()
		if n <= 0 {
			return ErrNotLocked
		}
		if b.sharedLocks.CompareAndSwap(n, n-1) {
			b.readMu.RUnlock()
			return nil
		}
	}
}

// RegisterSyncListener appends l to the listener list. Registration from another
// goroutine waits for an in-progress dispatch to finish; from inside a callback it
// takes effect with the next frame.
//
// Returns ErrInvalidArgument when l's dynamic type is not comparable.
func (b *Buffer) RegisterSyncListener(l SyncListener) error {
	if l == nil {
		return ErrNilListener
	}
	if !reflect.TypeOf(l).Comparable() {
		return fmt.Errorf("%w: listener type %T is not comparable", ErrInvalidArgument, l)
	}

	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	// copy on write: deliver may be ranging over the current slice
	b.listeners = append(b.listeners[:len(b.listeners):len(b.listeners)], l)
	return nil
}

// UnregisterSyncListener removes every registration of l. Like registration, it waits
// behind an in-progress dispatch unless called from a callback.
func (b *Buffer) UnregisterSyncListener(l SyncListener) error {
	if l == nil {
		return ErrNilListener
	}
	if !reflect.TypeOf(l).Comparable() {
		return ErrListenerNotFound
	}

	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	kept := make([]SyncListener, 0, len(b.listeners))
	for _, registered := range b.listeners {
		if registered != l {
			kept = append(kept, registered)
		}
	}
	if len(kept) == len(b.listeners) {
		return ErrListenerNotFound
	}
	b.listeners = kept
	return nil
}

// reentrantMutex is a mutex the holding goroutine may lock again. It guards the
// listener list, which the dispatch goroutine holds across a whole delivery while
// listeners call back into the registry.
type reentrantMutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (m *reentrantMutex) Lock() {
	id := goid.Get()
	if m.owner.Load() == id {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

func (m *reentrantMutex) Unlock() {
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

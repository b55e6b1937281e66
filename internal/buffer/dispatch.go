package buffer

import (
	"context"
	"fmt"

	"github.com/audi/fep-participant-sub006/internal/incident"
)

// startDispatch spawns the dispatch goroutine. Requires lifeMu.
func (b *Buffer) startDispatch() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.wg.Add(1)
	go b.dispatchLoop(ctx)
}

// stopDispatch cancels the dispatch goroutine, wakes it if it is waiting and joins it.
// Requires lifeMu. No-op when no goroutine is running.
func (b *Buffer) stopDispatch() {
	if b.cancel == nil {
		return
	}
	b.cancel()

	b.wakeMu.Lock()
	b.wakeCond.Broadcast()
	b.wakeMu.Unlock()

	b.wg.Wait()
	b.cancel = nil
}

// signalFrameReady wakes the dispatch goroutine. Requires stockMu.
func (b *Buffer) signalFrameReady() {
	b.wakeMu.Lock()
	b.wake = true
	b.wakeCond.Signal()
	b.wakeMu.Unlock()
}

func (b *Buffer) clearWake() {
	b.wakeMu.Lock()
	b.wake = false
	b.wakeMu.Unlock()
}

// dispatchLoop moves Stock to Read and runs the listeners, once per wake-up.
//
// Algorithm:
//  1. Wait for a wake-up (sync.Cond) or cancellation
//  2. Take readMu exclusively and swap Stock↔Read
//  3. Re-acquire readMu shared and call every listener in registration order
//
// Only this goroutine swaps Read, so releasing the exclusive lock before taking the
// shared one cannot expose a different frame to the listeners.
//
// Exits on cancellation without draining a frame still waiting in Stock.
func (b *Buffer) dispatchLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		b.wakeMu.Lock()
		for !b.wake && ctx.Err() == nil {
			b.wakeCond.Wait()
		}
		if ctx.Err() != nil {
			b.wakeMu.Unlock()
			return
		}
		b.wake = false
		b.wakeMu.Unlock()

		b.readMu.Lock()
		err := b.switchReadBuffer()
		b.readMu.Unlock()
		if err != nil {
			// Reset or reconfiguration emptied Stock after the wake-up.
			b.logger.Debug("ddb read switch skipped", "error", err)
			continue
		}

		b.deliver()
	}
}

func (b *Buffer) deliver() {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	b.readMu.RLock()
	defer b.readMu.RUnlock()

	for _, l := range b.listeners {
		b.invoke(l)
	}
	b.stats.dispatched.Add(1)
}

// invoke runs one listener. Errors and panics are reported and never stop the loop.
func (b *Buffer) invoke(l SyncListener) {
	defer func() {
		if r := recover(); r != nil {
			b.listenerFailed(fmt.Errorf("listener panic: %v", r))
		}
	}()

	if err := l.ProcessSync(b.signal, b.read); err != nil {
		b.listenerFailed(err)
	}
}

func (b *Buffer) listenerFailed(err error) {
	b.stats.listenerErrors.Add(1)
	b.logger.Warn("ddb sync listener failed", "signal", b.signal.String(), "error", err)
	b.notify(incident.GeneralWarning, incident.Warning,
		fmt.Sprintf("process sync: an error was reported by the listener: %v", err))
}

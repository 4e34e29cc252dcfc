package common

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned when an engine entry point is invoked while a
// prior invocation is still in flight, including re-entry from an external
// token or oracle callback.
var ErrReentrantCall = errors.New("reentrant call")

// Guard is a non-blocking mutual-exclusion latch wrapped around every
// externally callable engine operation. External collaborators run as the last
// effect of an operation, so any call arriving while the latch is held is a
// re-entry attempt and is rejected rather than queued.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// Enter acquires the latch or reports ErrReentrantCall.
func (g *Guard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return ErrReentrantCall
	}
	g.busy = true
	return nil
}

// Exit releases the latch. Callers must only defer Exit after a successful
// Enter.
func (g *Guard) Exit() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

package stream

import (
	"sync"
	"time"
)

// AfterFuncTimer implements Timer on top of time.AfterFunc
type AfterFuncTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewTimer creates an idle timer
func NewTimer() *AfterFuncTimer {
	return &AfterFuncTimer{}
}

// Start invokes callback once after d, replacing any pending callback
func (t *AfterFuncTimer) Start(callback func(), d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, callback)
}

// Stop cancels a pending callback, if any
func (t *AfterFuncTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

package registry

import (
	"sync"
	"time"
)

// timerKind distinguishes the per-agent timer families.
type timerKind int

const (
	timerWaiting    timerKind = iota // debounce before declaring waiting
	timerStall                       // outstanding tool past threshold
	timerCompletion                  // delayed tool-finished emission
)

// timerKey identifies one timer. toolID is only set for completion
// timers, which may run concurrently for different tools of one agent.
type timerKey struct {
	agentID string
	kind    timerKind
	toolID  string
}

// timerTable owns every pending timer, keyed by (agent, kind, tool).
// Arming is cancel-and-replace; removing an agent cancels all its keys
// synchronously. Cancellation is always explicit -- stale closures are
// never left to fire into a removed agent.
type timerTable struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func newTimerTable() *timerTable {
	return &timerTable{timers: make(map[timerKey]*time.Timer)}
}

// Arm schedules fn after d, first cancelling any existing timer with the
// same key.
func (t *timerTable) Arm(key timerKey, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.timers[key]; ok {
		existing.Stop()
	}
	t.timers[key] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		fn()
	})
}

func (t *timerTable) Cancel(key timerKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.timers[key]; ok {
		existing.Stop()
		delete(t.timers, key)
	}
}

// CancelAgent stops every timer keyed to the given agent.
func (t *timerTable) CancelAgent(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		if key.agentID == agentID {
			timer.Stop()
			delete(t.timers, key)
		}
	}
}

// pendingCount reports timers outstanding for an agent. Test helper.
func (t *timerTable) pendingCount(agentID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key := range t.timers {
		if key.agentID == agentID {
			n++
		}
	}
	return n
}

// Package registry owns the per-agent state records and is the only
// place that mutates them. It routes tailed log lines to each agent's
// provider parser, applies the resulting actions to the agent's tool and
// turn state, and pushes normalized events to the sink, debounced and
// delayed through the timer table.
package registry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/agent-pulse/backend/internal/provider"
	"github.com/agent-pulse/backend/internal/status"
	"github.com/agent-pulse/backend/internal/tail"
)

// Timings are the debounce/delay knobs applied per agent.
type Timings struct {
	// WaitingDebounce declares an agent waiting this long after a
	// text-only assistant record unless newer activity cancels it.
	WaitingDebounce time.Duration

	// StallAfter flags permissionPending once a non-exempt tool has been
	// outstanding this long without a completion.
	StallAfter time.Duration

	// CompletionDelay separates a detected tool completion from the
	// emitted finished event, smoothing flicker on fast tool chains.
	CompletionDelay time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		WaitingDebounce: 2 * time.Second,
		StallAfter:      30 * time.Second,
		CompletionDelay: 300 * time.Millisecond,
	}
}

type Registry struct {
	mu      sync.RWMutex
	agents  map[string]*Agent
	byPath  map[string]string // logPath -> agentID
	timers  *timerTable
	sink    status.Sink
	timings Timings
}

func New(sink status.Sink, timings Timings) *Registry {
	if timings.WaitingDebounce <= 0 {
		timings.WaitingDebounce = DefaultTimings().WaitingDebounce
	}
	if timings.StallAfter <= 0 {
		timings.StallAfter = DefaultTimings().StallAfter
	}
	if timings.CompletionDelay < 0 {
		timings.CompletionDelay = DefaultTimings().CompletionDelay
	}
	return &Registry{
		agents:  make(map[string]*Agent),
		byPath:  make(map[string]string),
		timers:  newTimerTable(),
		sink:    sink,
		timings: timings,
	}
}

// Add registers a new agent. If resume is true the cursor starts at the
// file's current end so history is not replayed; otherwise tailing starts
// from byte 0. The log file does not need to exist yet.
func (r *Registry) Add(id, providerID, logPath, workingDir string, resume bool) {
	a := &Agent{
		id:         id,
		providerID: providerID,
		logPath:    logPath,
		workingDir: workingDir,
		parser:     provider.New(providerID),
		turnState:  status.Waiting,
	}
	if resume {
		a.cursor = tail.AtEnd(logPath)
	}

	r.mu.Lock()
	r.agents[id] = a
	if logPath != "" {
		r.byPath[logPath] = id
	}
	r.mu.Unlock()

	log.Printf("[registry] Tracking agent %s (provider=%s, log=%s, offset=%d)", id, providerID, logPath, a.cursor.Offset)
}

// Remove deletes an agent and synchronously cancels every timer keyed to
// it. A timer callback that was already in flight finds the record marked
// removed and becomes a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
		if a.logPath != "" && r.byPath[a.logPath] == id {
			delete(r.byPath, a.logPath)
		}
		// Mark removed before releasing the registry lock: a callback
		// that resolved the record earlier finds the flag set once it
		// wins a.mu, and cannot emit or arm anything afterwards.
		a.mu.Lock()
		a.removed = true
		a.mu.Unlock()
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	// Cancelled last: an in-flight callback that was still arming timers
	// finished before the removed flag was set above, so nothing can be
	// armed after this sweep.
	r.timers.CancelAgent(id)

	log.Printf("[registry] Removed agent %s", id)
}

// AgentForPath resolves a log file path to the agent currently assigned
// to it.
func (r *Registry) AgentForPath(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok
}

// IDs returns all tracked agent ids, sorted for deterministic iteration.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// withAgent runs fn holding the agent's mutex, serializing it against
// every other callback for the same id. Missing or removed agents are a
// no-op.
func (r *Registry) withAgent(id string, fn func(a *Agent)) {
	r.mu.RLock()
	a, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removed {
		return
	}
	fn(a)
}

// Tail reads any new bytes from the agent's log and applies the parsed
// actions. Safe to call redundantly: with no new data it does nothing,
// so notification and poll triggers may overlap freely.
func (r *Registry) Tail(id string) {
	r.withAgent(id, func(a *Agent) {
		r.tailLocked(a)
	})
}

func (r *Registry) tailLocked(a *Agent) {
	lines, cur, err := tail.ReadNew(a.logPath, a.cursor)
	if err != nil {
		log.Printf("[registry] tail error for %s: %v", a.id, err)
		return
	}
	if cur.Offset < a.cursor.Offset {
		log.Printf("[registry] %s truncated, replaying from start", a.logPath)
	}
	a.cursor = cur

	for _, line := range lines {
		actions := a.parser.ParseLine(line)
		if len(actions) == 0 && !json.Valid(line) {
			// Malformed line: skip it, keep parsing at the next one.
			a.malformedLines++
			continue
		}
		for _, act := range actions {
			r.applyLocked(a, act)
		}
	}
}

// Reassign rebinds an agent to a newly discovered log file. Tool and
// turn state reset to neutral, with a cleared/active event pair so the
// sink reflects reality, and tailing restarts from byte 0.
func (r *Registry) Reassign(id, newPath string) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if ok {
		if a.logPath != "" && r.byPath[a.logPath] == id {
			delete(r.byPath, a.logPath)
		}
		r.byPath[newPath] = id
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removed {
		return
	}

	// Cancelled under a.mu: an in-flight tail callback cannot leave a
	// stale timer behind, because arming requires the lock we now hold.
	r.timers.CancelAgent(id)

	log.Printf("[registry] Reassigning agent %s: %s -> %s", id, a.logPath, newPath)

	a.logPath = newPath
	a.cursor = tail.Cursor{}
	a.activeTools = nil
	a.permissionPending = false
	a.hadToolsThisTurn = false
	a.turnState = status.Active

	r.emit(a, status.Event{AgentID: a.id, Type: status.EventToolsCleared})
	r.emit(a, status.Event{AgentID: a.id, Type: status.EventStatusActive})

	r.tailLocked(a)
}

// applyLocked applies one parsed action to the agent. Caller holds a.mu.
func (r *Registry) applyLocked(a *Agent, act provider.Action) {
	switch act.Kind {
	case provider.ActionToolStart:
		// Already-active ids are suppressed; this also absorbs replays
		// after a truncation reset.
		if a.toolIndex(act.ToolID) >= 0 {
			return
		}
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerWaiting})
		a.activeTools = append(a.activeTools, status.ToolInfo{
			ID:     act.ToolID,
			Name:   act.ToolName,
			Status: act.Status,
		})
		a.hadToolsThisTurn = true
		r.setActiveLocked(a)
		r.emit(a, status.Event{
			AgentID: a.id,
			Type:    status.EventToolStarted,
			ToolID:  act.ToolID,
			Status:  act.Status,
		})
		if !act.Exempt {
			r.armStallLocked(a)
		}

	case provider.ActionToolDone:
		// Unmatched completions are ignored.
		if a.toolIndex(act.ToolID) < 0 {
			return
		}
		id, toolID := a.id, act.ToolID
		r.timers.Arm(timerKey{agentID: id, kind: timerCompletion, toolID: toolID},
			r.timings.CompletionDelay, func() {
				r.finishTool(id, toolID)
			})

	case provider.ActionTurnEnd:
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerWaiting})
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerStall})
		a.permissionPending = false
		r.setWaitingLocked(a)

	case provider.ActionAssistantText:
		r.setActiveLocked(a)
		id := a.id
		r.timers.Arm(timerKey{agentID: id, kind: timerWaiting},
			r.timings.WaitingDebounce, func() {
				r.waitingDebounceFired(id)
			})

	case provider.ActionUserPrompt:
		// New prompt: outstanding tools belong to the previous turn.
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerWaiting})
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerStall})
		for _, t := range a.activeTools {
			r.timers.Cancel(timerKey{agentID: a.id, kind: timerCompletion, toolID: t.ID})
		}
		a.activeTools = nil
		a.hadToolsThisTurn = false
		a.permissionPending = false
		r.emit(a, status.Event{AgentID: a.id, Type: status.EventToolsCleared})

	case provider.ActionStatusActive:
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerWaiting})
		r.setActiveLocked(a)

	case provider.ActionStatusWaiting:
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerWaiting})
		r.timers.Cancel(timerKey{agentID: a.id, kind: timerStall})
		a.permissionPending = false
		r.setWaitingLocked(a)
	}
}

// finishTool runs when a delayed-completion timer fires.
func (r *Registry) finishTool(id, toolID string) {
	r.withAgent(id, func(a *Agent) {
		if !a.removeTool(toolID) {
			return
		}
		r.emit(a, status.Event{AgentID: a.id, Type: status.EventToolFinished, ToolID: toolID})
		if len(a.activeTools) == 0 {
			r.timers.Cancel(timerKey{agentID: a.id, kind: timerStall})
			a.permissionPending = false
			r.setWaitingLocked(a)
		}
	})
}

// waitingDebounceFired runs when the waiting debounce elapses with no
// newer activity.
func (r *Registry) waitingDebounceFired(id string) {
	r.withAgent(id, func(a *Agent) {
		if len(a.activeTools) > 0 {
			return
		}
		r.setWaitingLocked(a)
	})
}

// armStallLocked starts (or restarts) the stall timer for an agent with
// a non-exempt tool outstanding.
func (r *Registry) armStallLocked(a *Agent) {
	id := a.id
	r.timers.Arm(timerKey{agentID: id, kind: timerStall}, r.timings.StallAfter, func() {
		r.withAgent(id, func(a *Agent) {
			if len(a.activeTools) == 0 {
				return
			}
			a.permissionPending = true
			log.Printf("[registry] Agent %s may be blocked on a confirmation (tool %s outstanding)",
				a.id, a.activeTools[0].Name)
		})
	})
}

func (r *Registry) setActiveLocked(a *Agent) {
	if a.turnState == status.Active {
		return
	}
	a.turnState = status.Active
	r.emit(a, status.Event{AgentID: a.id, Type: status.EventStatusActive})
}

func (r *Registry) setWaitingLocked(a *Agent) {
	if a.turnState == status.Waiting {
		return
	}
	a.turnState = status.Waiting
	r.emit(a, status.Event{AgentID: a.id, Type: status.EventStatusWaiting})
}

func (r *Registry) emit(a *Agent, ev status.Event) {
	ev.Timestamp = time.Now()
	a.lastEventAt = ev.Timestamp
	if r.sink != nil {
		r.sink.Event(ev)
	}
}

// Snapshot copies the externally visible state of every agent, sorted by
// id.
func (r *Registry) Snapshot() []Snapshot {
	ids := r.IDs()
	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		r.withAgent(id, func(a *Agent) {
			snaps = append(snaps, a.snapshotLocked())
		})
	}
	return snaps
}

// Get returns a snapshot of one agent.
func (r *Registry) Get(id string) (Snapshot, bool) {
	var snap Snapshot
	found := false
	r.withAgent(id, func(a *Agent) {
		snap = a.snapshotLocked()
		found = true
	})
	return snap, found
}

// SetProcessInfo records process enrichment for any agent whose working
// directory matches. Enrichment never generates events.
func (r *Registry) SetProcessInfo(byDir map[string]ProcessInfo) {
	for _, id := range r.IDs() {
		r.withAgent(id, func(a *Agent) {
			if info, ok := byDir[a.workingDir]; ok {
				a.pid = info.PID
				a.cpuActive = info.CPUActive
			} else {
				a.pid = 0
				a.cpuActive = false
			}
		})
	}
}

// ProcessInfo is the per-working-directory enrichment supplied by the
// process probe.
type ProcessInfo struct {
	PID       int32
	CPUActive bool
}

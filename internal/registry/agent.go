package registry

import (
	"sync"
	"time"

	"github.com/agent-pulse/backend/internal/provider"
	"github.com/agent-pulse/backend/internal/status"
	"github.com/agent-pulse/backend/internal/tail"
)

// Agent is the mutable state record for one tracked agent. All mutation
// happens under mu, which serializes the agent's tail/parse/timer
// callbacks: no two callbacks for the same agent run concurrently.
type Agent struct {
	mu      sync.Mutex
	removed bool // set during Remove; late callbacks check and bail

	id         string
	providerID string
	logPath    string
	workingDir string
	cursor     tail.Cursor
	parser     provider.Parser

	// activeTools preserves insertion order for display stability.
	activeTools       []status.ToolInfo
	turnState         status.TurnState
	permissionPending bool
	hadToolsThisTurn  bool

	// Health and enrichment, surfaced in snapshots only.
	malformedLines int
	lastEventAt    time.Time
	pid            int32
	cpuActive      bool
}

// toolIndex returns the position of a tool id in activeTools, or -1.
func (a *Agent) toolIndex(toolID string) int {
	for i, t := range a.activeTools {
		if t.ID == toolID {
			return i
		}
	}
	return -1
}

func (a *Agent) removeTool(toolID string) bool {
	i := a.toolIndex(toolID)
	if i < 0 {
		return false
	}
	a.activeTools = append(a.activeTools[:i], a.activeTools[i+1:]...)
	return true
}

// Snapshot is a copy of an agent's externally visible state.
type Snapshot struct {
	ID                string            `json:"id"`
	Provider          string            `json:"provider"`
	LogPath           string            `json:"logPath"`
	WorkingDir        string            `json:"workingDir,omitempty"`
	TurnState         status.TurnState  `json:"turnState"`
	ActiveTools       []status.ToolInfo `json:"activeTools,omitempty"`
	PermissionPending bool              `json:"permissionPending,omitempty"`
	HadToolsThisTurn  bool              `json:"hadToolsThisTurn,omitempty"`
	MalformedLines    int               `json:"malformedLines,omitempty"`
	LastEventAt       time.Time         `json:"lastEventAt,omitzero"`
	PID               int32             `json:"pid,omitempty"`
	CPUActive         bool              `json:"cpuActive,omitempty"`
}

// snapshotLocked copies the agent state. Caller must hold a.mu.
func (a *Agent) snapshotLocked() Snapshot {
	tools := make([]status.ToolInfo, len(a.activeTools))
	copy(tools, a.activeTools)
	return Snapshot{
		ID:                a.id,
		Provider:          a.providerID,
		LogPath:           a.logPath,
		WorkingDir:        a.workingDir,
		TurnState:         a.turnState,
		ActiveTools:       tools,
		PermissionPending: a.permissionPending,
		HadToolsThisTurn:  a.hadToolsThisTurn,
		MalformedLines:    a.malformedLines,
		LastEventAt:       a.lastEventAt,
		PID:               a.pid,
		CPUActive:         a.cpuActive,
	}
}

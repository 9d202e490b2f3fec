package status

import (
	"encoding/json"
	"time"
)

// TurnState tracks where an agent is in its request/response cycle.
type TurnState int

const (
	Waiting TurnState = iota // idle, awaiting new input
	Active                   // a turn is in progress or a tool is outstanding
)

var turnStateNames = map[TurnState]string{
	Waiting: "waiting",
	Active:  "active",
}

var turnStateFromName = map[string]TurnState{
	"waiting": Waiting,
	"active":  Active,
}

func (s TurnState) String() string {
	if n, ok := turnStateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s TurnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TurnState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := turnStateFromName[name]; ok {
		*s = v
	}
	return nil
}

// EventType classifies normalized status events.
type EventType string

const (
	EventToolStarted   EventType = "tool_started"
	EventToolFinished  EventType = "tool_finished"
	EventStatusActive  EventType = "status_active"
	EventStatusWaiting EventType = "status_waiting"
	EventToolsCleared  EventType = "tools_cleared"
)

// Event is one normalized status event for one agent. ToolID and Status
// are only set for tool events.
type Event struct {
	AgentID   string    `json:"agentId"`
	Type      EventType `json:"type"`
	ToolID    string    `json:"toolId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolInfo describes one outstanding tool invocation for display.
type ToolInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Sink receives normalized events. Delivery is fire-and-forget: the
// producer never blocks on, or reads anything back from, the sink.
// Duplicate suppression for already-active tool ids happens upstream.
type Sink interface {
	Event(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Event(ev Event) { f(ev) }

package ws

import (
	"github.com/agent-pulse/backend/internal/registry"
	"github.com/agent-pulse/backend/internal/status"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgEvents   MessageType = "events"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Agents []registry.Snapshot `json:"agents"`
}

type EventsPayload struct {
	Events []status.Event `json:"events"`
}

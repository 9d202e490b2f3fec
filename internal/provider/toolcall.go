package provider

import (
	"encoding/json"
	"strings"
)

// ToolCallParser parses the flat tool_call log format: explicit
// start/end records carrying a tool id and name, explicit status records
// with enumerated values, and explicit user-text records. Record shapes
// it does not recognize fall back to claude interpretation, which
// tolerates convergent log formats.
type ToolCallParser struct {
	fallback *ClaudeParser
}

func NewToolCallParser() *ToolCallParser {
	return &ToolCallParser{fallback: NewClaudeParser()}
}

func (p *ToolCallParser) Name() string { return "toolcall" }

type toolCallEntry struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Status    string          `json:"status"`
	Text      string          `json:"text"`
}

func (p *ToolCallParser) ParseLine(line []byte) []Action {
	var entry toolCallEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil
	}

	switch entry.Type {
	case "tool_call":
		if entry.ID == "" {
			return nil
		}
		name := NormalizeToolName(entry.Name)
		return []Action{{
			Kind:     ActionToolStart,
			ToolID:   entry.ID,
			ToolName: name,
			Status:   FormatToolStatus(name, decodeInput(entry.Arguments)),
			Exempt:   IsExempt(name),
		}}

	case "tool_end", "tool_result":
		if entry.ID == "" {
			return nil
		}
		return []Action{{Kind: ActionToolDone, ToolID: entry.ID}}

	case "status":
		switch entry.Status {
		case "active":
			return []Action{{Kind: ActionStatusActive}}
		case "waiting", "idle":
			return []Action{{Kind: ActionStatusWaiting}}
		}
		return nil

	case "user_message":
		if strings.TrimSpace(entry.Text) == "" {
			return nil
		}
		return []Action{{Kind: ActionUserPrompt}}
	}

	return p.fallback.ParseLine(line)
}

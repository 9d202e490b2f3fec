package provider

import (
	"encoding/json"
	"strings"
)

// ClaudeParser parses claude transcript records. Each line is a JSON
// object with a "type" discriminator; assistant records carry content
// blocks that may include tool invocations, user records carry tool
// results or new prompts, and an explicit system turn_duration record is
// the authoritative end-of-turn signal.
type ClaudeParser struct{}

func NewClaudeParser() *ClaudeParser { return &ClaudeParser{} }

func (p *ClaudeParser) Name() string { return "claude" }

type claudeEntry struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Message json.RawMessage `json:"message"`
}

type claudeBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Text      string          `json:"text,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

func (p *ClaudeParser) ParseLine(line []byte) []Action {
	var entry claudeEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil
	}

	switch entry.Type {
	case "assistant":
		return p.parseAssistant(entry.Message)
	case "user":
		return p.parseUser(entry.Message)
	case "system":
		if entry.Subtype == "turn_duration" {
			return []Action{{Kind: ActionTurnEnd}}
		}
	case "progress":
		// Subagent progress entries are recognized but not surfaced.
	}
	return nil
}

func (p *ClaudeParser) parseAssistant(raw json.RawMessage) []Action {
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if json.Unmarshal(raw, &msg) != nil || msg.Content == nil {
		return nil
	}

	var blocks []claudeBlock
	if json.Unmarshal(msg.Content, &blocks) != nil {
		return nil
	}

	var actions []Action
	sawText := false
	for _, block := range blocks {
		switch block.Type {
		case "tool_use":
			name := NormalizeToolName(block.Name)
			actions = append(actions, Action{
				Kind:     ActionToolStart,
				ToolID:   block.ID,
				ToolName: name,
				Status:   FormatToolStatus(name, decodeInput(block.Input)),
				Exempt:   IsExempt(name),
			})
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				sawText = true
			}
		case "thinking", "redacted_thinking":
			// Internal reasoning; ignored.
		}
	}

	// A text-only assistant record frequently precedes a same-turn tool
	// invocation in a separate record, so it is not a turn end. It only
	// arms a debounce downstream.
	if len(actions) == 0 && sawText {
		return []Action{{Kind: ActionAssistantText}}
	}
	return actions
}

func (p *ClaudeParser) parseUser(raw json.RawMessage) []Action {
	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if json.Unmarshal(raw, &msg) != nil || msg.Content == nil {
		return nil
	}

	// String content is a free-text prompt.
	var text string
	if json.Unmarshal(msg.Content, &text) == nil {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Action{{Kind: ActionUserPrompt}}
	}

	var blocks []claudeBlock
	if json.Unmarshal(msg.Content, &blocks) != nil {
		return nil
	}

	var actions []Action
	prompt := false
	for _, block := range blocks {
		switch block.Type {
		case "tool_result":
			if block.ToolUseID != "" {
				actions = append(actions, Action{Kind: ActionToolDone, ToolID: block.ToolUseID})
			}
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				prompt = true
			}
		}
	}
	if prompt && len(actions) == 0 {
		actions = append(actions, Action{Kind: ActionUserPrompt})
	}
	return actions
}

// decodeInput unmarshals a tool_use input object for status formatting.
// Returns nil on any failure; the formatter handles missing arguments.
func decodeInput(raw json.RawMessage) map[string]any {
	if raw == nil {
		return nil
	}
	var input map[string]any
	if json.Unmarshal(raw, &input) != nil {
		return nil
	}
	return input
}

// Package provider converts raw agent log lines into normalized actions.
// Two record vocabularies are supported: the claude transcript format
// (assistant/user/system records with content blocks) and the flat
// tool_call format used by other CLIs. Both reduce to the same small
// action set the registry applies to agent state.
package provider

// ActionKind discriminates the Action variant.
type ActionKind int

const (
	// ActionToolStart begins a tool invocation. ToolID, ToolName and
	// Status are set; Exempt marks tools that never need confirmation.
	ActionToolStart ActionKind = iota

	// ActionToolDone records a completion for a previously started tool.
	// Only ToolID is set. Unmatched completions are dropped downstream.
	ActionToolDone

	// ActionTurnEnd is an authoritative end-of-turn signal.
	ActionTurnEnd

	// ActionAssistantText is a text-only assistant record. It is not a
	// turn end: it arms a short debounce that declares waiting only if
	// nothing else arrives.
	ActionAssistantText

	// ActionUserPrompt is a new user input; clears outstanding tools.
	ActionUserPrompt

	// ActionStatusActive / ActionStatusWaiting are explicit turn-level
	// signals independent of individual tools.
	ActionStatusActive
	ActionStatusWaiting
)

// Action is one normalized effect parsed from a log line.
type Action struct {
	Kind     ActionKind
	ToolID   string
	ToolName string
	Status   string
	Exempt   bool
}

// Parser turns one complete log line into zero or more actions. A parser
// instance belongs to a single agent and is only called from that agent's
// dispatch; it does not need to be safe for concurrent use.
type Parser interface {
	// Name returns the short lowercase provider identifier, e.g.
	// "claude" or "toolcall".
	Name() string

	// ParseLine parses one newline-stripped log line. Malformed lines
	// yield no actions and are never fatal.
	ParseLine(line []byte) []Action
}

// New returns a parser for the given provider name. Unknown names get
// the toolcall parser, which itself falls back to claude interpretation
// for unrecognized record shapes.
func New(name string) Parser {
	switch name {
	case "claude":
		return NewClaudeParser()
	default:
		return NewToolCallParser()
	}
}

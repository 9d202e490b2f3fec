package provider

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxCommandDisplay = 50

// exemptTools never require external confirmation, so no stall timer is
// armed for them.
var exemptTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"Task":      true,
	"TodoWrite": true,
	"WebSearch": true,
}

// toolNameAliases maps provider-specific tool names onto the shared
// display vocabulary.
var toolNameAliases = map[string]string{
	"run_command":  "Bash",
	"shell":        "Bash",
	"exec_command": "Bash",
	"read_file":    "Read",
	"open_file":    "Read",
	"write_file":   "Write",
	"create_file":  "Write",
	"edit_file":    "Edit",
	"apply_patch":  "Edit",
	"search":       "Grep",
	"grep_search":  "Grep",
	"file_search":  "Glob",
	"web_search":   "WebSearch",
	"fetch_url":    "WebFetch",
	"run_subagent": "Task",
	"update_todos": "TodoWrite",
}

// NormalizeToolName maps a provider-specific tool name to the shared
// vocabulary, passing through names that are already canonical.
func NormalizeToolName(name string) string {
	if canonical, ok := toolNameAliases[name]; ok {
		return canonical
	}
	return name
}

// IsExempt reports whether a tool (by normalized name) never needs
// external confirmation.
func IsExempt(name string) bool {
	return exemptTools[name]
}

// FormatToolStatus renders a human-readable status line for a tool
// invocation. It is a pure function of the normalized tool name and its
// arguments.
func FormatToolStatus(name string, input map[string]any) string {
	switch name {
	case "Read":
		if p := stringArg(input, "file_path", "path", "file"); p != "" {
			return "Reading " + filepath.Base(p)
		}
		return "Reading file"
	case "Write":
		if p := stringArg(input, "file_path", "path", "file"); p != "" {
			return "Writing " + filepath.Base(p)
		}
		return "Writing file"
	case "Edit":
		if p := stringArg(input, "file_path", "path", "file"); p != "" {
			return "Editing " + filepath.Base(p)
		}
		return "Editing file"
	case "Bash":
		if cmd := stringArg(input, "command", "cmd"); cmd != "" {
			return "Running: " + truncate(cmd, maxCommandDisplay)
		}
		return "Running command"
	case "Grep":
		if pat := stringArg(input, "pattern", "query"); pat != "" {
			return "Searching: " + truncate(pat, maxCommandDisplay)
		}
		return "Searching"
	case "Glob":
		if pat := stringArg(input, "pattern"); pat != "" {
			return "Globbing " + pat
		}
		return "Listing files"
	case "WebSearch":
		if q := stringArg(input, "query"); q != "" {
			return "Searching web: " + truncate(q, maxCommandDisplay)
		}
		return "Searching web"
	case "WebFetch":
		if u := stringArg(input, "url"); u != "" {
			return "Fetching " + truncate(u, maxCommandDisplay)
		}
		return "Fetching URL"
	case "Task":
		if d := stringArg(input, "description", "prompt"); d != "" {
			return "Delegating: " + truncate(d, maxCommandDisplay)
		}
		return "Running subagent"
	default:
		return "Using " + name
	}
}

// stringArg returns the first non-empty string value among the given keys.
func stringArg(input map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := input[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// truncate caps s at n runes, never splitting a multi-byte character.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s…", strings.TrimSpace(string(runes[:n])))
}

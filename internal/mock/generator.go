// Package mock drives the registry with synthetic agent activity for
// demos and frontend development. It writes provider-format JSONL lines
// to real files and feeds them through the normal tail/parse path, so
// everything downstream behaves exactly as it does with live agents.
package mock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/agent-pulse/backend/internal/registry"
)

type mockAgent struct {
	id         string
	provider   string
	workingDir string
	path       string
	script     []string
	next       int
	looping    bool
}

// Generator appends scripted log lines to per-agent files on a tick and
// tails them into the registry.
type Generator struct {
	registry *registry.Registry
	dir      string
	agents   []*mockAgent
}

func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{registry: reg}
}

// Start registers the mock agents and launches the feed loop. The
// synthetic log files live in a temp directory that is removed when ctx
// is cancelled.
func (g *Generator) Start(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "agent-pulse-mock-")
	if err != nil {
		return fmt.Errorf("create mock log dir: %w", err)
	}
	g.dir = dir

	g.agents = []*mockAgent{
		{
			id: "mock-refactor", provider: "claude", workingDir: "/home/user/myproject",
			script: claudeScript([]scriptStep{
				{tool: "Read", input: `{"file_path":"/home/user/myproject/src/parser.ts"}`},
				{tool: "Grep", input: `{"pattern":"TODO"}`},
				{tool: "Edit", input: `{"file_path":"/home/user/myproject/src/parser.ts"}`},
				{tool: "Bash", input: `{"command":"npm test"}`},
				{text: "All tests pass, moving on to the lexer."},
				{turnEnd: true},
			}),
			looping: true,
		},
		{
			id: "mock-tests", provider: "claude", workingDir: "/home/user/webapp",
			script: claudeScript([]scriptStep{
				{tool: "Write", input: `{"file_path":"/home/user/webapp/api_test.go"}`},
				{tool: "Bash", input: `{"command":"go test ./..."}`},
				{tool: "Bash", input: `{"command":"go vet ./..."}`},
				{turnEnd: true},
			}),
			looping: true,
		},
		{
			id: "mock-migrate", provider: "toolcall", workingDir: "/home/user/database",
			script: []string{
				`{"type":"status","status":"active"}`,
				`{"type":"tool_call","id":"tc-1","name":"read_file","arguments":{"file_path":"schema.sql"}}`,
				`{"type":"tool_end","id":"tc-1"}`,
				`{"type":"tool_call","id":"tc-2","name":"run_command","arguments":{"command":"psql -f migrate.sql"}}`,
				`{"type":"tool_end","id":"tc-2"}`,
				`{"type":"status","status":"waiting"}`,
			},
			looping: true,
		},
		{
			// Starts a tool and never finishes it, so the stall timer
			// fires and the agent shows a pending permission prompt.
			id: "mock-stalled", provider: "claude", workingDir: "/home/user/api-server",
			script: []string{
				`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_mock_stall","name":"Bash","input":{"command":"rm -rf build/"}}]}}`,
			},
		},
	}

	for _, ma := range g.agents {
		ma.path = filepath.Join(dir, ma.id+".jsonl")
		if err := os.WriteFile(ma.path, nil, 0o644); err != nil {
			return fmt.Errorf("create mock log %s: %w", ma.path, err)
		}
		g.registry.Add(ma.id, ma.provider, ma.path, ma.workingDir, false)
	}

	log.Printf("[mock] generating activity for %d agents in %s", len(g.agents), dir)
	go g.run(ctx)
	return nil
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			os.RemoveAll(g.dir)
			return
		case <-ticker.C:
			for _, ma := range g.agents {
				g.advance(ma)
			}
		}
	}
}

func (g *Generator) advance(ma *mockAgent) {
	if ma.next >= len(ma.script) {
		if !ma.looping {
			return
		}
		// Loops pause between turns so agents are not in lockstep.
		if rand.Intn(4) != 0 {
			return
		}
		ma.next = 0
	}

	line := ma.script[ma.next]
	ma.next++

	f, err := os.OpenFile(ma.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[mock] append %s: %v", ma.path, err)
		return
	}
	f.WriteString(line + "\n")
	f.Close()

	g.registry.Tail(ma.id)
}

type scriptStep struct {
	tool    string
	input   string
	text    string
	turnEnd bool
}

var mockSeq int

// claudeScript renders steps as assistant/user/system transcript lines.
// Tool steps expand to a tool_use followed by its tool_result.
func claudeScript(steps []scriptStep) []string {
	var lines []string
	for _, s := range steps {
		switch {
		case s.tool != "":
			mockSeq++
			id := fmt.Sprintf("toolu_mock_%d", mockSeq)
			lines = append(lines,
				fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":%q,"name":%q,"input":%s}]}}`, id, s.tool, s.input),
				fmt.Sprintf(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":%q,"content":"ok"}]}}`, id),
			)
		case s.text != "":
			lines = append(lines,
				fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"text","text":%q}]}}`, s.text))
		case s.turnEnd:
			lines = append(lines, `{"type":"system","subtype":"turn_duration","durationMs":4200}`)
		}
	}
	return lines
}

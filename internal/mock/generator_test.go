package mock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agent-pulse/backend/internal/registry"
	"github.com/agent-pulse/backend/internal/status"
)

type countingSink struct {
	mu     sync.Mutex
	events []status.Event
}

func (s *countingSink) Event(ev status.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestGeneratorRegistersAgents(t *testing.T) {
	sink := &countingSink{}
	reg := registry.New(sink, registry.DefaultTimings())
	gen := NewGenerator(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gen.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snaps := reg.Snapshot()
	if len(snaps) != len(gen.agents) {
		t.Fatalf("expected %d registered agents, got %d", len(gen.agents), len(snaps))
	}
	for _, s := range snaps {
		if s.Provider != "claude" && s.Provider != "toolcall" {
			t.Errorf("agent %s has unexpected provider %q", s.ID, s.Provider)
		}
		if s.LogPath == "" {
			t.Errorf("agent %s has no log path", s.ID)
		}
	}
}

func TestGeneratorProducesEvents(t *testing.T) {
	sink := &countingSink{}
	reg := registry.New(sink, registry.DefaultTimings())
	gen := NewGenerator(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gen.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if sink.count() > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("generator produced no events within 5s")
}

func TestClaudeScriptShapes(t *testing.T) {
	lines := claudeScript([]scriptStep{
		{tool: "Bash", input: `{"command":"ls"}`},
		{text: "done"},
		{turnEnd: true},
	})

	// One tool step renders a tool_use plus its tool_result.
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
}

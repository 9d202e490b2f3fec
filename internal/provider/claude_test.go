package provider

import "testing"

func TestClaudeToolUse(t *testing.T) {
	p := NewClaudeParser()
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/repo/a.ts"}}]}}`

	actions := p.ParseLine([]byte(line))
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	a := actions[0]
	if a.Kind != ActionToolStart {
		t.Errorf("expected ActionToolStart, got %v", a.Kind)
	}
	if a.ToolID != "t1" {
		t.Errorf("expected tool id t1, got %q", a.ToolID)
	}
	if a.Status != "Reading a.ts" {
		t.Errorf("expected status %q, got %q", "Reading a.ts", a.Status)
	}
	if !a.Exempt {
		t.Error("Read should be exempt from the stall timer")
	}
}

func TestClaudeToolResult(t *testing.T) {
	p := NewClaudeParser()
	line := `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`

	actions := p.ParseLine([]byte(line))
	if len(actions) != 1 || actions[0].Kind != ActionToolDone || actions[0].ToolID != "t1" {
		t.Fatalf("expected ToolDone{t1}, got %+v", actions)
	}
}

func TestClaudeFreeTextPrompt(t *testing.T) {
	p := NewClaudeParser()

	actions := p.ParseLine([]byte(`{"type":"user","message":{"content":"please fix the bug"}}`))
	if len(actions) != 1 || actions[0].Kind != ActionUserPrompt {
		t.Fatalf("expected UserPrompt, got %+v", actions)
	}

	// Block-form text prompt behaves the same.
	actions = p.ParseLine([]byte(`{"type":"user","message":{"content":[{"type":"text","text":"and add tests"}]}}`))
	if len(actions) != 1 || actions[0].Kind != ActionUserPrompt {
		t.Fatalf("expected UserPrompt for text block, got %+v", actions)
	}
}

func TestClaudeTurnDuration(t *testing.T) {
	p := NewClaudeParser()
	actions := p.ParseLine([]byte(`{"type":"system","subtype":"turn_duration","durationMs":5120}`))
	if len(actions) != 1 || actions[0].Kind != ActionTurnEnd {
		t.Fatalf("expected TurnEnd, got %+v", actions)
	}
}

func TestClaudeTextOnlyAssistantIsNotTurnEnd(t *testing.T) {
	p := NewClaudeParser()
	actions := p.ParseLine([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"let me look at that"}]}}`))
	if len(actions) != 1 || actions[0].Kind != ActionAssistantText {
		t.Fatalf("expected AssistantText, got %+v", actions)
	}
}

func TestClaudeThinkingIgnored(t *testing.T) {
	p := NewClaudeParser()
	actions := p.ParseLine([]byte(`{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"hmm"}]}}`))
	if len(actions) != 0 {
		t.Fatalf("thinking blocks should produce no actions, got %+v", actions)
	}
}

func TestClaudeProgressIgnored(t *testing.T) {
	p := NewClaudeParser()
	actions := p.ParseLine([]byte(`{"type":"progress","toolUseID":"t9","data":{}}`))
	if len(actions) != 0 {
		t.Fatalf("progress entries should produce no actions, got %+v", actions)
	}
}

func TestClaudeMalformedLine(t *testing.T) {
	p := NewClaudeParser()
	if actions := p.ParseLine([]byte(`{"type":"assistant","message":`)); len(actions) != 0 {
		t.Fatalf("malformed line should produce no actions, got %+v", actions)
	}
}

func TestClaudeMixedTextAndToolUse(t *testing.T) {
	p := NewClaudeParser()
	line := `{"type":"assistant","message":{"content":[{"type":"text","text":"running tests"},{"type":"tool_use","id":"t2","name":"Bash","input":{"command":"npm test"}}]}}`

	actions := p.ParseLine([]byte(line))
	if len(actions) != 1 {
		t.Fatalf("tool_use should win over same-record text, got %+v", actions)
	}
	if actions[0].Kind != ActionToolStart || actions[0].Status != "Running: npm test" {
		t.Errorf("unexpected action %+v", actions[0])
	}
	if actions[0].Exempt {
		t.Error("Bash should arm the stall timer")
	}
}

package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agent-pulse/backend/internal/registry"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, snaps []registry.Snapshot, origins []string, token string) (*Server, *httptest.Server) {
	t.Helper()
	snapshotter := &staticSnapshotter{snaps: snaps}
	b := NewBroadcaster(snapshotter, 10*time.Millisecond, time.Hour)
	s := NewServer(snapshotter, b, origins, token)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestAgentsEndpoint(t *testing.T) {
	snaps := []registry.Snapshot{
		{ID: "agent-1", Provider: "claude"},
		{ID: "agent-2", Provider: "toolcall"},
	}
	_, ts := newTestServer(t, snaps, nil, "")

	resp, err := http.Get(ts.URL + "/api/agents")
	if err != nil {
		t.Fatalf("GET /api/agents: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var got []registry.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(got))
	}
	if got[0].ID != "agent-1" || got[1].ID != "agent-2" {
		t.Errorf("unexpected agent ids: %q, %q", got[0].ID, got[1].ID)
	}
}

func TestAuthToken(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "secret")

	tests := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{"no credentials", "/api/agents", "", http.StatusUnauthorized},
		{"query token", "/api/agents?token=secret", "", http.StatusOK},
		{"wrong query token", "/api/agents?token=nope", "", http.StatusUnauthorized},
		{"bearer token", "/api/agents", "Bearer secret", http.StatusOK},
		{"wrong bearer token", "/api/agents", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", ts.URL+tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "example.com:8080", true},
		{"localhost default", nil, "http://localhost:3000", "example.com:8080", true},
		{"loopback default", nil, "http://127.0.0.1:3000", "example.com:8080", true},
		{"same host default", nil, "http://example.com:8080", "example.com:8080", true},
		{"foreign origin default", nil, "http://evil.com", "example.com:8080", false},
		{"allowed list match", []string{"http://dash.internal"}, "http://dash.internal", "example.com:8080", true},
		{"allowed list host match", []string{"http://dash.internal"}, "https://dash.internal", "example.com:8080", true},
		{"allowed list miss", []string{"http://dash.internal"}, "http://localhost:3000", "example.com:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshotter := &staticSnapshotter{}
			s := NewServer(snapshotter, nil, tt.origins, "")
			req := httptest.NewRequest("GET", "http://"+tt.host+"/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := s.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWebSocketInitialSnapshot(t *testing.T) {
	snaps := []registry.Snapshot{{ID: "agent-1", Provider: "claude"}}
	_, ts := newTestServer(t, snaps, nil, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial message: %v", err)
	}

	var msg struct {
		Type    MessageType `json:"type"`
		Payload struct {
			Agents []registry.Snapshot `json:"agents"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != MsgSnapshot {
		t.Errorf("expected snapshot message, got %q", msg.Type)
	}
	if len(msg.Payload.Agents) != 1 || msg.Payload.Agents[0].ID != "agent-1" {
		t.Errorf("unexpected snapshot payload: %+v", msg.Payload.Agents)
	}
}

func TestWebSocketUnauthorized(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "secret")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=secret", nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	conn.Close()
}

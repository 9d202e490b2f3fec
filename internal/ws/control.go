package ws

import (
	"encoding/json"
	"log"
	"net/http"
)

// Control is the write surface the embedding client uses to manage
// tracked agents: registration, removal, and the active-agent pointer
// that drives new-file attribution.
type Control interface {
	RegisterAgent(id, provider, workingDir, sessionID string) error
	RemoveAgent(id string)
	SetActiveAgent(id string)
}

type registerRequest struct {
	ID         string `json:"id"`
	Provider   string `json:"provider"`
	WorkingDir string `json:"workingDir"`
	SessionID  string `json:"sessionId,omitempty"`
}

type activeRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := s.control.RegisterAgent(req.ID, req.Provider, req.WorkingDir, req.SessionID); err != nil {
		log.Printf("register agent %s: %v", req.ID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("registered agent %s (provider=%s dir=%s)", req.ID, req.Provider, req.WorkingDir)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	s.control.RemoveAgent(id)
	log.Printf("removed agent %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.control == nil {
		http.Error(w, "control surface disabled", http.StatusNotImplemented)
		return
	}

	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.control.SetActiveAgent(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

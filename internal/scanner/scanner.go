// Package scanner watches per-project log directories for files that
// have not been seen before. A brand-new file is the signal that the
// currently focused agent started writing a fresh transcript (a manual
// history-clear lands in a new file, never the old one), so the scanner
// reassigns that agent to the new file. Membership in the known-files
// set is the sole signal for "is this file new".
package scanner

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Reassigner is the slice of the registry the scanner drives.
type Reassigner interface {
	Reassign(agentID, newPath string)
}

type Scanner struct {
	mu       sync.Mutex
	known    map[string]map[string]bool // directory -> set of absolute file paths
	seeded   map[string]bool            // directories whose initial contents were recorded
	active   string                     // agent most recently brought to foreground
	registry Reassigner
}

func New(registry Reassigner) *Scanner {
	return &Scanner{
		known:    make(map[string]map[string]bool),
		seeded:   make(map[string]bool),
		registry: registry,
	}
}

// SetActive records the agent currently in the foreground. An empty id
// clears the pointer; new files discovered while it is clear are marked
// known but left unattributed.
func (s *Scanner) SetActive(agentID string) {
	s.mu.Lock()
	s.active = agentID
	s.mu.Unlock()
}

func (s *Scanner) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// PreRegister marks a file path as known before its agent's process
// starts, so a pre-supplied session file is never mistaken for a fresh
// transcript.
func (s *Scanner) PreRegister(path string) {
	dir := filepath.Dir(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known[dir] == nil {
		s.known[dir] = make(map[string]bool)
	}
	s.known[dir][path] = true
}

// Scan enumerates one log directory. The first scan of a directory seeds
// the known set with every existing log file (pre-existing sessions, not
// new ones). Later scans attribute at most one new file to the active
// agent; further new files in the same tick are marked known and left
// unattributed. A missing directory is retried on the next tick.
func (s *Scanner) Scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	s.mu.Lock()
	seeded := s.seeded[dir]
	s.seeded[dir] = true
	if s.known[dir] == nil {
		s.known[dir] = make(map[string]bool)
	}
	var fresh []string
	for _, p := range paths {
		if !s.known[dir][p] {
			s.known[dir][p] = true
			fresh = append(fresh, p)
		}
	}
	active := s.active
	s.mu.Unlock()

	if !seeded || len(fresh) == 0 {
		return
	}

	if active == "" {
		log.Printf("[scanner] %d new file(s) in %s with no active agent, leaving unattributed", len(fresh), dir)
		return
	}

	// One reassignment per tick. Extra new files stay known-but-unbound;
	// the disambiguation heuristic has no answer for them.
	log.Printf("[scanner] New file %s -> reassigning active agent %s", fresh[0], active)
	s.registry.Reassign(active, fresh[0])
	if len(fresh) > 1 {
		log.Printf("[scanner] %d additional new file(s) in %s left unattributed", len(fresh)-1, dir)
	}
}

// Known reports whether a path is already attributed. Test helper and
// watcher guard.
func (s *Scanner) Known(path string) bool {
	dir := filepath.Dir(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known[dir][path]
}

package scanner

import (
	"path/filepath"
	"strings"
)

// EncodeProjectPath derives a log directory name from a project working
// directory: path separators become dashes, including the leading one,
// so /home/user/proj becomes -home-user-proj.
func EncodeProjectPath(workingDir string) string {
	clean := filepath.Clean(workingDir)
	return strings.ReplaceAll(clean, "/", "-")
}

// DirFor returns the log directory for a project under the given root.
func DirFor(root, workingDir string) string {
	return filepath.Join(root, EncodeProjectPath(workingDir))
}

// SessionFilePath returns the log file path for a pre-supplied session
// identifier inside a project's log directory. Launch mechanisms that
// accept a session id write to exactly this path, so the file can be
// pre-registered with no discovery race.
func SessionFilePath(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".jsonl")
}

// SessionIDFromPath extracts the session identifier from a log file path.
func SessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

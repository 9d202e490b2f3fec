package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
}

type WatchConfig struct {
	// LogRoot is the base directory containing per-project log
	// directories. Empty means ~/.claude/projects.
	LogRoot string `yaml:"log_root"`

	// PollInterval is the backup tail poll for agents whose filesystem
	// notifications are unreliable or absent.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ScanInterval drives the directory scanner that discovers new log
	// files for reassignment.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// WaitingDebounce is how long after a text-only assistant record the
	// agent is declared waiting if nothing else arrives.
	WaitingDebounce time.Duration `yaml:"waiting_debounce"`

	// StallAfter is how long a non-exempt tool may stay outstanding
	// before the agent is flagged as possibly blocked on a confirmation.
	StallAfter time.Duration `yaml:"stall_after"`

	// CompletionDelay is the fixed delay between detecting a tool
	// completion and emitting the finished event.
	CompletionDelay time.Duration `yaml:"completion_delay"`

	// ProcessProbeInterval drives the process activity probe. Zero or
	// negative disables probing.
	ProcessProbeInterval time.Duration `yaml:"process_probe_interval"`

	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Watch: WatchConfig{
			PollInterval:         2 * time.Second,
			ScanInterval:         time.Second,
			WaitingDebounce:      2 * time.Second,
			StallAfter:           30 * time.Second,
			CompletionDelay:      300 * time.Millisecond,
			ProcessProbeInterval: 5 * time.Second,
			BroadcastThrottle:    100 * time.Millisecond,
			SnapshotInterval:     5 * time.Second,
		},
	}
}

// Load reads a YAML config file, overlaying it onto the defaults. A
// missing file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogRoot returns the configured log root, defaulting to the claude
// projects directory under the user's home.
func (c *Config) LogRoot() string {
	if c.Watch.LogRoot != "" {
		return c.Watch.LogRoot
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

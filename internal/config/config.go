// Package config handles the .fleet directory structure and its optional
// config.yaml. Every project coordinated through fleetboard gets a .fleet/
// tree:
//
//	.fleet/
//	├── tasks/      <- one JSON file per task
//	├── locks/      <- one JSON file per lock
//	├── messages/   <- one JSON file per message
//	├── archive/    <- terminal tasks moved out by archival
//	├── logs/       <- operational logbook
//	├── audit.db    <- local SQLite audit trail
//	└── config.yaml <- optional overrides for the defaults below
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRoot is the data directory created in the shared project tree.
const DefaultRoot = ".fleet"

// Duration wraps time.Duration so config.yaml can say "2h" or "90s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds the runtime configuration for fleetboard.
type Config struct {
	// Root is the resolved data directory; set at load time, not from YAML.
	Root string `yaml:"-"`

	// Staleness is the heartbeat age beyond which a lock is abandoned.
	Staleness Duration `yaml:"staleness"`

	// ArchiveRetention is how long done/failed tasks stay on the board
	// before `archive` moves them out.
	ArchiveRetention Duration `yaml:"archive_retention"`

	// PollInterval is the worker loop's sleep between empty board scans.
	PollInterval Duration `yaml:"poll_interval"`

	// HeartbeatInterval is how often the worker refreshes its lock while a
	// handler runs.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// Handler is the default command the worker runs per claimed task.
	Handler string `yaml:"handler"`

	// AgentID overrides the env/hostname-derived agent identity.
	AgentID string `yaml:"agent_id"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:              DefaultRoot,
		Staleness:         Duration(2 * time.Hour),
		ArchiveRetention:  Duration(7 * 24 * time.Hour),
		PollInterval:      Duration(5 * time.Second),
		HeartbeatInterval: Duration(time.Minute),
	}
}

// Load resolves the configuration for root (DefaultRoot when empty),
// merging config.yaml over the defaults when it exists. A missing file is
// not an error; a malformed one is.
func Load(root string) (*Config, error) {
	cfg := Default()
	if root != "" {
		cfg.Root = root
	}

	path := filepath.Join(cfg.Root, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// TasksDir returns the task record directory.
func (c *Config) TasksDir() string { return filepath.Join(c.Root, "tasks") }

// LocksDir returns the lock record directory.
func (c *Config) LocksDir() string { return filepath.Join(c.Root, "locks") }

// MessagesDir returns the message record directory.
func (c *Config) MessagesDir() string { return filepath.Join(c.Root, "messages") }

// ArchiveDir returns the archived-task directory.
func (c *Config) ArchiveDir() string { return filepath.Join(c.Root, "archive") }

// LogPath returns the operational logbook file.
func (c *Config) LogPath() string { return filepath.Join(c.Root, "logs", "fleetboard.log") }

// AuditPath returns the local audit database file.
func (c *Config) AuditPath() string { return filepath.Join(c.Root, "audit.db") }

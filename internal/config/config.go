// Package config is the session configuration layer spec section 6
// expands for: a YAML-tagged Config struct, loaded from an optional file
// and overridable by CLI flags in cmd/vush, matching the config-file
// conventions visible in the sand teacher-adjacent pack member.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PersistBackend selects which internal/persist.Backend a session uses.
type PersistBackend string

const (
	BackendMemory PersistBackend = "memory"
	BackendSQLite PersistBackend = "sqlite"
)

// MountEntry is one initial mount-table row, mirroring
// internal/sandbox.MountSpec but in a YAML-friendly shape.
type MountEntry struct {
	VirtualPath string `yaml:"virtualPath"`
	HostPath    string `yaml:"hostPath"`
	ReadOnly    bool   `yaml:"readOnly"`
}

// DaemonConfig controls the detached-session listener, spec section 6.3.
type DaemonConfig struct {
	Listen  string `yaml:"listen" default:""`
	SockDir string `yaml:"sockDir" default:"/tmp/vush"`
}

// Config is a session's configuration, loadable from YAML and
// overridable by kong-parsed CLI flags in cmd/vush.
type Config struct {
	Env            map[string]string `yaml:"env"`
	Mounts         []MountEntry      `yaml:"mounts"`
	HistoryLen     int               `yaml:"historyLen" default:"500"`
	PersistBackend PersistBackend    `yaml:"persistBackend" default:"memory"`
	PersistDSN     string            `yaml:"persistDSN"`
	LogLevel       string            `yaml:"logLevel" default:"info"`
	LogFile        string            `yaml:"logFile"`
	Daemon         DaemonConfig      `yaml:"daemon"`
}

// Default returns a Config with the same defaults the struct tags above
// describe, for callers that skip kong's tag-driven defaulting (e.g.
// internal/sandbox embedders that never touch the CLI).
func Default() Config {
	return Config{
		Env:            map[string]string{},
		HistoryLen:     500,
		PersistBackend: BackendMemory,
		LogLevel:       "info",
		Daemon:         DaemonConfig{SockDir: "/tmp/vush"},
	}
}

// Load reads and parses a YAML config file at path. A missing file is
// not an error; the caller gets Default() back instead, mirroring
// kong.Configuration's treatment of an absent config file as "use
// defaults", since a freshly installed vush has nothing to load yet.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating or truncating it.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects a config with settings that cannot produce a working
// session, before cmd/vush hands it to sandbox.Create.
func (c Config) Validate() error {
	switch c.PersistBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown persistBackend %q", c.PersistBackend)
	}
	if c.PersistBackend == BackendSQLite && c.PersistDSN == "" {
		return fmt.Errorf("config: persistBackend sqlite requires persistDSN")
	}
	if c.HistoryLen < 0 {
		return fmt.Errorf("config: historyLen must be >= 0")
	}
	return nil
}

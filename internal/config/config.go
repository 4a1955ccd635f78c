package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all flywheel configuration.
type Config struct {
	DataDir string `toml:"data_dir"`

	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Classifier ClassifierConfig `toml:"classifier"`
	Inbox      InboxConfig      `toml:"inbox"`
	Export     ExportConfig     `toml:"export"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Color bool   `toml:"color"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type ClassifierConfig struct {
	RulesFile string `toml:"rules_file"` // empty = built-in rules
}

type InboxConfig struct {
	Dir string `toml:"dir"` // empty = <data_dir>/inbox
}

type ExportConfig struct {
	Compress bool `toml:"compress"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: "~/.local/share/flywheel",
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8087",
		},
		Export: ExportConfig{
			Compress: true,
		},
	}
}

// envOverrides maps environment variables onto config fields.
// They win over the config file.
var envOverrides = []struct {
	name  string
	apply func(*Config, string)
}{
	{"FW_DATA_DIR", func(c *Config, v string) { c.DataDir = v }},
	{"FW_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
	{"FW_SERVER_ADDR", func(c *Config, v string) { c.Server.Addr = v }},
	{"FW_RULES_FILE", func(c *Config, v string) { c.Classifier.RulesFile = v }},
	{"FW_INBOX_DIR", func(c *Config, v string) { c.Inbox.Dir = v }},
}

// Load reads config from the standard path, falling back to defaults,
// then applies FW_* environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(&cfg, v)
		}
	}

	// Expand ~ in paths
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Inbox.Dir = expandHome(cfg.Inbox.Dir)
	if cfg.Inbox.Dir == "" {
		cfg.Inbox.Dir = filepath.Join(cfg.DataDir, "inbox")
	}
	cfg.Classifier.RulesFile = expandHome(cfg.Classifier.RulesFile)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "flywheel", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "flywheel", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// DatabasePath returns the SQLite database file inside the data dir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "flywheel.db")
}

// ExportDir returns the default directory for export bundles.
func (c Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

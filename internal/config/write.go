package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the flywheel config directory path.
// Uses $XDG_CONFIG_HOME/flywheel if set, otherwise ~/.config/flywheel.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flywheel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "flywheel")
}

// WriteDefault writes a default config.toml storing data under dataDir.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(dataDir string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	portable := CompressHome(dataDir)

	content := fmt.Sprintf(`data_dir = %q

[log]
level = "info"
color = true

[server]
addr = "127.0.0.1:8087"

[classifier]
# YAML file with custom rules; empty uses the built-in rules.
rules_file = ""

[inbox]
# Empty keeps the inbox under data_dir.
dir = ""

[export]
compress = true
`, portable)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}

// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/user/cliscore/internal/tracing"
	"github.com/user/cliscore/runner"
)

// DefaultConfigTOML is the default configuration template for `config init`.
const DefaultConfigTOML = `# cliscore configuration file
# See: https://github.com/user/cliscore

# Code-fence language tags the fenced-markdown dialect treats as test blocks
allowed_languages = ["cliscore", "console"]

# Number of test files to run concurrently
jobs = 1

# Shell binary each test file's driver spawns
shell = "/bin/sh"

# Per-command deadline, in seconds
timeout_seconds = 30

# Emit {timestamp, kind, payload} trace events to stderr via structured logging
trace = false
`

// Config is cliscore's full runner configuration.
type Config struct {
	AllowedLanguages []string `toml:"allowed_languages"`
	Jobs             int      `toml:"jobs"`
	Shell            string   `toml:"shell"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
	Trace            bool     `toml:"trace"`
}

// Timeout returns the configured per-command deadline as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns a Config with sensible default values, matching
// spec.md §6's stated defaults.
func Default() *Config {
	return &Config{
		AllowedLanguages: []string{"cliscore", "console"},
		Jobs:             1,
		Shell:            "/bin/sh",
		TimeoutSeconds:   30,
		Trace:            false,
	}
}

// Options converts the config into the equivalent runner.Option slice, so a
// cmd/cliscore binary or any other embedder can go straight from a loaded
// Config to a constructed runner.Runner. With Trace set, trace events go to
// a debug-level slog text logger on stderr.
func (c *Config) Options() []runner.Option {
	opts := []runner.Option{
		runner.WithJobs(c.Jobs),
		runner.WithShell(c.Shell),
		runner.WithTimeout(c.Timeout()),
		runner.WithAllowedLanguages(c.AllowedLanguages...),
		runner.WithTrace(c.Trace),
	}
	if c.Trace {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, runner.WithTraceSink(tracing.NewSlogSink(logger)))
	}
	return opts
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ConfigPath is an explicit path to a config file (highest priority).
	ConfigPath string
}

// Load loads configuration from the appropriate source with the following priority:
// 1. --config flag (via LoadOptions.ConfigPath)
// 2. $CLISCORE_CONFIG env var
// 3. $XDG_CONFIG_HOME/cliscore/config.toml
// 4. ~/.config/cliscore/config.toml
//
// Environment variables override file config for jobs, shell, and timeout.
func Load(opts *LoadOptions) (*Config, error) {
	cfg := Default()

	configPath := findConfigPath(opts)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// findConfigPath determines the config file path based on priority.
func findConfigPath(opts *LoadOptions) string {
	if opts != nil && opts.ConfigPath != "" {
		return opts.ConfigPath
	}

	if envPath := os.Getenv("CLISCORE_CONFIG"); envPath != "" {
		return envPath
	}

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		xdgPath := filepath.Join(xdgConfigHome, "cliscore", "config.toml")
		if fileExists(xdgPath) {
			return xdgPath
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(homeDir, ".config", "cliscore", "config.toml")
		if fileExists(homePath) {
			return homePath
		}
	}

	return ""
}

// loadFromFile loads configuration from a TOML file.
func loadFromFile(cfg *Config, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		fmt.Fprintf(os.Stderr, "warning: config file %s has insecure permissions %o, should be 0600\n", path, mode)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse TOML: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	if shellPath := os.Getenv("CLISCORE_SHELL"); shellPath != "" {
		cfg.Shell = shellPath
	}
	if jobs := os.Getenv("CLISCORE_JOBS"); jobs != "" {
		if n, err := parsePositiveInt(jobs); err == nil {
			cfg.Jobs = n
		}
	}
	if timeout := os.Getenv("CLISCORE_TIMEOUT_SECONDS"); timeout != "" {
		if n, err := parsePositiveInt(timeout); err == nil {
			cfg.TimeoutSeconds = n
		}
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive: %q", s)
	}
	return n, nil
}

// fileExists returns true if the file at path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// GetConfigDir returns the directory where config should be stored.
// Uses $XDG_CONFIG_HOME/cliscore if set, otherwise ~/.config/cliscore.
func GetConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "cliscore"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "cliscore"), nil
}

// InitConfig creates a default configuration file at the standard location.
// Returns an error if the file already exists.
func InitConfig() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.toml")

	if fileExists(configPath) {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTOML), 0600); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if c.Shell == "" {
		return fmt.Errorf("shell must not be empty")
	}
	if len(c.AllowedLanguages) == 0 {
		return fmt.Errorf("allowed_languages must not be empty")
	}
	return nil
}

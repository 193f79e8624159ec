// internal/config/config.go
//
// This package handles configuration and the ~/.vimcat directory structure.
// The directory holds the user's config.yaml, logs and the last run record.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the directory created in the user's home.
	DirName = ".vimcat"

	// HomeEnv overrides the location of the vimcat directory.
	HomeEnv = "VIMCAT_HOME"

	defaultConfigsRepository = "https://github.com/kotsudev/workspace-configs.git"
	defaultConfigsDir        = "workspace-configs"
	defaultLogLevel          = "info"
	defaultInterStepDelay    = time.Second
)

const defaultConfigYAML = `# vimcat configuration
version: 1

run:
  # Keep going after a failed step and report every failure at the end.
  continue_on_error: false
  # Pause between steps so progress stays readable. 0s disables it.
  inter_step_delay: 1s

logging:
  # debug, info, warn or error
  level: info

# Repository holding the bundled dotfiles. dir is relative to $HOME.
configs:
  repository: https://github.com/kotsudev/workspace-configs.git
  dir: workspace-configs

# Optional path to a custom step catalog; empty uses the built-in one.
catalog: ""

# Step names to leave out of every run.
skip: []
`

// RunSettings controls the step runner.
type RunSettings struct {
	ContinueOnError bool           `yaml:"continue_on_error"`
	InterStepDelay  *time.Duration `yaml:"inter_step_delay,omitempty"`
}

// LoggingSettings controls the log file.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// ConfigsSettings locates the dotfiles repository.
type ConfigsSettings struct {
	Repository string `yaml:"repository"`
	Dir        string `yaml:"dir"`
}

// Settings models config.yaml.
type Settings struct {
	Version int             `yaml:"version"`
	Run     RunSettings     `yaml:"run"`
	Logging LoggingSettings `yaml:"logging"`
	Configs ConfigsSettings `yaml:"configs"`
	Catalog string          `yaml:"catalog,omitempty"`
	Skip    []string        `yaml:"skip,omitempty"`
}

// Config holds the runtime configuration for vimcat.
type Config struct {
	// HomeDir is the user's home directory, the target of provisioning.
	HomeDir string

	// Dir is HomeDir/.vimcat unless VIMCAT_HOME says otherwise.
	Dir string

	Settings Settings
}

// InitDir creates the vimcat directory structure and a default config file.
//
// Structure created:
// .vimcat/
// ├── config.yaml
// ├── logs/      <- vimcat.log and journey.log
// └── state/     <- last-run.json
func InitDir(dir string) error {
	for _, sub := range []string{"logs", "state"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", sub, err)
		}
	}
	return ensureConfigFile(filepath.Join(dir, "config.yaml"))
}

// NewConfig resolves the vimcat directory for homeDir and loads config.yaml
// over the defaults. A missing file is not an error.
func NewConfig(homeDir string) (*Config, error) {
	if strings.TrimSpace(homeDir) == "" {
		return nil, fmt.Errorf("config: home directory is required")
	}
	dir := strings.TrimSpace(os.Getenv(HomeEnv))
	if dir == "" {
		dir = filepath.Join(homeDir, DirName)
	}
	cfg := &Config{
		HomeDir:  filepath.Clean(homeDir),
		Dir:      filepath.Clean(dir),
		Settings: defaultSettings(),
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.Dir, "state")
}

// ConfigsDir returns the local checkout path of the dotfiles repository.
func (c *Config) ConfigsDir() string {
	return resolvePath(c.HomeDir, c.Settings.Configs.Dir)
}

// ConfigsRepository returns the dotfiles repository URL.
func (c *Config) ConfigsRepository() string {
	return c.Settings.Configs.Repository
}

// InterStepDelay returns the configured pause between steps.
func (c *Config) InterStepDelay() time.Duration {
	if c.Settings.Run.InterStepDelay == nil {
		return defaultInterStepDelay
	}
	return *c.Settings.Run.InterStepDelay
}

// ContinueOnError reports whether failed steps should not abort the run.
func (c *Config) ContinueOnError() bool {
	return c.Settings.Run.ContinueOnError
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	return c.Settings.Logging.Level
}

// CatalogPath returns the custom catalog path, or "" for the built-in catalog.
func (c *Config) CatalogPath() string {
	return resolvePath(c.Dir, c.Settings.Catalog)
}

// Skip returns step names excluded from runs.
func (c *Config) Skip() []string {
	if len(c.Settings.Skip) == 0 {
		return nil
	}
	out := make([]string, len(c.Settings.Skip))
	copy(out, c.Settings.Skip)
	return out
}

func (c *Config) load() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultSettings()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Settings = parsed
	return nil
}

func defaultSettings() Settings {
	delay := defaultInterStepDelay
	return Settings{
		Version: 1,
		Run:     RunSettings{InterStepDelay: &delay},
		Logging: LoggingSettings{Level: defaultLogLevel},
		Configs: ConfigsSettings{
			Repository: defaultConfigsRepository,
			Dir:        defaultConfigsDir,
		},
	}
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Run.InterStepDelay == nil {
		delay := defaultInterStepDelay
		s.Run.InterStepDelay = &delay
	}
	if strings.TrimSpace(s.Logging.Level) == "" {
		s.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(s.Configs.Repository) == "" {
		s.Configs.Repository = defaultConfigsRepository
	}
	if strings.TrimSpace(s.Configs.Dir) == "" {
		s.Configs.Dir = defaultConfigsDir
	}
}

func (s *Settings) normalize() {
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	s.Configs.Repository = strings.TrimSpace(s.Configs.Repository)
	s.Configs.Dir = strings.TrimSpace(s.Configs.Dir)
	s.Catalog = strings.TrimSpace(s.Catalog)
	skip := s.Skip[:0]
	for _, name := range s.Skip {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			skip = append(skip, trimmed)
		}
	}
	s.Skip = skip
}

func (s *Settings) validate() error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported config version %d", s.Version)
	}
	if s.Run.InterStepDelay != nil && *s.Run.InterStepDelay < 0 {
		return fmt.Errorf("run.inter_step_delay must be >= 0")
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", s.Logging.Level)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

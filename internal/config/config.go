package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no workspace found (run 'modtask init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the workspace configuration.
type Config struct {
	Version    int      `yaml:"version"`
	Name       string   `yaml:"name"`
	ModulePath []string `yaml:"modulepath"`
	TasksDir   string   `yaml:"tasks_dir"`
	Strict     string   `yaml:"strict,omitempty"`

	// dir is the absolute path to the workspace root (not serialized).
	dir string `yaml:"-"`
}

// Dir returns the absolute path to the workspace root.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the workspace root on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// ModulePaths returns the modulepath entries resolved against the workspace root.
func (c *Config) ModulePaths() []string {
	paths := make([]string, len(c.ModulePath))
	for i, p := range c.ModulePath {
		if filepath.IsAbs(p) {
			paths[i] = p
		} else {
			paths[i] = filepath.Join(c.dir, p)
		}
	}
	return paths
}

// Modules discovers the modules on the workspace's modulepath.
func (c *Config) Modules() ([]*module.Module, error) {
	return module.Discover(c.ModulePaths(), c.TasksDir)
}

// Strictness resolves the effective metadata strictness. A non-empty
// override wins, then the StrictEnv environment variable, then the config.
func (c *Config) Strictness(override string) (task.Strictness, error) {
	level := c.Strict
	if env := os.Getenv(StrictEnv); env != "" {
		level = env
	}
	if override != "" {
		level = override
	}
	s, err := task.ParseStrictness(level)
	if err != nil {
		return "", clierr.New(clierr.InvalidStrictness, err.Error()).
			WithDetails(map[string]any{"strict": level})
	}
	return s, nil
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	return &Config{
		Version:    CurrentVersion,
		Name:       name,
		ModulePath: append([]string{}, DefaultModulePath...),
		TasksDir:   DefaultTasksDir,
		Strict:     DefaultStrict,
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(c.ModulePath) == 0 {
		return fmt.Errorf("%w: at least 1 modulepath entry is required", ErrInvalid)
	}
	if hasDuplicates(c.ModulePath) {
		return fmt.Errorf("%w: modulepath contains duplicates", ErrInvalid)
	}
	for _, p := range c.ModulePath {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: modulepath entries must not be empty", ErrInvalid)
		}
	}
	if c.TasksDir == "" {
		return fmt.Errorf("%w: tasks_dir is required", ErrInvalid)
	}
	if filepath.IsAbs(c.TasksDir) || strings.ContainsRune(c.TasksDir, filepath.Separator) || c.TasksDir == ".." {
		return fmt.Errorf("%w: tasks_dir must be a single directory name", ErrInvalid)
	}
	if _, err := task.ParseStrictness(c.Strict); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Init creates a new workspace in the given directory with default settings.
// It creates the workspace root, the first modulepath directory and the config file.
func Init(dir, name string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.ModulePaths()[0], dirMode); err != nil {
		return nil, fmt.Errorf("creating modulepath directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given workspace root.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a directory containing
// the config file. Returns the absolute path to the workspace root.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.WorkspaceNotFound,
				"no workspace found (run 'modtask init' to create one)").
				WithCause(ErrNotFound)
		}
		dir = parent
	}
}

// IndexOf returns the index of item in slice, or -1 if not found.
func IndexOf(slice []string, item string) int {
	for i, s := range slice {
		if s == item {
			return i
		}
	}
	return -1
}

func hasDuplicates(slice []string) bool {
	seen := make(map[string]bool, len(slice))
	for _, s := range slice {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}

// Package config resolves the per-project configuration for the context engine.
//
// A ProjectConfig is built once per process by Load and passed by pointer
// into every component that needs it. Nothing mutates it after Load returns.
//
// Sources are merged in order: built-in defaults, then the optional
// .context-engine.yaml in the project root, then CONTEXT_ENGINE_*
// environment variables. Maps (commands, docs) merge key by key, so a
// config file that only sets commands.test keeps the other defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// FileName is the optional per-project config file, relative to Root.
	FileName = ".context-engine.yaml"

	// EnvPrefix prefixes environment overrides. Nested keys use a double
	// underscore: CONTEXT_ENGINE_MODEL__CLI=gemini sets model.cli.
	EnvPrefix = "CONTEXT_ENGINE_"
)

// Doc roles with special meaning to the engine.
const (
	RoleRules  = "rules"
	RoleTasks  = "tasks"
	RoleLog    = "log"
	RoleIndex  = "index"
	RoleReadme = "readme"
)

// ErrInvalidRoot is returned by Load when the project root does not exist
// or is not a directory.
var ErrInvalidRoot = errors.New("invalid project root")

// ProjectConfig is the resolved, read-only configuration for one project.
type ProjectConfig struct {
	Root      string            `koanf:"-" json:"root" yaml:"-"`
	Commands  map[string]string `koanf:"commands" json:"commands" yaml:"commands"`
	Docs      map[string]string `koanf:"docs" json:"docs" yaml:"docs"`
	Model     ModelConfig       `koanf:"model" json:"model" yaml:"model"`
	Review    ReviewConfig      `koanf:"review" json:"review" yaml:"review"`
	Execution ExecutionConfig   `koanf:"execution" json:"execution" yaml:"execution"`
	Journal   JournalConfig     `koanf:"journal" json:"journal" yaml:"journal"`
}

// ModelConfig controls how the external language-model CLI is invoked.
type ModelConfig struct {
	CLI         string `koanf:"cli" json:"cli" yaml:"cli" validate:"required"`
	Fast        string `koanf:"fast" json:"fast" yaml:"fast" validate:"required"`
	Reasoning   string `koanf:"reasoning" json:"reasoning" yaml:"reasoning" validate:"required"`
	Critic      string `koanf:"critic" json:"critic,omitempty" yaml:"critic,omitempty"`
	Timeout     int    `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"min=1,max=86400"`
	MaxMemoryMB int    `koanf:"max_memory_mb" json:"max_memory_mb" yaml:"max_memory_mb" validate:"min=256"`
}

// ReviewConfig holds the change-set noise filter.
type ReviewConfig struct {
	Exclude []string `koanf:"exclude" json:"exclude" yaml:"exclude"`
}

// ExecutionConfig bounds shell and version-control commands.
type ExecutionConfig struct {
	// ShellTimeout is in seconds; 0 disables the limit.
	ShellTimeout int `koanf:"shell_timeout" json:"shell_timeout" yaml:"shell_timeout" validate:"min=0"`
}

// JournalConfig controls the completion journal database.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	DataDir string `koanf:"data_dir" json:"data_dir" yaml:"data_dir"`
}

// Default command names.
var defaultCommands = []string{"check", "test", "build", "run"}

// DefaultExclude lists lockfiles and binary assets that never reach the critic.
var DefaultExclude = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"poetry.lock",
	"uv.lock",
	"Cargo.lock",
	"go.sum",
	"Gemfile.lock",
	"composer.lock",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.webp",
	"*.bmp",
	"*.pdf",
}

// Defaults returns the built-in configuration keys in koanf's flat form.
func Defaults() map[string]any {
	d := map[string]any{
		"docs.rules":              "AGENT.md",
		"docs.tasks":              "WORK_PLAN.md",
		"docs.log":                "WORK_LOG.md",
		"docs.index":              "INDEX.md",
		"docs.readme":             "README.md",
		"model.cli":               "gemini",
		"model.fast":              "gemini-3-flash-preview",
		"model.reasoning":         "gemini-3-pro-preview",
		"model.critic":            "",
		"model.timeout":           300,
		"model.max_memory_mb":     8192,
		"review.exclude":          append([]string(nil), DefaultExclude...),
		"execution.shell_timeout": 600,
		"journal.enabled":         true,
		"journal.data_dir":        "~/.context-engine",
	}
	for _, name := range defaultCommands {
		d["commands."+name] = placeholder(name)
	}
	return d
}

// Load resolves the configuration for the project at root.
// It fails if root does not exist or is not a directory.
func Load(root string) (*ProjectConfig, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, abs)
	}

	k := koanf.New(".")
	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	path := filepath.Join(abs, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", FileName, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Root = abs
	cfg.Journal.DataDir = expandHomePath(cfg.Journal.DataDir)
	return &cfg, nil
}

// envTransform maps CONTEXT_ENGINE_MODEL__MAX_MEMORY_MB to model.max_memory_mb.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func placeholder(name string) string {
	return fmt.Sprintf("echo 'No %s command configured'", name)
}

// GetCommand returns the shell command configured under name. Unknown or
// blank names resolve to a harmless echo so callers can always execute the
// result.
func (c *ProjectConfig) GetCommand(name string) string {
	if cmd, ok := c.Commands[name]; ok && strings.TrimSpace(cmd) != "" {
		return cmd
	}
	return placeholder(name)
}

// GetDocPath returns the path for a doc role, relative to Root.
// Unknown roles fall back to "<role>.md".
func (c *ProjectConfig) GetDocPath(role string) string {
	if p, ok := c.Docs[role]; ok && strings.TrimSpace(p) != "" {
		return p
	}
	return role + ".md"
}

// DocFile returns the absolute path for a doc role.
func (c *ProjectConfig) DocFile(role string) string {
	return filepath.Join(c.Root, c.GetDocPath(role))
}

// DocRoles returns the configured roles in sorted order.
func (c *ProjectConfig) DocRoles() []string {
	roles := make([]string, 0, len(c.Docs))
	for r := range c.Docs {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// CriticModel returns the model used to review change sets. It defaults to
// the reasoning model.
func (c *ProjectConfig) CriticModel() string {
	if c.Model.Critic != "" {
		return c.Model.Critic
	}
	return c.Model.Reasoning
}

// ModelTimeout is the wall-clock limit for one model invocation.
func (c *ProjectConfig) ModelTimeout() time.Duration {
	return time.Duration(c.Model.Timeout) * time.Second
}

// ShellTimeout is the limit for shell and version-control commands.
// Zero means unbounded.
func (c *ProjectConfig) ShellTimeout() time.Duration {
	return time.Duration(c.Execution.ShellTimeout) * time.Second
}

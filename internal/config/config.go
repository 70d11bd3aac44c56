// Package config handles the .foreman directory structure and project
// configuration. Every project that runs foreman gets a .foreman/ folder
// created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ForemanDir is the name of the directory created in each project.
const ForemanDir = ".foreman"

const defaultProjectConfigYAML = `# foreman project configuration
version: 1

# Agent command invoked by the local executor. The rendered prompt is piped
# to stdin; the first JSON object on stdout becomes the task result.
agent:
  name: general-engineer
  command: opencode
  args: ["run"]
  # prompt_template: templates/agent-prompt.md

approvals:
  # Approve every breakpoint without asking. Useful for CI smoke runs.
  auto: false

processes:
  default: powder-processing

runs:
  # Keep at most this many run directories; 0 keeps everything.
  retain: 0
`

// AgentConfig declares how the local executor launches the agent.
type AgentConfig struct {
	Name           string   `yaml:"name"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args,omitempty"`
	PromptTemplate string   `yaml:"prompt_template,omitempty"`
}

// ApprovalConfig captures breakpoint handling preferences.
type ApprovalConfig struct {
	Auto bool `yaml:"auto"`
}

// ProcessConfig captures process selection preferences.
type ProcessConfig struct {
	Default string `yaml:"default"`
}

// RunsConfig controls run directory housekeeping.
type RunsConfig struct {
	// Retain caps how many run directories are kept, oldest pruned first.
	// Zero keeps everything.
	Retain int `yaml:"retain"`
}

// ProjectConfig models .foreman/config.yaml.
type ProjectConfig struct {
	Version   int            `yaml:"version"`
	Agent     AgentConfig    `yaml:"agent"`
	Approvals ApprovalConfig `yaml:"approvals"`
	Processes ProcessConfig  `yaml:"processes"`
	Runs      RunsConfig     `yaml:"runs"`
}

// Config holds the runtime configuration for foreman.
type Config struct {
	// ProjectDir is the directory where the user ran `foreman` from.
	ProjectDir string

	// ForemanProjectDir is ProjectDir/.foreman.
	ForemanProjectDir string

	Project ProjectConfig
}

// InitForemanDir creates the .foreman directory structure:
//
// .foreman/
// ├── runs/       <- one directory per orchestration run
// ├── logs/       <- host-level log
// ├── processes/  <- declarative process definitions (*.yaml)
// └── templates/  <- optional prompt templates
func InitForemanDir(projectDir string) error {
	foremanDir := filepath.Join(projectDir, ForemanDir)
	dirs := []string{
		filepath.Join(foremanDir, "runs"),
		filepath.Join(foremanDir, "logs"),
		filepath.Join(foremanDir, "processes"),
		filepath.Join(foremanDir, "templates"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(foremanDir, "config.yaml"))
}

// NewConfig creates a Config populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		ForemanProjectDir: filepath.Join(projectDir, ForemanDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunsDir returns the directory holding per-run state.
func (c *Config) RunsDir() string {
	return filepath.Join(c.ForemanProjectDir, "runs")
}

// LogsDir returns the host-level log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ForemanProjectDir, "logs")
}

// ProcessesDir returns the directory with declarative process definitions.
func (c *Config) ProcessesDir() string {
	return filepath.Join(c.ForemanProjectDir, "processes")
}

// TemplatesDir returns the prompt template directory.
func (c *Config) TemplatesDir() string {
	return filepath.Join(c.ForemanProjectDir, "templates")
}

// ProjectConfigPath returns the on-disk location of config.yaml.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ForemanProjectDir, "config.yaml")
}

// PromptTemplatePath resolves the configured prompt template, if any.
func (c *Config) PromptTemplatePath() string {
	template := strings.TrimSpace(c.Project.Agent.PromptTemplate)
	if template == "" {
		return ""
	}
	if filepath.IsAbs(template) {
		return filepath.Clean(template)
	}
	return filepath.Clean(filepath.Join(c.ForemanProjectDir, template))
}

// HostLogPath returns the project-level log file.
func (c *Config) HostLogPath() string {
	return filepath.Join(c.LogsDir(), "foreman.log")
}

// DefaultProcess returns the configured default process identifier.
func (c *Config) DefaultProcess() string {
	return c.Project.Processes.Default
}

// RetainRuns returns the run retention cap; zero means keep everything.
func (c *Config) RetainRuns() int {
	return c.Project.Runs.Retain
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Agent: AgentConfig{
			Name:    "general-engineer",
			Command: "opencode",
			Args:    []string{"run"},
		},
		Processes: ProcessConfig{Default: "powder-processing"},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	if strings.TrimSpace(pc.Agent.Name) == "" {
		pc.Agent.Name = defaults.Agent.Name
	}
	if strings.TrimSpace(pc.Agent.Command) == "" {
		pc.Agent.Command = defaults.Agent.Command
		if len(pc.Agent.Args) == 0 {
			pc.Agent.Args = append([]string(nil), defaults.Agent.Args...)
		}
	}
	if strings.TrimSpace(pc.Processes.Default) == "" {
		pc.Processes.Default = defaults.Processes.Default
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Agent.Name = strings.TrimSpace(pc.Agent.Name)
	pc.Agent.Command = strings.TrimSpace(pc.Agent.Command)
	pc.Agent.PromptTemplate = strings.TrimSpace(pc.Agent.PromptTemplate)
	pc.Processes.Default = strings.TrimSpace(pc.Processes.Default)
	trimmed := pc.Agent.Args[:0]
	for _, arg := range pc.Agent.Args {
		if arg = strings.TrimSpace(arg); arg != "" {
			trimmed = append(trimmed, arg)
		}
	}
	pc.Agent.Args = trimmed
}

func (pc ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Agent.Command == "" {
		return fmt.Errorf("agent.command is required")
	}
	if pc.Processes.Default == "" {
		return fmt.Errorf("processes.default is required")
	}
	if pc.Runs.Retain < 0 {
		return fmt.Errorf("runs.retain must be >= 0")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

// Package config handles configuration loading and management for Ensemble.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ExecutorCLI runs agents through the claude CLI subprocess.
const ExecutorCLI = "cli"

// ExecutorAPI runs agents through the Anthropic API directly.
const ExecutorAPI = "api"

// Config holds all configuration for Ensemble.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AWSConfig holds AWS Bedrock settings for the API executor.
type AWSConfig struct {
	UseBedrock bool   `mapstructure:"use_bedrock"`
	Region     string `mapstructure:"region"`
	Profile    string `mapstructure:"profile"`
}

// DefaultsConfig holds default values for task execution.
type DefaultsConfig struct {
	// Executor selects how agents run: "cli" or "api".
	Executor string `mapstructure:"executor"`
	// MaxAgents caps how many agents a single task may use.
	MaxAgents int `mapstructure:"max_agents"`
	// Model is used when an agent definition does not pin one.
	Model string `mapstructure:"model"`
}

// PathsConfig holds filesystem locations for Ensemble data.
type PathsConfig struct {
	AgentsDir    string `mapstructure:"agents_dir"`
	WorkflowsDir string `mapstructure:"workflows_dir"`
	WorkspaceDir string `mapstructure:"workspace_dir"`
	ProjectsDir  string `mapstructure:"projects_dir"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Agent is the per-invocation limit for a single agent run.
	Agent time.Duration `mapstructure:"agent"`
}

// WorkflowConfig holds workflow matching settings.
type WorkflowConfig struct {
	// MatchThreshold is the minimum match score at which a workflow
	// template is preferred over direct agent selection.
	MatchThreshold int `mapstructure:"match_threshold"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, ENSEMBLE_*)
// 2. Project config (.ensemble.yaml in current directory or parent)
// 3. User config (~/.config/ensemble/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("defaults.executor", "ENSEMBLE_EXECUTOR")
	v.BindEnv("defaults.model", "ENSEMBLE_MODEL")
	v.BindEnv("aws.use_bedrock", "ENSEMBLE_USE_BEDROCK")
	v.BindEnv("aws.region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("aws.use_bedrock", cfg.AWS.UseBedrock)
	v.Set("aws.region", cfg.AWS.Region)
	v.Set("aws.profile", cfg.AWS.Profile)
	v.Set("defaults.executor", cfg.Defaults.Executor)
	v.Set("defaults.max_agents", cfg.Defaults.MaxAgents)
	v.Set("defaults.model", cfg.Defaults.Model)
	v.Set("paths.agents_dir", cfg.Paths.AgentsDir)
	v.Set("paths.workflows_dir", cfg.Paths.WorkflowsDir)
	v.Set("paths.workspace_dir", cfg.Paths.WorkspaceDir)
	v.Set("paths.projects_dir", cfg.Paths.ProjectsDir)
	v.Set("timeouts.agent", cfg.Timeouts.Agent.String())
	v.Set("workflow.match_threshold", cfg.Workflow.MatchThreshold)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("aws.use_bedrock", false)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")

	v.SetDefault("defaults.executor", ExecutorCLI)
	v.SetDefault("defaults.max_agents", 3)
	v.SetDefault("defaults.model", "claude-sonnet-4-5")

	v.SetDefault("paths.agents_dir", "agents")
	v.SetDefault("paths.workflows_dir", "workflows")
	v.SetDefault("paths.workspace_dir", "workspace")
	v.SetDefault("paths.projects_dir", "projects")

	v.SetDefault("timeouts.agent", "5m")

	v.SetDefault("workflow.match_threshold", 5)

	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for Ensemble.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ensemble")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ensemble")
	}
	return filepath.Join(home, ".config", "ensemble")
}

// findProjectConfig searches for .ensemble.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ensemble.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Executor:  ExecutorCLI,
			MaxAgents: 3,
			Model:     "claude-sonnet-4-5",
		},
		Paths: PathsConfig{
			AgentsDir:    "agents",
			WorkflowsDir: "workflows",
			WorkspaceDir: "workspace",
			ProjectsDir:  "projects",
		},
		Timeouts: TimeoutsConfig{
			Agent: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			MatchThreshold: 5,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}

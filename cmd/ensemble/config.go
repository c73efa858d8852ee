package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or change configuration",
	Long: `With no arguments, show the effective configuration. With a key,
show that value. With a key and a value, set it in the user config file.

Keys use dot notation, for example:
  ensemble config defaults.executor api
  ensemble config workflow.match_threshold 8`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		return showConfig(cfg)
	case 1:
		value, ok := configValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown config key %q", args[0])
		}
		fmt.Println(value)
		return nil
	default:
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		color.Green("Set %s in %s", args[0], config.GetUserConfigPath())
		return nil
	}
}

func showConfig(cfg *config.Config) error {
	fmt.Printf("User config:    %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("Project config: %s\n", project)
	}
	fmt.Println()

	for _, key := range configKeys {
		value, _ := configValue(cfg, key)
		fmt.Printf("%-26s %s\n", key, value)
	}
	return nil
}

var configKeys = []string{
	"anthropic.api_key",
	"aws.use_bedrock",
	"aws.region",
	"aws.profile",
	"defaults.executor",
	"defaults.max_agents",
	"defaults.model",
	"paths.agents_dir",
	"paths.workflows_dir",
	"paths.workspace_dir",
	"paths.projects_dir",
	"timeouts.agent",
	"workflow.match_threshold",
	"tui.refresh_rate",
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "anthropic.api_key":
		return maskSecret(cfg.Anthropic.APIKey), true
	case "aws.use_bedrock":
		return strconv.FormatBool(cfg.AWS.UseBedrock), true
	case "aws.region":
		return cfg.AWS.Region, true
	case "aws.profile":
		return cfg.AWS.Profile, true
	case "defaults.executor":
		return cfg.Defaults.Executor, true
	case "defaults.max_agents":
		return strconv.Itoa(cfg.Defaults.MaxAgents), true
	case "defaults.model":
		return cfg.Defaults.Model, true
	case "paths.agents_dir":
		return cfg.Paths.AgentsDir, true
	case "paths.workflows_dir":
		return cfg.Paths.WorkflowsDir, true
	case "paths.workspace_dir":
		return cfg.Paths.WorkspaceDir, true
	case "paths.projects_dir":
		return cfg.Paths.ProjectsDir, true
	case "timeouts.agent":
		return cfg.Timeouts.Agent.String(), true
	case "workflow.match_threshold":
		return strconv.Itoa(cfg.Workflow.MatchThreshold), true
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), true
	}
	return "", false
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "aws.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		cfg.AWS.UseBedrock = b
	case "aws.region":
		cfg.AWS.Region = value
	case "aws.profile":
		cfg.AWS.Profile = value
	case "defaults.executor":
		if value != config.ExecutorCLI && value != config.ExecutorAPI {
			return fmt.Errorf("%s must be %q or %q", key, config.ExecutorCLI, config.ExecutorAPI)
		}
		cfg.Defaults.Executor = value
	case "defaults.max_agents":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		cfg.Defaults.MaxAgents = n
	case "defaults.model":
		cfg.Defaults.Model = value
	case "paths.agents_dir":
		cfg.Paths.AgentsDir = value
	case "paths.workflows_dir":
		cfg.Paths.WorkflowsDir = value
	case "paths.workspace_dir":
		cfg.Paths.WorkspaceDir = value
	case "paths.projects_dir":
		cfg.Paths.ProjectsDir = value
	case "timeouts.agent":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 5m or 90s", key)
		}
		cfg.Timeouts.Agent = d
	case "workflow.match_threshold":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		cfg.Workflow.MatchThreshold = n
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 100ms", key)
		}
		cfg.TUI.RefreshRate = d
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8) + s[len(s)-4:]
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
anthropic:
  api_key: test-key
defaults:
  executor: api
  max_agents: 5
timeouts:
  agent: 2m
workflow:
  match_threshold: 8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want test-key", cfg.Anthropic.APIKey)
	}
	if cfg.Defaults.Executor != ExecutorAPI {
		t.Errorf("Executor = %q, want api", cfg.Defaults.Executor)
	}
	if cfg.Defaults.MaxAgents != 5 {
		t.Errorf("MaxAgents = %d, want 5", cfg.Defaults.MaxAgents)
	}
	if cfg.Timeouts.Agent != 2*time.Minute {
		t.Errorf("Timeouts.Agent = %v, want 2m", cfg.Timeouts.Agent)
	}
	if cfg.Workflow.MatchThreshold != 8 {
		t.Errorf("MatchThreshold = %d, want 8", cfg.Workflow.MatchThreshold)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Empty file should yield defaults for every key.
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Defaults.Executor != ExecutorCLI {
		t.Errorf("Executor = %q, want cli", cfg.Defaults.Executor)
	}
	if cfg.Defaults.MaxAgents != 3 {
		t.Errorf("MaxAgents = %d, want 3", cfg.Defaults.MaxAgents)
	}
	if cfg.Defaults.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q, want claude-sonnet-4-5", cfg.Defaults.Model)
	}
	if cfg.Timeouts.Agent != 5*time.Minute {
		t.Errorf("Timeouts.Agent = %v, want 5m", cfg.Timeouts.Agent)
	}
	if cfg.Workflow.MatchThreshold != 5 {
		t.Errorf("MatchThreshold = %d, want 5", cfg.Workflow.MatchThreshold)
	}
	if cfg.Paths.WorkspaceDir != "workspace" {
		t.Errorf("WorkspaceDir = %q, want workspace", cfg.Paths.WorkspaceDir)
	}
}

func TestLoadFromPath_ExpandsEnv(t *testing.T) {
	t.Setenv("ENSEMBLE_TEST_KEY", "expanded-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${ENSEMBLE_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-key" {
		t.Errorf("APIKey = %q, want expanded-key", cfg.Anthropic.APIKey)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Defaults.Executor != ExecutorCLI {
		t.Errorf("Executor = %q, want cli", cfg.Defaults.Executor)
	}
	if cfg.Timeouts.Agent != 5*time.Minute {
		t.Errorf("Timeouts.Agent = %v, want 5m", cfg.Timeouts.Agent)
	}
}

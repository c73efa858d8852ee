// Package project manages isolated project directories that share the
// agent registry and workflows.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Status values a project moves through.
const (
	StatusInitialized = "initialized"
	StatusInProgress  = "in-progress"
	StatusCompleted   = "completed"
	StatusArchived    = "archived"
)

var projectNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config is the metadata stored in a project's .project/config.json.
type Config struct {
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Created         time.Time         `json:"created"`
	Description     string            `json:"description"`
	Version         string            `json:"version"`
	TechStack       map[string]string `json:"tech_stack"`
	PhasesCompleted []string          `json:"phases_completed"`
	Status          string            `json:"status"`
}

// Manager creates and tracks projects under a projects directory.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create projects directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the projects root directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the directory for a named project.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// Exists reports whether a project directory is present.
func (m *Manager) Exists(name string) bool {
	info, err := os.Stat(m.Path(name))
	return err == nil && info.IsDir()
}

// Create scaffolds a new project: src/tests/docs directories, a README
// and .gitignore, and the .project metadata directory.
func (m *Manager) Create(name, description string) (*Config, error) {
	if !projectNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid project name %q: use letters, digits, hyphens, and underscores", name)
	}
	path := m.Path(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("project %q already exists", name)
	}

	for _, sub := range []string{"src", "tests", "docs", ".project", filepath.Join(".project", "agent-memory")} {
		if err := os.MkdirAll(filepath.Join(path, sub), 0755); err != nil {
			return nil, fmt.Errorf("create project structure: %w", err)
		}
	}

	readme := fmt.Sprintf("# %s\n\n%s\n\n## Development\n\nThis project is managed by Ensemble. Run tasks with:\n\n```bash\nensemble run \"Your task description\" --project %s\n```\n", name, description, name)
	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte(readme), 0644); err != nil {
		return nil, fmt.Errorf("write README: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, ".gitignore"), []byte(defaultGitignore), 0644); err != nil {
		return nil, fmt.Errorf("write gitignore: %w", err)
	}

	cfg := &Config{
		Name:        name,
		Type:        "default",
		Created:     time.Now(),
		Description: description,
		Version:     "0.1.0",
		TechStack:   map[string]string{},
		Status:      StatusInitialized,
	}
	if err := m.saveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get loads a project's config.
func (m *Manager) Get(name string) (*Config, error) {
	data, err := os.ReadFile(m.configPath(name))
	if err != nil {
		return nil, fmt.Errorf("project %q has no configuration: %w", name, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	return &cfg, nil
}

// List returns configs for every project, sorted by name. Directories
// without a config appear with status "no-config".
func (m *Manager) List() ([]Config, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects directory: %w", err)
	}

	var projects []Config
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cfg, err := m.Get(e.Name())
		if err != nil {
			projects = append(projects, Config{Name: e.Name(), Type: "unknown", Status: "no-config"})
			continue
		}
		projects = append(projects, *cfg)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// SetStatus updates and persists a project's status.
func (m *Manager) SetStatus(name, status string) error {
	switch status {
	case StatusInitialized, StatusInProgress, StatusCompleted, StatusArchived:
	default:
		return fmt.Errorf("unknown project status %q", status)
	}
	cfg, err := m.Get(name)
	if err != nil {
		return err
	}
	cfg.Status = status
	return m.saveConfig(cfg)
}

// MarkPhase appends a completed phase to the project config.
func (m *Manager) MarkPhase(name, phase string) error {
	cfg, err := m.Get(name)
	if err != nil {
		return err
	}
	for _, p := range cfg.PhasesCompleted {
		if p == phase {
			return nil
		}
	}
	cfg.PhasesCompleted = append(cfg.PhasesCompleted, phase)
	return m.saveConfig(cfg)
}

// Delete removes a project and everything in it.
func (m *Manager) Delete(name string) error {
	if !m.Exists(name) {
		return fmt.Errorf("project %q not found", name)
	}
	return os.RemoveAll(m.Path(name))
}

func (m *Manager) configPath(name string) string {
	return filepath.Join(m.Path(name), ".project", "config.json")
}

func (m *Manager) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project config: %w", err)
	}
	if err := os.WriteFile(m.configPath(cfg.Name), data, 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	return nil
}

const defaultGitignore = `# Dependencies
node_modules/
venv/
__pycache__/

# Build outputs
dist/
build/
*.pyc

# Environment
.env
.env.local

# IDE
.vscode/
.idea/
*.swp

# OS
.DS_Store
Thumbs.db

# Project metadata (keep config, ignore logs)
.project/logs/
`

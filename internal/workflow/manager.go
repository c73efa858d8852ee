// Package workflow loads, validates, matches, and executes multi-step
// workflow templates.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// Subdirectories of the workflows root. Templates ship with the tool,
// custom holds user-created workflows, learned holds generated ones.
const (
	TemplatesDir = "templates"
	CustomDir    = "custom"
	LearnedDir   = "learned"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Manager finds and persists workflow definitions across the three
// workflow directories.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at dir, creating the directory
// layout if needed.
func NewManager(dir string) (*Manager, error) {
	for _, sub := range []string{TemplatesDir, CustomDir, LearnedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create workflow directory: %w", err)
		}
	}
	return &Manager{root: dir}, nil
}

// Root returns the workflows root directory.
func (m *Manager) Root() string {
	return m.root
}

// Source labels where a workflow was found.
type Source string

const (
	SourceTemplate Source = "template"
	SourceCustom   Source = "custom"
	SourceLearned  Source = "learned"
)

// Entry pairs a workflow with its source directory.
type Entry struct {
	Workflow *models.Workflow
	Source   Source
	Path     string
}

func sourceDir(s Source) string {
	switch s {
	case SourceCustom:
		return CustomDir
	case SourceLearned:
		return LearnedDir
	default:
		return TemplatesDir
	}
}

// List returns all workflows, ordered by priority (high, medium, low)
// then name.
func (m *Manager) List() ([]Entry, error) {
	var entries []Entry
	for _, src := range []Source{SourceTemplate, SourceCustom, SourceLearned} {
		dir := filepath.Join(m.root, sourceDir(src))
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read workflow directory: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !isWorkflowFile(f.Name()) {
				continue
			}
			path := filepath.Join(dir, f.Name())
			wf, err := loadFile(path)
			if err != nil {
				// Skip broken files rather than failing the listing.
				continue
			}
			entries = append(entries, Entry{Workflow: wf, Source: src, Path: path})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		pi, pj := priorityRank(entries[i].Workflow.Priority), priorityRank(entries[j].Workflow.Priority)
		if pi != pj {
			return pi < pj
		}
		return entries[i].Workflow.Name < entries[j].Workflow.Name
	})
	return entries, nil
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	}
	return 3
}

func isWorkflowFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Get loads a workflow by name, checking custom first so users can
// shadow a shipped template, then templates, then learned.
func (m *Manager) Get(name string) (*models.Workflow, Source, error) {
	for _, src := range []Source{SourceCustom, SourceTemplate, SourceLearned} {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(m.root, sourceDir(src), name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			wf, err := loadFile(path)
			if err != nil {
				return nil, src, err
			}
			return wf, src, nil
		}
	}
	return nil, "", fmt.Errorf("workflow %q not found", name)
}

func loadFile(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	var wf models.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", filepath.Base(path), err)
	}
	return &wf, nil
}

// Create scaffolds a new custom workflow and returns its path. Names
// are restricted to letters, digits, hyphens, and underscores.
func (m *Manager) Create(name, description string) (string, error) {
	if !nameRe.MatchString(name) {
		return "", fmt.Errorf("invalid workflow name %q: use letters, digits, hyphens, and underscores", name)
	}
	path := filepath.Join(m.root, CustomDir, name+".yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("workflow %q already exists", name)
	}

	if description == "" {
		description = "Custom workflow"
	}
	wf := &models.Workflow{
		Name:        name,
		Version:     "1.0.0",
		Description: description,
		Author:      "custom",
		Created:     time.Now().Format("2006-01-02"),
		Priority:    "medium",
		Steps: []models.Step{
			{
				ID:       "step_1",
				Name:     "First Step",
				Agent:    "code_writer",
				Action:   "Describe what this step should do",
				Required: true,
			},
		},
	}
	if err := m.write(path, wf); err != nil {
		return "", err
	}
	return path, nil
}

// Delete removes a custom workflow. Shipped templates and learned
// workflows cannot be deleted this way.
func (m *Manager) Delete(name string) error {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(m.root, CustomDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
	}
	if _, _, err := m.Get(name); err == nil {
		return fmt.Errorf("workflow %q is not a custom workflow; only custom workflows can be deleted", name)
	}
	return fmt.Errorf("workflow %q not found", name)
}

// Export writes a workflow to path in YAML or JSON based on the
// file extension.
func (m *Manager) Export(name, path string) error {
	wf, _, err := m.Get(name)
	if err != nil {
		return err
	}

	var data []byte
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(wf, "", "  ")
	} else {
		data, err = yaml.Marshal(wf)
	}
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Import copies an external workflow file into the custom directory
// after validating it.
func (m *Manager) Import(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	var wf models.Workflow
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &wf)
	} else {
		err = yaml.Unmarshal(data, &wf)
	}
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", filepath.Base(path), err)
	}

	if problems, _ := Validate(&wf); len(problems) > 0 {
		return nil, fmt.Errorf("workflow %s is invalid: %s", wf.Name, problems[0])
	}

	dest := filepath.Join(m.root, CustomDir, wf.Name+".yaml")
	if err := m.write(dest, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// SaveLearned persists a generated workflow into the learned directory.
func (m *Manager) SaveLearned(wf *models.Workflow) (string, error) {
	if !nameRe.MatchString(wf.Name) {
		return "", fmt.Errorf("invalid workflow name %q", wf.Name)
	}
	path := filepath.Join(m.root, LearnedDir, wf.Name+".yaml")
	if err := m.write(path, wf); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Manager) write(path string, wf *models.Workflow) error {
	data, err := yaml.Marshal(wf)
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	return nil
}

// Validate checks a workflow for structural problems. It returns hard
// errors and advisory warnings separately.
func Validate(wf *models.Workflow) (problems, warnings []string) {
	if wf.Name == "" {
		problems = append(problems, "missing required field: name")
	}
	if wf.Version == "" {
		problems = append(problems, "missing required field: version")
	}
	if len(wf.Steps) == 0 {
		problems = append(problems, "workflow has no steps")
	}
	if wf.Description == "" {
		warnings = append(warnings, "missing description")
	}
	if len(wf.TaskTypes) == 0 {
		warnings = append(warnings, "no task_types declared; workflow will not auto-match")
	}

	seen := make(map[string]bool)
	for i, step := range wf.Steps {
		label := step.ID
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
			problems = append(problems, fmt.Sprintf("%s: missing required field: id", label))
		}
		if step.Agent == "" {
			problems = append(problems, fmt.Sprintf("%s: missing required field: agent", label))
		}
		if step.Action == "" {
			problems = append(problems, fmt.Sprintf("%s: missing required field: action", label))
		}
		if step.ID != "" {
			if seen[step.ID] {
				problems = append(problems, fmt.Sprintf("duplicate step id: %s", step.ID))
			}
			seen[step.ID] = true
		}
		// Dependencies must point at earlier steps so execution order
		// is well defined.
		for _, dep := range step.DependsOn {
			found := false
			for j := 0; j < i; j++ {
				if wf.Steps[j].ID == dep {
					found = true
					break
				}
			}
			if !found {
				problems = append(problems, fmt.Sprintf("%s: depends_on %q does not reference an earlier step", label, dep))
			}
		}
	}

	for _, gate := range wf.QualityGates {
		if gate.AfterStep != "" && wf.Step(gate.AfterStep) == nil {
			problems = append(problems, fmt.Sprintf("quality gate %q: after_step %q not found", gate.Name, gate.AfterStep))
		}
	}
	return problems, warnings
}

// MatchResult reports how well a workflow fits a task description.
type MatchResult struct {
	Entry     Entry
	Score     int
	Relevance string
	Reasons   []string
}

// Match scores every workflow against a task description and returns
// matches sorted by score. Scoring: 10 per declared task type found in
// the task, 5 for the workflow name appearing in the task, 2 if any
// description word overlaps, and 3 per matching tag.
func (m *Manager) Match(task string) ([]MatchResult, error) {
	entries, err := m.List()
	if err != nil {
		return nil, err
	}

	taskLower := strings.ToLower(task)
	var results []MatchResult

	for _, entry := range entries {
		wf := entry.Workflow
		score := 0
		var reasons []string

		for _, tt := range wf.TaskTypes {
			if strings.Contains(taskLower, strings.ToLower(tt)) {
				score += 10
				reasons = append(reasons, fmt.Sprintf("task type %q", tt))
			}
		}

		nameWords := strings.ReplaceAll(strings.ToLower(wf.Name), "-", " ")
		if strings.Contains(taskLower, nameWords) {
			score += 5
			reasons = append(reasons, "workflow name")
		}

		for _, word := range strings.Fields(strings.ToLower(wf.Description)) {
			if len(word) > 3 && strings.Contains(taskLower, word) {
				score += 2
				reasons = append(reasons, "description overlap")
				break
			}
		}

		for _, tag := range wf.Tags {
			if strings.Contains(taskLower, strings.ToLower(tag)) {
				score += 3
				reasons = append(reasons, fmt.Sprintf("tag %q", tag))
			}
		}

		if score == 0 {
			continue
		}

		relevance := "low"
		switch {
		case score >= 10:
			relevance = "high"
		case score >= 5:
			relevance = "medium"
		}
		results = append(results, MatchResult{Entry: entry, Score: score, Relevance: relevance, Reasons: reasons})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Workflow.Name < results[j].Entry.Workflow.Name
	})
	return results, nil
}

// BestMatch returns the top match at or above the threshold, or nil.
func (m *Manager) BestMatch(task string, threshold int) (*MatchResult, error) {
	results, err := m.Match(task)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].Score < threshold {
		return nil, nil
	}
	return &results[0], nil
}

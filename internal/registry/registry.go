// Package registry manages agent definitions, capabilities, and
// performance tracking. Definitions live in a flat JSON file so they
// can be inspected and edited by hand.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// ErrAgentNotFound is returned when a named agent is not registered.
var ErrAgentNotFound = errors.New("agent not found")

// Registry is the central store of agent definitions.
// It is safe for concurrent use.
type Registry struct {
	path   string
	agents map[string]*models.AgentDefinition
	mu     sync.RWMutex
}

// Load opens the registry at path, seeding the default specialists
// when the file does not exist yet.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path:   path,
		agents: make(map[string]*models.AgentDefinition),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read registry: %w", err)
		}
		for _, agent := range defaultAgents() {
			r.agents[agent.Name] = agent
		}
		if err := r.save(); err != nil {
			return nil, err
		}
		return r, nil
	}

	if err := json.Unmarshal(data, &r.agents); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	// Older registries may omit per-agent defaults.
	for name, agent := range r.agents {
		if agent.Name == "" {
			agent.Name = name
		}
		if agent.Model == "" {
			agent.Model = models.DefaultModel
		}
		if agent.SkillLevel == "" {
			agent.SkillLevel = models.SkillNovice
		}
	}

	return r, nil
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return r.path
}

// save persists the registry. Callers must hold at least a read lock.
func (r *Registry) save() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(r.agents, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Save persists the registry to disk.
func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.save()
}

// Reload replaces in-memory definitions with the on-disk state.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	agents := make(map[string]*models.AgentDefinition)
	if err := json.Unmarshal(data, &agents); err != nil {
		return fmt.Errorf("parse registry %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
	return nil
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*models.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return agent, nil
}

// All returns every registered agent, sorted by name.
func (r *Registry) All() []*models.AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.AgentDefinition, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})
	return agents
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Register adds or replaces an agent definition and persists the registry.
func (r *Registry) Register(agent *models.AgentDefinition) error {
	if agent.Name == "" {
		return fmt.Errorf("register agent: name is required")
	}
	if agent.Model == "" {
		agent.Model = models.DefaultModel
	}
	if agent.SkillLevel == "" {
		agent.SkillLevel = models.SkillNovice
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name] = agent
	return r.save()
}

// FindByCapability returns all agents that list the capability,
// compared case-insensitively.
func (r *Registry) FindByCapability(capability string) []*models.AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := strings.ToLower(capability)
	var matched []*models.AgentDefinition
	for _, agent := range r.agents {
		for _, c := range agent.Capabilities {
			if strings.ToLower(c) == want {
				matched = append(matched, agent)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})
	return matched
}

// FindBest returns the agent scoring highest against the required
// capabilities, or an error when no agent matches any of them.
//
// Score is the capability match count weighted by skill bonus and
// success rate, so a proven specialist outranks a generalist with the
// same overlap.
func (r *Registry) FindBest(capabilities []string, exclude []string) (*models.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	required := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		required[strings.ToLower(c)] = true
	}

	var best *models.AgentDefinition
	var bestScore float64

	// Iterate sorted so ties resolve deterministically.
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agent := r.agents[name]
		if excluded[agent.Name] {
			continue
		}

		matches := 0
		for _, c := range agent.Capabilities {
			if required[strings.ToLower(c)] {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		score := float64(matches) * agent.SkillLevel.Bonus() * (agent.EffectiveSuccessRate() / 100)
		if score > bestScore {
			best = agent
			bestScore = score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no agent matches capabilities %v", ErrAgentNotFound, capabilities)
	}
	return best, nil
}

// UpdateMetrics records a completed task against an agent, advances
// its skill level when thresholds are met, and persists the registry.
func (r *Registry) UpdateMetrics(name string, success bool, tokens int64, cost float64, duration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	m := &agent.Metrics
	m.TotalTasks++
	if success {
		m.SuccessfulTasks++
	} else {
		m.FailedTasks++
	}
	m.TotalTokens += tokens
	m.TotalCost += cost

	secs := duration.Seconds()
	if m.AvgCompletionTime == 0 {
		m.AvgCompletionTime = secs
	} else {
		m.AvgCompletionTime = (m.AvgCompletionTime*float64(m.TotalTasks-1) + secs) / float64(m.TotalTasks)
	}

	now := time.Now()
	m.LastUsed = &now

	advanceSkill(agent)

	return r.save()
}

// advanceSkill promotes an agent one level at a time as it accumulates
// successful work. Levels never regress.
func advanceSkill(agent *models.AgentDefinition) {
	tasks := agent.Metrics.TotalTasks
	rate := agent.Metrics.SuccessRate()

	switch {
	case tasks >= 50 && rate >= 90 && agent.SkillLevel == models.SkillExpert:
		agent.SkillLevel = models.SkillMaster
	case tasks >= 20 && rate >= 85 && agent.SkillLevel == models.SkillIntermediate:
		agent.SkillLevel = models.SkillExpert
	case tasks >= 5 && rate >= 75 && agent.SkillLevel == models.SkillNovice:
		agent.SkillLevel = models.SkillIntermediate
	}
}

// Stats summarizes the registry for reporting.
type Stats struct {
	TotalAgents       int                       `json:"total_agents"`
	TotalTasks        int                       `json:"total_tasks_completed"`
	TotalCost         float64                   `json:"total_cost"`
	SkillDistribution map[models.SkillLevel]int `json:"skill_distribution"`
}

// Stats returns registry-wide statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		TotalAgents: len(r.agents),
		SkillDistribution: map[models.SkillLevel]int{
			models.SkillNovice:       0,
			models.SkillIntermediate: 0,
			models.SkillExpert:       0,
			models.SkillMaster:       0,
		},
	}
	for _, agent := range r.agents {
		s.TotalTasks += agent.Metrics.TotalTasks
		s.TotalCost += agent.Metrics.TotalCost
		s.SkillDistribution[agent.SkillLevel]++
	}
	return s
}

// Validate checks every definition for structural problems and
// returns one error per defect found.
func (r *Registry) Validate() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []error
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, key := range names {
		agent := r.agents[key]
		if agent.Name == "" {
			problems = append(problems, fmt.Errorf("agent %q: name is empty", key))
		} else if agent.Name != key {
			problems = append(problems, fmt.Errorf("agent %q: name %q does not match registry key", key, agent.Name))
		}
		if agent.Description == "" {
			problems = append(problems, fmt.Errorf("agent %q: description is empty", key))
		}
		if len(agent.Tools) == 0 {
			problems = append(problems, fmt.Errorf("agent %q: no tools configured", key))
		}
		if len(agent.Capabilities) == 0 {
			problems = append(problems, fmt.Errorf("agent %q: no capabilities configured", key))
		}
		if agent.Model == "" {
			problems = append(problems, fmt.Errorf("agent %q: model is empty", key))
		}
		if !agent.SkillLevel.Valid() {
			problems = append(problems, fmt.Errorf("agent %q: invalid skill level %q", key, agent.SkillLevel))
		}
	}
	return problems
}

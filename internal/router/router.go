// Package router analyzes task descriptions and selects the agents
// best suited to execute them.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/pkg/models"
)

// taskPattern maps a description pattern to a task type and the
// capabilities it implies. Patterns are checked in order; the first
// match wins.
type taskPattern struct {
	re           *regexp.Regexp
	taskType     string
	capabilities []string
}

var taskPatterns = []taskPattern{
	{
		regexp.MustCompile(`\b(review|analyze|examine|inspect)\s+(code|implementation|module|function)`),
		"code_analysis",
		[]string{"code_review", "architecture", "best_practices"},
	},
	{
		regexp.MustCompile(`\b(implement|create|build|add|write)\s+(feature|functionality|function|class|module)`),
		"implementation",
		[]string{"implementation", "feature_development"},
	},
	{
		regexp.MustCompile(`\b(refactor|improve|optimize|clean\s*up)\s+(code|implementation)`),
		"refactoring",
		[]string{"refactoring", "code_review", "implementation"},
	},
	{
		regexp.MustCompile(`\b(fix|resolve|debug)\s+(bug|issue|error|problem)`),
		"bug_fixing",
		[]string{"bug_fixing", "implementation"},
	},
	{
		regexp.MustCompile(`\b(test|validate|verify|check)\s+(code|functionality|feature|implementation)`),
		"testing",
		[]string{"testing", "qa", "validation"},
	},
	{
		regexp.MustCompile(`\b(research|investigate|find|search\s*for)\s+(documentation|library|best\s*practice|solution)`),
		"research",
		[]string{"research", "documentation", "best_practices"},
	},
	{
		regexp.MustCompile(`\b(document|write\s*docs|create\s*documentation|add\s*comments)`),
		"documentation",
		[]string{"documentation", "technical_writing"},
	},
	{
		regexp.MustCompile(`\b(deploy|build|setup|configure)\s+(application|environment|pipeline|infrastructure)`),
		"devops",
		[]string{"devops", "deployment", "environment"},
	},
	{
		regexp.MustCompile(`\b(docker|containerize|kubernetes)`),
		"devops",
		[]string{"devops", "docker"},
	},
}

// languagePatterns map description mentions to language capabilities.
var languagePatterns = []struct {
	re       *regexp.Regexp
	language string
}{
	{regexp.MustCompile(`\bpython\b`), "python"},
	{regexp.MustCompile(`\bjavascript\b|\bjs\b|\bnode\b`), "javascript"},
	{regexp.MustCompile(`\btypescript\b|\bts\b`), "typescript"},
	{regexp.MustCompile(`\bjava\b`), "java"},
	{regexp.MustCompile(`\bgo\b|\bgolang\b`), "go"},
	{regexp.MustCompile(`\brust\b`), "rust"},
	{regexp.MustCompile(`\bc\+\+|\bcpp\b`), "cpp"},
}

// complexityHigh are signals of structurally demanding work.
var complexityHigh = []string{
	"refactor", "architecture", "system", "multiple", "complex",
	"scalable", "distributed", "migration",
}

// complexityMedium are signals of moderately involved work.
var complexityMedium = []string{
	"implement", "feature", "integration", "api", "module",
}

// sequentialKeywords indicate ordered steps that rule out parallel runs.
var sequentialKeywords = []string{
	"then", "after", "before", "first", "next", "finally", "step",
}

// parallelizableTypes are task types whose work divides naturally.
var parallelizableTypes = map[string]bool{
	"research":      true,
	"code_analysis": true,
	"testing":       true,
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"up": true, "about": true, "into": true, "through": true, "during": true,
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// Router analyzes tasks and assigns agents from a registry.
type Router struct {
	registry *registry.Registry
}

// New creates a Router backed by the given registry.
func New(reg *registry.Registry) *Router {
	return &Router{registry: reg}
}

// Analyze classifies a task description.
func (r *Router) Analyze(description string) models.TaskAnalysis {
	lower := strings.ToLower(description)

	taskType := "general"
	var capabilities []string
	for _, p := range taskPatterns {
		if p.re.MatchString(lower) {
			taskType = p.taskType
			capabilities = append(capabilities, p.capabilities...)
			break
		}
	}

	for _, p := range languagePatterns {
		if p.re.MatchString(lower) {
			capabilities = append(capabilities, p.language)
		}
	}

	complexity := classifyComplexity(lower)

	return models.TaskAnalysis{
		TaskType:             taskType,
		RequiredCapabilities: dedupe(capabilities),
		Complexity:           complexity,
		CanParallelize:       canParallelize(lower, taskType),
		EstimatedSubtasks:    estimateSubtasks(lower, complexity),
		Keywords:             extractKeywords(lower),
	}
}

func classifyComplexity(lower string) models.Complexity {
	high := 0
	for _, kw := range complexityHigh {
		if strings.Contains(lower, kw) {
			high++
		}
	}
	medium := 0
	for _, kw := range complexityMedium {
		if strings.Contains(lower, kw) {
			medium++
		}
	}

	switch {
	case high >= 2:
		return models.ComplexityComplex
	case high >= 1 || medium >= 2:
		return models.ComplexityMedium
	default:
		return models.ComplexitySimple
	}
}

func canParallelize(lower, taskType string) bool {
	if !parallelizableTypes[taskType] {
		return false
	}
	for _, kw := range sequentialKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func estimateSubtasks(lower string, complexity models.Complexity) int {
	markers := []string{"and", ",", ";", "then", "also", "plus"}
	count := 1
	for _, m := range markers {
		count += strings.Count(lower, m)
	}

	estimated := int(float64(count) * complexity.Multiplier())
	if estimated < 1 {
		return 1
	}
	return estimated
}

// extractKeywords returns up to 10 meaningful words from a description.
func extractKeywords(lower string) []string {
	words := wordRe.FindAllString(lower, -1)
	var keywords []string
	for _, w := range words {
		if stopWords[w] || len(w) <= 3 {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 10 {
			break
		}
	}
	return keywords
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// SelectAgents chooses up to maxAgents agents for a task: a primary
// picked by capability score, then supporting agents by task type.
// Falls back to code_writer when nothing matches.
func (r *Router) SelectAgents(description string, maxAgents int) ([]models.Assignment, models.TaskAnalysis) {
	analysis := r.Analyze(description)
	var assignments []models.Assignment

	if len(analysis.RequiredCapabilities) > 0 {
		primary, err := r.registry.FindBest(analysis.RequiredCapabilities, nil)
		if err == nil {
			caps := analysis.RequiredCapabilities
			if len(caps) > 2 {
				caps = caps[:2]
			}
			assignments = append(assignments, models.Assignment{
				Agent:      primary,
				Priority:   models.PriorityPrimary,
				Confidence: confidence(primary, analysis),
				Reason:     fmt.Sprintf("Best match for %s", strings.Join(caps, ", ")),
			})
		}
	}

	exclude := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		exclude[a.Agent.Name] = true
	}
	for _, support := range r.supportingAgents(analysis, exclude) {
		if len(assignments) >= maxAgents {
			break
		}
		assignments = append(assignments, support)
	}

	if len(assignments) == 0 {
		if fallback, err := r.registry.Get("code_writer"); err == nil {
			assignments = append(assignments, models.Assignment{
				Agent:      fallback,
				Priority:   models.PriorityPrimary,
				Confidence: 0,
				Reason:     "Default agent for general tasks",
			})
		}
	}

	return assignments, analysis
}

// confidence scores how well an agent fits an analysis, capped at 0.95
// so no assignment ever claims certainty.
func confidence(agent *models.AgentDefinition, analysis models.TaskAnalysis) float64 {
	overlap := 0.5
	if len(analysis.RequiredCapabilities) > 0 {
		agentCaps := make(map[string]bool, len(agent.Capabilities))
		for _, c := range agent.Capabilities {
			agentCaps[strings.ToLower(c)] = true
		}
		matched := 0
		for _, c := range analysis.RequiredCapabilities {
			if agentCaps[strings.ToLower(c)] {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(analysis.RequiredCapabilities))
	}

	successRate := 0.5
	if agent.Metrics.TotalTasks > 0 {
		successRate = agent.Metrics.SuccessRate() / 100
	}

	score := overlap * successRate * agent.SkillLevel.ConfidenceMultiplier()
	if score > 0.95 {
		return 0.95
	}
	return score
}

// supportingAgents picks secondary agents implied by the task shape.
func (r *Router) supportingAgents(analysis models.TaskAnalysis, exclude map[string]bool) []models.Assignment {
	var supporting []models.Assignment

	add := func(name string, priority models.AssignmentPriority, conf float64, reason string) {
		if exclude[name] {
			return
		}
		agent, err := r.registry.Get(name)
		if err != nil {
			return
		}
		supporting = append(supporting, models.Assignment{
			Agent:      agent,
			Priority:   priority,
			Confidence: conf,
			Reason:     reason,
		})
	}

	switch analysis.TaskType {
	case "implementation", "bug_fixing", "refactoring":
		add("tester", models.PrioritySupporting, 0.8, "Validate implementation")
	}

	if analysis.Complexity == models.ComplexityComplex {
		add("researcher", models.PriorityOptional, 0.6, "Research best practices for complex task")
	}

	if analysis.TaskType == "implementation" &&
		(analysis.Complexity == models.ComplexityMedium || analysis.Complexity == models.ComplexityComplex) {
		add("code_analyst", models.PrioritySupporting, 0.7, "Review implementation quality")
	}

	return supporting
}

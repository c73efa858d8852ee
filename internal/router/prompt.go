package router

import (
	"fmt"
	"strings"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// BuildPrompt assembles the task prompt for an agent: the task text,
// any context the caller supplied, and the agent's role line.
func BuildPrompt(agent *models.AgentDefinition, description string, ctx *models.TaskContext) string {
	parts := []string{description}

	if ctx != nil {
		if len(ctx.Files) > 0 {
			parts = append(parts, fmt.Sprintf("\nRelevant files: %s", strings.Join(ctx.Files, ", ")))
		}
		if len(ctx.PreviousResults) > 0 {
			parts = append(parts, fmt.Sprintf("\nPrevious results: %s", strings.Join(ctx.PreviousResults, "; ")))
		}
		if len(ctx.Constraints) > 0 {
			parts = append(parts, fmt.Sprintf("\nConstraints: %s", strings.Join(ctx.Constraints, "; ")))
		}
	}

	parts = append(parts, fmt.Sprintf("\nYou are the %s. Focus on your area of expertise.", agent.Role))

	return strings.Join(parts, "\n")
}

// BuildFullPrompt prepends agent instructions and appends the standing
// requirements block. This is what actually goes to the executor.
func BuildFullPrompt(instructions, prompt string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n---\n\nTASK:\n")
	b.WriteString(prompt)
	b.WriteString(`

REQUIREMENTS:
1. Create actual files with complete working code
2. Do not just describe what you would do
3. Write the files to the current directory
`)
	return b.String()
}

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ensemble-cli/ensemble/pkg/models"
)

// InstructionsDir is where per-agent instruction files live, relative
// to the working directory. The claude CLI reads the same layout.
const InstructionsDir = ".claude/agents"

// Instructions returns the markdown instruction file for an agent,
// falling back to a one-line role statement when no file exists.
func Instructions(baseDir string, agent *models.AgentDefinition) string {
	path := filepath.Join(baseDir, InstructionsDir, agent.Name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("You are %s: %s", agent.Name, agent.Description)
	}
	return strings.TrimSpace(string(data))
}

// WriteInstructions materializes an instruction file for an agent from
// its definition. Used by `ensemble init` so users have files to edit.
func WriteInstructions(baseDir string, agent *models.AgentDefinition) error {
	dir := filepath.Join(baseDir, InstructionsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create instructions directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", agent.Name)
	fmt.Fprintf(&b, "%s\n\n", agent.Description)
	fmt.Fprintf(&b, "## Role\n\n%s\n\n", agent.Role)
	fmt.Fprintf(&b, "## System Prompt\n\n%s\n", agent.SystemPrompt)

	path := filepath.Join(dir, agent.Name+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write instructions for %s: %w", agent.Name, err)
	}
	return nil
}

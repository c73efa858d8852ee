package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/registry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the current directory for Ensemble",
	Long: `Set up the directory layout Ensemble expects: the agent registry
with the six default specialists, per-agent instruction files, the
shipped workflow templates, and the workspace, history, and project
directories.

Running init in an already initialized directory is safe; existing
files are never overwritten.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	color.Cyan("Initializing Ensemble in %s", a.baseDir)

	dirs := []string{
		a.cfg.Paths.AgentsDir,
		a.cfg.Paths.WorkspaceDir,
		a.cfg.Paths.ProjectsDir,
		filepath.Join(a.cfg.Paths.WorkflowsDir, "history"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(a.baseDir, dir), 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	// newApp already seeded the registry with defaults when the file
	// was missing; write the claude CLI instruction files for each.
	for _, agent := range a.registry.All() {
		if err := registry.WriteInstructions(a.baseDir, agent); err != nil {
			return err
		}
	}
	color.Green("✓ %d agents registered at %s", a.registry.Count(), a.registry.Path())

	if err := a.workflows.SeedTemplates(); err != nil {
		return err
	}
	entries, err := a.workflows.List()
	if err != nil {
		return err
	}
	color.Green("✓ %d workflow templates at %s", len(entries), a.workflows.Root())

	color.Green("✓ workspace, projects, and history directories created")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  ensemble agents list")
	fmt.Println("  ensemble run \"your first task\"")
	return nil
}

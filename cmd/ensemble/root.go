package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Multi-agent orchestrator for the claude CLI",
	Long: `Ensemble coordinates specialist Claude agents against development tasks.

It analyzes a task description, picks the best-suited agents from a
registry, runs them through the claude CLI (or the Anthropic API) in
isolated workspaces, verifies they actually produced files, and records
every outcome so agent selection improves over time.

Multi-step work runs through workflow templates with per-step output
validation and quality gates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect and validate the agent registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents with their track record",
	RunE:  runAgentsList,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one agent's full definition and metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

var agentsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every agent definition for problems",
	RunE:  runAgentsValidate,
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
	agentsCmd.AddCommand(agentsValidateCmd)
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.registry.Stats()
	color.Cyan("%d agents, %d tasks completed, $%.4f total cost\n",
		stats.TotalAgents, stats.TotalTasks, stats.TotalCost)

	for _, agent := range a.registry.All() {
		fmt.Printf("%-18s %-12s %s\n", color.YellowString(agent.Name), agent.SkillLevel, agent.Description)
		if agent.Metrics.TotalTasks > 0 {
			fmt.Printf("%-18s %d tasks, %.0f%% success\n", "",
				agent.Metrics.TotalTasks, agent.Metrics.SuccessRate())
		}
	}
	return nil
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	agent, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}

	color.Cyan(agent.Name)
	fmt.Printf("Description:  %s\n", agent.Description)
	fmt.Printf("Role:         %s\n", agent.Role)
	fmt.Printf("Model:        %s\n", agent.Model)
	fmt.Printf("Skill level:  %s\n", agent.SkillLevel)
	fmt.Printf("Tools:        %s\n", strings.Join(agent.Tools, ", "))
	fmt.Printf("Capabilities: %s\n", strings.Join(agent.Capabilities, ", "))

	m := agent.Metrics
	fmt.Println("\nMetrics:")
	fmt.Printf("  Tasks:        %d (%d ok, %d failed)\n", m.TotalTasks, m.SuccessfulTasks, m.FailedTasks)
	if m.TotalTasks > 0 {
		fmt.Printf("  Success rate: %.1f%%\n", m.SuccessRate())
		fmt.Printf("  Avg time:     %.1fs\n", m.AvgCompletionTime)
	}
	fmt.Printf("  Tokens:       %d\n", m.TotalTokens)
	fmt.Printf("  Cost:         $%.4f\n", m.TotalCost)

	for _, s := range a.skills.SuggestImprovements(agent.Name) {
		fmt.Printf("\nSuggestion: %s\n", s)
	}
	return nil
}

func runAgentsValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	problems := a.registry.Validate()
	if len(problems) == 0 {
		color.Green("✓ all %d agent definitions are valid", a.registry.Count())
		return nil
	}
	for _, p := range problems {
		color.Red("✗ %v", p)
	}
	return fmt.Errorf("%d problems found", len(problems))
}

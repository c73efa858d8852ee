package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage long-running projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Scaffold a new project directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE:  runProjectList,
}

var projectInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show one project's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectInfo,
}

var projectStatusCmd = &cobra.Command{
	Use:   "status <name> <status>",
	Short: "Set a project's status",
	Long:  "Set a project's status to one of: initialized, in-progress, completed, archived.",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectStatus,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project and all its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectInfoCmd)
	projectCmd.AddCommand(projectStatusCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	cfg, err := a.projects.Create(args[0], description)
	if err != nil {
		return err
	}
	color.Green("Created project %s at %s", cfg.Name, a.projects.Path(cfg.Name))
	fmt.Printf("Run tasks in it with: ensemble run \"...\" --project %s\n", cfg.Name)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.projects.List()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'ensemble project create <name>'.")
		return nil
	}

	for _, p := range projects {
		fmt.Printf("%-24s %-12s %s\n", color.YellowString(p.Name), p.Status, p.Description)
	}
	return nil
}

func runProjectInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.projects.Get(args[0])
	if err != nil {
		return err
	}

	color.Cyan(cfg.Name)
	fmt.Printf("Status:      %s\n", cfg.Status)
	fmt.Printf("Version:     %s\n", cfg.Version)
	fmt.Printf("Created:     %s\n", cfg.Created.Format("2006-01-02"))
	fmt.Printf("Path:        %s\n", a.projects.Path(cfg.Name))
	if cfg.Description != "" {
		fmt.Printf("Description: %s\n", cfg.Description)
	}
	if len(cfg.PhasesCompleted) > 0 {
		fmt.Printf("Phases:      %s\n", strings.Join(cfg.PhasesCompleted, ", "))
	}
	return nil
}

func runProjectStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.projects.SetStatus(args[0], args[1]); err != nil {
		return err
	}
	color.Green("%s is now %s", args[0], args[1])
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.projects.Exists(args[0]) {
		return fmt.Errorf("project %q does not exist", args[0])
	}
	if !confirmPrompt(fmt.Sprintf("Delete project %s and all its files?", args[0])) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := a.projects.Delete(args[0]); err != nil {
		return err
	}
	color.Green("Deleted %s", args[0])
	return nil
}

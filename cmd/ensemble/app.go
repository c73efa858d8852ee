package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ensemble-cli/ensemble/internal/api"
	"github.com/ensemble-cli/ensemble/internal/claude"
	"github.com/ensemble-cli/ensemble/internal/config"
	"github.com/ensemble-cli/ensemble/internal/history"
	"github.com/ensemble-cli/ensemble/internal/learning"
	"github.com/ensemble-cli/ensemble/internal/orchestrator"
	"github.com/ensemble-cli/ensemble/internal/project"
	"github.com/ensemble-cli/ensemble/internal/registry"
	"github.com/ensemble-cli/ensemble/internal/router"
	"github.com/ensemble-cli/ensemble/internal/state"
	"github.com/ensemble-cli/ensemble/internal/workflow"
)

// app wires the pieces every command needs. Commands build only what
// they use via the partial constructors below.
type app struct {
	cfg     *config.Config
	baseDir string

	registry  *registry.Registry
	router    *router.Router
	orch      *orchestrator.Orchestrator
	workflows *workflow.Manager
	tracker   *history.Tracker
	skills    *learning.SkillsHistory
	projects  *project.Manager
	db        *state.DB
}

// newApp loads config and opens everything rooted at the current
// directory.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	a := &app{cfg: cfg, baseDir: baseDir}

	a.registry, err = registry.Load(filepath.Join(baseDir, cfg.Paths.AgentsDir, "registry.json"))
	if err != nil {
		return nil, err
	}
	a.router = router.New(a.registry)

	a.workflows, err = workflow.NewManager(filepath.Join(baseDir, cfg.Paths.WorkflowsDir))
	if err != nil {
		return nil, err
	}
	a.tracker, err = history.NewTracker(filepath.Join(baseDir, cfg.Paths.WorkflowsDir, "history"))
	if err != nil {
		return nil, err
	}
	a.skills, err = learning.LoadSkills(filepath.Join(baseDir, cfg.Paths.AgentsDir, "skills_history.json"))
	if err != nil {
		return nil, err
	}
	a.projects, err = project.NewManager(filepath.Join(baseDir, cfg.Paths.ProjectsDir))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// buildOrchestrator selects the executor and assembles the
// orchestrator with learning and state recording attached.
func (a *app) buildOrchestrator() error {
	var runner claude.Runner
	expectFiles := true

	switch a.cfg.Defaults.Executor {
	case config.ExecutorAPI:
		client, err := api.NewClient(api.ClientConfig{
			Model:         a.cfg.Defaults.Model,
			APIKey:        a.cfg.Anthropic.APIKey,
			UseAWSBedrock: a.cfg.AWS.UseBedrock,
			AWSRegion:     a.cfg.AWS.Region,
			AWSProfile:    a.cfg.AWS.Profile,
		})
		if err != nil {
			return err
		}
		runner = api.NewRunner(client)
		// The API executor returns text only; it cannot create files.
		expectFiles = false
	default:
		if err := claude.CheckInstalled(); err != nil {
			return err
		}
		runner = claude.NewCLIRunner()
	}

	a.orch = orchestrator.New(a.registry, a.router, runner, a.cfg, a.baseDir, expectFiles)
	a.orch.SetOutcomeRecorder(a.skills)

	db, err := state.OpenProject(a.baseDir)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return err
	}
	a.db = db
	a.orch.SetRunRecorder(db)
	return nil
}

// openStateDB opens the project state database read-only commands use.
func (a *app) openStateDB() (*state.DB, error) {
	db, err := state.OpenProject(a.baseDir)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases held resources.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

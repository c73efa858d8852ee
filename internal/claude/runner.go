package claude

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// RunRequest describes one agent invocation.
type RunRequest struct {
	// Prompt is the full prompt sent to the executor.
	Prompt string
	// SystemPrompt is the agent's system prompt. The CLI executor
	// folds it into the prompt; the API executor sends it separately.
	SystemPrompt string
	// Model selects the model, empty for the executor default.
	Model string
	// AllowedTools restricts tool use for executors that support it.
	AllowedTools []string
	// Dir is the working directory for the run.
	Dir string
	// Timeout bounds the invocation. Zero means no limit.
	Timeout time.Duration
}

// RunResult is the raw outcome of one invocation.
type RunResult struct {
	Output     string
	Stderr     string
	TokensUsed int64
	Cost       float64
	Duration   time.Duration
}

// Runner executes a single agent invocation. Implementations wrap the
// claude CLI or the Anthropic API.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// CLIRunner runs requests through the claude CLI subprocess.
type CLIRunner struct{}

var _ Runner = (*CLIRunner)(nil)

// NewCLIRunner returns a Runner backed by the claude CLI.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{}
}

// CheckInstalled verifies the claude CLI is available in PATH.
func CheckInstalled() error {
	if _, err := exec.LookPath("claude"); err != nil {
		return fmt.Errorf("claude CLI not found in PATH\n\n" +
			"Ensemble requires the Claude Code CLI to run agents.\n\n" +
			"Install it with:\n" +
			"  npm install -g @anthropic-ai/claude-code\n\n" +
			"For more information, visit:\n" +
			"  https://docs.anthropic.com/en/docs/claude-code")
	}
	return nil
}

// Run starts a claude subprocess, waits for it to finish, and returns
// its captured output. A timeout in the request bounds the run.
func (r *CLIRunner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// The CLI has no separate system prompt channel in print mode, so
	// instructions ride at the top of the prompt itself.
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + prompt
	}

	proc := NewProcess(ctx)
	opts := &StartOptions{
		Model:        req.Model,
		AllowedTools: req.AllowedTools,
		Dir:          req.Dir,
	}

	start := time.Now()
	if err := proc.Start(prompt, opts); err != nil {
		return nil, err
	}

	err := proc.Wait()
	result := &RunResult{
		Output:   proc.Output(),
		Stderr:   proc.Stderr(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("execution timed out after %s", req.Timeout)
		}
		return result, err
	}
	return result, nil
}

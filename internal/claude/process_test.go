package claude

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// stubClaude installs a shell script in place of the claude binary for
// the duration of the test.
func stubClaude(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "claude-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	orig := claudeCommand
	claudeCommand = path
	t.Cleanup(func() { claudeCommand = orig })
}

func TestProcess_CapturesStdout(t *testing.T) {
	// The stub echoes stdin back, so output must equal the prompt.
	stubClaude(t, "cat")

	proc := NewProcess(context.Background())
	if err := proc.Start("hello agent", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := proc.Output(); got != "hello agent" {
		t.Errorf("Output() = %q, want %q", got, "hello agent")
	}
}

func TestProcess_CapturesStderrOnFailure(t *testing.T) {
	stubClaude(t, "echo boom >&2; exit 3")

	proc := NewProcess(context.Background())
	if err := proc.Start("prompt", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := proc.Wait()
	if err == nil {
		t.Fatal("Wait() error = nil, want exit error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Wait() error = %v, want stderr included", err)
	}
	if !strings.Contains(proc.Stderr(), "boom") {
		t.Errorf("Stderr() = %q, want boom", proc.Stderr())
	}
}

func TestProcess_StartTwice(t *testing.T) {
	stubClaude(t, "cat")

	proc := NewProcess(context.Background())
	if err := proc.Start("p", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := proc.Start("p", nil); err == nil {
		t.Error("second Start() error = nil, want already started")
	}
	proc.Wait()
}

func TestProcess_WaitBeforeStart(t *testing.T) {
	proc := NewProcess(context.Background())
	if err := proc.Wait(); err == nil {
		t.Error("Wait() before Start = nil, want error")
	}
}

func TestProcess_KillBeforeStart(t *testing.T) {
	proc := NewProcess(context.Background())
	if err := proc.Kill(); err != nil {
		t.Errorf("Kill() before Start = %v, want nil", err)
	}
	if proc.PID() != 0 {
		t.Errorf("PID() = %d, want 0", proc.PID())
	}
}

func TestCLIRunner_Run(t *testing.T) {
	stubClaude(t, "cat")

	runner := NewCLIRunner()
	res, err := runner.Run(context.Background(), RunRequest{
		Prompt:       "do the task",
		SystemPrompt: "you are a tester",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// System prompt rides at the top of the prompt in CLI mode.
	if !strings.HasPrefix(res.Output, "you are a tester") {
		t.Errorf("Output = %q, want system prompt first", res.Output)
	}
	if !strings.Contains(res.Output, "do the task") {
		t.Errorf("Output = %q, want task included", res.Output)
	}
	if res.Duration <= 0 {
		t.Error("Duration not recorded")
	}
}

func TestCLIRunner_Timeout(t *testing.T) {
	stubClaude(t, "sleep 5")

	runner := NewCLIRunner()
	start := time.Now()
	_, err := runner.Run(context.Background(), RunRequest{
		Prompt:  "slow task",
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("Run() error = nil, want timeout")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Run() error = %v, want timeout message", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Run() took %v, timeout did not kill the process", elapsed)
	}
}

// Package claude invokes the claude CLI as a subprocess and captures
// its output for the orchestrator.
package claude

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// claudeCommand is the binary invoked for agent runs. Tests swap it
// for a stub.
var claudeCommand = "claude"

// Process manages a single claude CLI subprocess.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	started   bool
	outBuf    bytes.Buffer
	stderrBuf bytes.Buffer
	done      chan struct{}
	once      sync.Once
}

// StartOptions contains optional parameters for starting a process.
type StartOptions struct {
	// Model overrides the CLI's default model.
	Model string
	// AllowedTools restricts which tools the CLI may use. Empty means
	// the CLI default applies.
	AllowedTools []string
	// Dir is the working directory for the subprocess.
	Dir string
}

// NewProcess creates a Process bound to the given context. Cancelling
// the context kills the subprocess.
func NewProcess(ctx context.Context) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the claude subprocess in print mode. The prompt is
// written to stdin so arbitrarily long prompts avoid argv limits.
func (p *Process) Start(prompt string, opts *StartOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("process already started")
	}

	args := []string{"--print"}
	if opts != nil && opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts != nil && len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}

	p.cmd = exec.CommandContext(p.ctx, claudeCommand, args...)
	if opts != nil && opts.Dir != "" {
		p.cmd.Dir = opts.Dir
	}
	p.cmd.Stdin = strings.NewReader(prompt)

	var err error
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	p.started = true

	go p.readStdout()
	go p.readStderr()

	return nil
}

// readStdout drains stdout into the output buffer.
func (p *Process) readStdout() {
	defer close(p.done)

	reader := bufio.NewReader(p.stdout)
	buf := make([]byte, 32*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.outBuf.Write(buf[:n])
			p.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// readStderr drains stderr incrementally so diagnostics survive even
// when the process hangs and gets killed.
func (p *Process) readStderr() {
	scanner := bufio.NewScanner(p.stderr)
	buf := make([]byte, 16*1024)
	scanner.Buffer(buf, 256*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		p.mu.Lock()
		p.stderrBuf.Write(line)
		p.stderrBuf.WriteByte('\n')
		p.mu.Unlock()
	}
}

// Wait blocks until the process exits. On failure the returned error
// carries the exit state, any context cancellation, and captured stderr.
func (p *Process) Wait() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("process not started")
	}
	p.mu.Unlock()

	<-p.done

	err := p.cmd.Wait()
	if err != nil {
		errMsg := fmt.Sprintf("process exited with error: %v", err)
		if p.ctx.Err() != nil {
			errMsg += fmt.Sprintf(" (context: %v)", p.ctx.Err())
		}
		if stderr := p.Stderr(); stderr != "" {
			errMsg += fmt.Sprintf("; stderr: %s", strings.TrimSpace(stderr))
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

// Output returns everything the process wrote to stdout so far.
func (p *Process) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outBuf.String()
}

// Stderr returns everything the process wrote to stderr so far.
func (p *Process) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stderrBuf.String()
}

// Kill terminates the process immediately.
func (p *Process) Kill() error {
	p.once.Do(func() {
		p.cancel()
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// PID returns the process ID of the subprocess, or 0 if not started.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

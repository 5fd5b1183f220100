// Package runner supervises the command "tsembed watch -exec" starts after
// each successful compile. A rebuild stops the previous process before the
// next one starts, so at most one child runs at a time.
package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// stopGrace is how long a child gets to exit before it is killed.
const stopGrace = 5 * time.Second

// Runner manages one child process.
type Runner struct {
	command string
	args    []string
	workDir string

	// Env is appended to the parent environment.
	Env []string
	// Stdout and Stderr default to the parent's.
	Stdout io.Writer
	Stderr io.Writer
	// DisableStdin leaves the child without stdin, so the watcher keeps
	// the terminal.
	DisableStdin bool

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New creates a new process runner.
func New(command string, args []string, workDir string) *Runner {
	return &Runner{
		command: command,
		args:    args,
		workDir: workDir,
	}
}

// Parse splits a command line on whitespace into a runner. It returns nil for
// a blank line.
func Parse(commandLine, workDir string) *Runner {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	return New(fields[0], fields[1:], workDir)
}

// String returns the command line.
func (r *Runner) String() string {
	return strings.Join(append([]string{r.command}, r.args...), " ")
}

func (r *Runner) newCmd() *exec.Cmd {
	cmd := exec.Command(r.command, r.args...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if !r.DisableStdin {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

// Start starts the child process.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	configure(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.command, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	r.cmd, r.done = cmd, done
	return nil
}

// Stop terminates the child process and waits for it to exit. Stopping a
// runner that never started, or whose child already exited, is a no-op.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	default:
	}

	terminate(r.cmd.Process)
	select {
	case <-r.done:
	case <-time.After(stopGrace):
		kill(r.cmd.Process)
		<-r.done
	}
	return nil
}

// Restart stops and restarts the child process.
func (r *Runner) Restart() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Start()
}

// Wait blocks until the child process exits.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running returns true if the child process is running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil || r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code of the last process, or -1 while it runs or
// if it never started.
func (r *Runner) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.done == nil {
		return -1
	}
	select {
	case <-r.done:
		return r.cmd.ProcessState.ExitCode()
	default:
		return -1
	}
}

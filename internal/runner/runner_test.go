//go:build !windows

package runner

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRunner_StartStop(t *testing.T) {
	r := New("sleep", []string{"10"}, "")
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.Running() {
		t.Error("expected process to be running")
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.Running() {
		t.Error("expected process to be stopped")
	}
}

func TestRunner_Restart(t *testing.T) {
	r := New("sleep", []string{"10"}, "")
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if !r.Running() {
		t.Error("expected process to be running after restart")
	}
	r.Stop()
}

func TestRunner_StopWithoutStart(t *testing.T) {
	r := New("echo", []string{"hello"}, "")
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop without start should not error: %v", err)
	}
	if r.ExitCode() != -1 {
		t.Error("a runner that never started has no exit code")
	}
}

func TestRunner_StopAfterExit(t *testing.T) {
	r := New("true", nil, "")
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop after exit should not error: %v", err)
	}
}

func TestRunner_Wait(t *testing.T) {
	r := New("sleep", []string{"0.1"}, "")
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Wait timed out")
	}
}

func TestRunner_DisableStdin(t *testing.T) {
	// cat exits on EOF, which it only sees without an inherited stdin.
	r := New("cat", nil, "")
	r.DisableStdin = true
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		r.Stop()
		t.Fatal("cat should have exited immediately with no stdin")
	}
}

func TestRunner_OutputAndEnv(t *testing.T) {
	var out bytes.Buffer
	r := New("sh", []string{"-c", `echo "$TSEMBED_OUTPUT"`}, t.TempDir())
	r.Env = []string{"TSEMBED_OUTPUT=dist/script1.js"}
	r.Stdout = &out
	r.DisableStdin = true
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()

	if got := strings.TrimSpace(out.String()); got != "dist/script1.js" {
		t.Errorf("output = %q", got)
	}
	if r.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d", r.ExitCode())
	}
}

func TestRunner_ExitCode(t *testing.T) {
	r := New("false", nil, "")
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()
	if r.ExitCode() != 1 {
		t.Errorf("ExitCode() = %d, want 1", r.ExitCode())
	}
}

func TestParse(t *testing.T) {
	if Parse("   ", "") != nil {
		t.Error("blank command line must parse to nil")
	}
	r := Parse("node  dist/script1.js --flag", "")
	if r.String() != "node dist/script1.js --flag" {
		t.Errorf("String() = %q", r.String())
	}
}

//go:build !windows

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// configure puts the child in its own process group so terminate reaches
// anything it spawns.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) { signalGroup(p, syscall.SIGTERM) }

func kill(p *os.Process) { signalGroup(p, syscall.SIGKILL) }

func signalGroup(p *os.Process, sig syscall.Signal) {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil {
		syscall.Kill(-pgid, sig)
		return
	}
	p.Signal(sig)
}

//go:build windows

package runner

import (
	"os"
	"os/exec"
)

func configure(*exec.Cmd) {}

// terminate kills outright; Windows has no SIGTERM.
func terminate(p *os.Process) { p.Kill() }

func kill(p *os.Process) { p.Kill() }

//go:build windows

package process

import (
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

// Windows has no SIGINT for child processes; stopping always kills.
func interruptProcess(p *os.Process) error {
	return p.Kill()
}

func killProcess(p *os.Process) error {
	return p.Kill()
}

func signalExitCode(*os.ProcessState) (int, bool) {
	return 0, false
}

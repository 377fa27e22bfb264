//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// configureCommand puts the child in its own process group so terminal
// signals reach only the supervisor, which forwards them.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptProcess(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}

// killProcess kills the whole process group, falling back to the process.
func killProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}

// signalExitCode maps death by signal to the shell convention 128+n.
func signalExitCode(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return 128 + int(ws.Signal()), true
}

//go:build !windows

package process

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// shellCommand wraps the raw command string for the platform shell.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("sh", "-c", command)
}

// configureProcessGroup ensures the command runs in its own process group so
// that signals can be delivered to the entire tree (parent + children).
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func processGroupID(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		return 0
	}
	return pgid
}

// groupTerminator signals the negated process-group id so every descendant
// receives the signal along with the direct child.
type groupTerminator struct {
	cmd  *exec.Cmd
	pgid int
}

func newTerminator(cmd *exec.Cmd, pgid int) terminator {
	return &groupTerminator{cmd: cmd, pgid: pgid}
}

func (t *groupTerminator) Terminate(force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}

	if t.pgid > 0 {
		return unix.Kill(-t.pgid, sig)
	}

	// Group id was unavailable; fall back to the direct child.
	if t.cmd.Process == nil {
		return fmt.Errorf("no process to terminate")
	}
	if force {
		return t.cmd.Process.Kill()
	}
	return t.cmd.Process.Signal(syscall.SIGTERM)
}

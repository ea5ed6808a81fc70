//go:build windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

func shellCommand(command string) *exec.Cmd {
	shell := os.Getenv("COMSPEC")
	if shell == "" {
		shell = "cmd.exe"
	}
	return exec.Command(shell, "/c", command)
}

// Windows has no POSIX process groups; taskkill walks the descendant tree
// by pid instead, so the command needs no special configuration.
func configureProcessGroup(cmd *exec.Cmd) {}

func processGroupID(cmd *exec.Cmd) int {
	return 0
}

// taskkillTerminator shells out to taskkill with /T to take down the whole
// descendant tree of the child pid. The forced stage adds /F.
type taskkillTerminator struct {
	cmd *exec.Cmd
}

func newTerminator(cmd *exec.Cmd, _ int) terminator {
	return &taskkillTerminator{cmd: cmd}
}

func (t *taskkillTerminator) Terminate(force bool) error {
	if t.cmd.Process == nil {
		return fmt.Errorf("no process to terminate")
	}

	args := []string{"/T", "/PID", strconv.Itoa(t.cmd.Process.Pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}

	kill := exec.Command("taskkill", args...)
	if err := kill.Run(); err != nil {
		if force {
			// Last resort so the reap can complete.
			return t.cmd.Process.Kill()
		}
		return err
	}
	return nil
}

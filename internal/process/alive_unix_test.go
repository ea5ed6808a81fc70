//go:build !windows

package process

import "golang.org/x/sys/unix"

// processAlive reports whether a pid still exists (signal 0 probe).
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil
}

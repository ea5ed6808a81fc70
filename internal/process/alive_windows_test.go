//go:build windows

package process

// The tests that probe liveness are skipped on windows; this stub keeps the
// package compiling.
func processAlive(pid int) bool {
	return false
}

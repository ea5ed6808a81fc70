//go:build linux

package process

import (
	"golang.org/x/sys/unix"

	"github.com/haasonsaas/ocode/internal/logger"
)

// applyResourceLimits sets rlimits on the already-started child. Failures
// are logged and ignored: the limits are best effort, not a precondition.
func applyResourceLimits(pid int, limits Limits, log *logger.Logger) {
	if limits.CPUSeconds > 0 {
		lim := unix.Rlimit{Cur: uint64(limits.CPUSeconds), Max: uint64(limits.CPUSeconds)}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &lim, nil); err != nil {
			log.Warn("failed to set CPU limit on pid=%d: %v", pid, err)
		}
	}

	if limits.MemoryBytes > 0 {
		lim := unix.Rlimit{Cur: uint64(limits.MemoryBytes), Max: uint64(limits.MemoryBytes)}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &lim, nil); err != nil {
			log.Warn("failed to set memory limit on pid=%d: %v", pid, err)
		}
	}
}

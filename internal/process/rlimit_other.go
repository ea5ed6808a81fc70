//go:build !linux

package process

import "github.com/haasonsaas/ocode/internal/logger"

// Resource limits on a running child require prlimit, which only Linux
// exposes. Elsewhere this is a documented no-op.
func applyResourceLimits(pid int, limits Limits, log *logger.Logger) {
	if limits.CPUSeconds > 0 || limits.MemoryBytes > 0 {
		log.Debug("resource limits requested but unsupported on this platform (pid=%d)", pid)
	}
}

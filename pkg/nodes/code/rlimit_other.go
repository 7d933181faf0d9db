//go:build !linux

package code

// applyLimits is a no-op where prlimit is unavailable; the wall-clock
// timeout still bounds the run.
func applyLimits(pid, memoryMB, cpuSeconds int) error {
	return nil
}

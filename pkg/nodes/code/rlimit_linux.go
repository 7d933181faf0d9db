//go:build linux

package code

import "golang.org/x/sys/unix"

// applyLimits caps the child's address space and CPU seconds. The limits
// land shortly after the process starts; the wall-clock timeout remains the
// backstop for anything allocated in that window.
func applyLimits(pid, memoryMB, cpuSeconds int) error {
	addressSpace := uint64(memoryMB) << 20

	if err := unix.Prlimit(pid, unix.RLIMIT_AS, &unix.Rlimit{Cur: addressSpace, Max: addressSpace}, nil); err != nil {
		return err
	}

	cpu := uint64(cpuSeconds)

	return unix.Prlimit(pid, unix.RLIMIT_CPU, &unix.Rlimit{Cur: cpu, Max: cpu}, nil)
}

//go:build linux

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinWorker locks the calling goroutine to its OS thread and restricts that
// thread to a single core chosen from workerID. The returned release func
// restores the thread's previous affinity mask and unlocks the thread; it is
// non-nil even when pinning fails, so callers can always defer it.
func PinWorker(workerID int) (release func(), err error) {
	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return runtime.UnlockOSThread, fmt.Errorf("read affinity: %w", err)
	}

	cpuID := CoreFor(workerID)
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	// 0 = current thread
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return runtime.UnlockOSThread, fmt.Errorf("pin worker %d to core %d: %w", workerID, cpuID, err)
	}

	return func() {
		_ = unix.SchedSetaffinity(0, &prev)
		runtime.UnlockOSThread()
	}, nil
}

//go:build windows

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	kernel32              = windows.NewLazySystemDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
)

// PinWorker locks the calling goroutine to its OS thread and restricts that
// thread to the core chosen from workerID. The release func restores the
// previous mask.
func PinWorker(workerID int) (release func(), err error) {
	runtime.LockOSThread()

	cpuID := CoreFor(workerID)
	thread := windows.CurrentThread()

	prevMask, _, callErr := setThreadAffinityMask.Call(uintptr(thread), uintptr(1)<<uint(cpuID))
	if prevMask == 0 {
		return runtime.UnlockOSThread, fmt.Errorf("pin worker %d to core %d: %w", workerID, cpuID, callErr)
	}

	return func() {
		_, _, _ = setThreadAffinityMask.Call(uintptr(thread), prevMask)
		runtime.UnlockOSThread()
	}, nil
}

//go:build !linux && !windows

package cpu

import "runtime"

// PinWorker locks the goroutine to an OS thread. Core pinning is not
// available on this platform, so ErrUnsupported is returned alongside a
// usable release func.
func PinWorker(workerID int) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, ErrUnsupported
}

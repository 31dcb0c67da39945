// Package cpu pins pool workers to CPU cores.
package cpu

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by PinWorker on platforms without thread affinity.
var ErrUnsupported = errors.New("cpu affinity not supported on this platform")

// NumCPU returns the number of logical CPUs available.
func NumCPU() int {
	return runtime.NumCPU()
}

// CoreFor maps a worker ID onto [0, NumCPU()).
func CoreFor(workerID int) int {
	n := runtime.NumCPU()
	id := workerID % n
	if id < 0 {
		id += n
	}
	return id
}

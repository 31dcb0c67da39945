// Command rangesum sums an inclusive integer range with fork/join on a
// work-stealing pool. With no arguments it sums [1, 4] and prints 10.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

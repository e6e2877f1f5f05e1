//go:build !linux && !darwin && !freebsd && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"netprobe is only supported on Linux, macOS, FreeBSD and Windows.\n\nThe socket sources it relies on are not available on this platform.",
	)
	os.Exit(1)
}

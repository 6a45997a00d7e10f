package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

func main() {
	os.Exit(Drive(os.Args[1:]))
}

// Drive runs one emulated compiler invocation and maps its outcome to an
// exit code: 0 on success, the failing tool's status when an external tool
// fails, and 1 for argument errors and everything else. Ephemeral
// artifacts are cleaned up on every path.
func Drive(args []string) int {
	tools := LoadToolchain()
	csi := NewCSI(tools)
	driver := NewDriver(tools, csi, csi.ExactHandlers(), csi.PatternHandlers())
	defer driver.Cleanup()

	// instrumentation requires debug information
	err := driver.Process(append([]string{"-g"}, args...))
	if err == nil {
		return 0
	}

	var argument *ArgumentError
	if errors.As(err, &argument) {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", os.Args[0], argument)
		return 1
	}

	var exit *exec.ExitError
	if errors.As(err, &exit) {
		if code := exit.ExitCode(); code > 0 {
			return code
		}
		return 1
	}

	fmt.Fprintln(os.Stderr, err)
	return 1
}

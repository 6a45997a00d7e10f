package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/kballard/go-shellquote"
)

// Run executes one external tool invocation, echoing the composed command
// under -v. The child inherits our standard streams; the driver blocks
// until it exits.
func (d *Driver) Run(argv []string) error {
	if d.verbose {
		fmt.Fprintln(os.Stderr, "→", shellquote.Join(argv...))
	}
	return d.execute(argv)
}

// execute is the real subprocess runner. A tool that ran and failed comes
// back as *exec.ExitError so its exit status can be propagated; a tool that
// could not be started at all is an execution error in its own right.
func execute(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return err
	}
	return orpheus.ExecutionError(argv[0], err.Error())
}

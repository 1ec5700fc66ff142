package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tract/internal/pipeline"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCodeFor(err))
}

// exitCodeFor maps a command error onto the process exit code. Invalid
// invocations are distinguished from operational failures so scripts can tell
// "fix your arguments" apart from "fix your environment".
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pipeline.ErrInvalidInput) {
		return exitInvalidInput
	}
	return exitFailure
}

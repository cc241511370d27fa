package main

import (
	"fmt"
	"os"

	"github.com/rsm-haz047/choicemodel/choice"
)

// Exit codes for different failure modes
const (
	ExitSuccess      = 0 // Estimation succeeded
	ExitNotConverged = 1 // The optimizer did not converge
	ExitError        = 2 // Configuration or data error
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case choice.IsNonConvergence(err):
		return ExitNotConverged
	default:
		return ExitError
	}
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

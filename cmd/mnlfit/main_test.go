package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsm-haz047/choicemodel/choice"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"non-convergence", &choice.NonConvergenceError{Err: errors.New("limit")}, ExitNotConverged},
		{"wrapped non-convergence", fmt.Errorf("fit: %w", &choice.NonConvergenceError{}), ExitNotConverged},
		{"data error", &choice.DataError{Row: -1, Err: choice.ErrNoChoice}, ExitError},
		{"other", errors.New("config error"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

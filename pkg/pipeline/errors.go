package pipeline

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet    = errors.New("pipeline must be set")
	ErrRunnerMustBeSet      = errors.New("runner must be set")
	ErrStageNameMustBeSet   = errors.New("stage name must be set")
	ErrStageActionMustBeSet = errors.New("stage must have a program or a function")
	ErrStageBothActions     = errors.New("stage cannot have both a program and a function")
	ErrStageAlreadyExists   = errors.New("stage already exists")
	ErrAlreadyRun           = errors.New("pipeline already run")
)

// ExternalProcessError is returned when an external program could not be started or exited with a
// non-zero status.
type ExternalProcessError struct {
	Stage    string
	Program  string
	Args     []string
	ExitCode int
	// Stderr holds the last lines written by the program on its standard error.
	Stderr string
	Err    error
}

func (e *ExternalProcessError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "stage %s: %s", e.Stage, e.Program)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, " exited with status %d", e.ExitCode)
	} else {
		sb.WriteString(" could not run")
	}

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	if e.Stderr != "" {
		fmt.Fprintf(&sb, ": %s", e.Stderr)
	}

	return sb.String()
}

func (e *ExternalProcessError) Unwrap() error {
	return e.Err
}

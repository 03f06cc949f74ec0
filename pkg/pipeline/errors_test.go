package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/xdp/pkg/pipeline"
)

func TestExternalProcessErrorMessage(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err      *pipeline.ExternalProcessError
		expected string
	}{
		"exit status": {
			err:      &pipeline.ExternalProcessError{Stage: "cifbuild", Program: "cifbuild", ExitCode: 3},
			expected: "stage cifbuild: cifbuild exited with status 3",
		},
		"with stderr": {
			err:      &pipeline.ExternalProcessError{Stage: "emchain", Program: "emchain", ExitCode: 1, Stderr: "** emchain: error"},
			expected: "stage emchain: emchain exited with status 1: ** emchain: error",
		},
		"not started": {
			err:      &pipeline.ExternalProcessError{Stage: "epchain", Program: "epchain", ExitCode: -1, Err: assert.AnError},
			expected: "stage epchain: epchain could not run: " + assert.AnError.Error(),
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestExternalProcessErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &pipeline.ExternalProcessError{Stage: "a", Program: "a", ExitCode: -1, Err: assert.AnError}
	assert.ErrorIs(t, err, assert.AnError)
}

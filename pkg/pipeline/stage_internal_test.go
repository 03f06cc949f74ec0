package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandString(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cmd      Command
		expected string
	}{
		"plain": {
			cmd:      Command{Program: "emchain", Args: []string{"odfdir=/data/odf", "outdir=/data/em"}},
			expected: "emchain odfdir=/data/odf outdir=/data/em",
		},
		"expression with spaces": {
			cmd:      Command{Program: "evselect", Args: []string{"expression=PI in [200:12000]"}},
			expected: "evselect 'expression=PI in [200:12000]'",
		},
		"single quote": {
			cmd:      Command{Program: "echo", Args: []string{"it's"}},
			expected: `echo 'it'\''s'`,
		},
		"empty argument": {
			cmd:      Command{Program: "echo", Args: []string{""}},
			expected: "echo ''",
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.cmd.String())
		})
	}
}

func TestStageCommandCopiesArgs(t *testing.T) {
	t.Parallel()

	stage := Stage{Name: "a", Program: "prog", Args: []string{"x"}}
	cmd := stage.command(NewEnv(), nil)
	cmd.Args[0] = "y"

	assert.Equal(t, []string{"x"}, stage.Args)
}

package pipeline

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/xdp/pkg/pipeline/model"
)

// Stage is a named operation of the pipeline.
type Stage struct {
	Name string
	// Program and Args describe the external program to run in Dir.
	Program string
	Args    []string
	Dir     string
	// Fn runs in process instead of an external program.
	Fn func(ctx context.Context, env Env) error
	// Exports are published to the environment of the following stages once this stage succeeded.
	Exports map[string]string
}

// Command is an external invocation handed to a Runner.
type Command struct {
	Stage   string
	Program string
	Args    []string
	Dir     string
	Env     []string
}

// Runner runs external programs.
type Runner interface {
	// Run blocks until the program exits. A program exiting with a non-zero status must be reported
	// as an error.
	Run(ctx context.Context, cmd Command) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) error

func (f RunnerFunc) Run(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

func (s Stage) external() bool {
	return s.Program != ""
}

func (s Stage) validate() error {
	if s.Name == "" {
		return ErrStageNameMustBeSet
	}

	if s.Program == "" && s.Fn == nil {
		return errors.Wrap(ErrStageActionMustBeSet, s.Name)
	}

	if s.Program != "" && s.Fn != nil {
		return errors.Wrap(ErrStageBothActions, s.Name)
	}

	return nil
}

func (s Stage) info(idx int) *model.StageInfo {
	info := &model.StageInfo{
		Type:    model.InternalStageType,
		Name:    s.Name,
		Program: s.Program,
		Index:   idx,
	}
	if s.external() {
		info.Type = model.ExternalStageType
	}

	return info
}

func (s Stage) command(env Env, base []string) Command {
	args := make([]string, len(s.Args))
	copy(args, s.Args)

	return Command{
		Stage:   s.Name,
		Program: s.Program,
		Args:    args,
		Dir:     s.Dir,
		Env:     env.Environ(base),
	}
}

// String returns the command line of an external stage, or its name.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Program)

	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}

	return strings.Join(parts, " ")
}

const shellSpecial = " \t'\"$`\\*?()&|;<>!"

func quote(arg string) string {
	if arg == "" {
		return "''"
	}

	if !strings.ContainsAny(arg, shellSpecial) {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

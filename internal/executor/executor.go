// Package executor runs the external programs of a pipeline as child processes.
package executor

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/xdp/pkg/pipeline"
)

const (
	defaultStderrTail = 20
	defaultWaitDelay  = 5 * time.Second
	maxLineSize       = 1 << 20
)

// Executor implements pipeline.Runner with os/exec.
//
// The output of the program is logged line by line: stdout at debug level, stderr at warn level.
// When the context is cancelled the whole process group of the program is killed. Helpers left
// running in the background by the program may keep its output open: once the program exited, the
// output is read for at most the wait delay.
type Executor struct {
	logger     *zap.Logger
	dryRun     bool
	stderrTail int
	waitDelay  time.Duration
}

type Option func(e *Executor)

// WithLogger sets the logger receiving the program output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithDryRun only logs the commands, nothing is executed.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithStderrTail sets how many of the last stderr lines are kept in the error of a failed program.
func WithStderrTail(lines int) Option {
	return func(e *Executor) {
		e.stderrTail = lines
	}
}

// WithWaitDelay sets how long the output is still read once the program exited.
func WithWaitDelay(delay time.Duration) Option {
	return func(e *Executor) {
		e.waitDelay = delay
	}
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:     zap.NewNop(),
		stderrTail: defaultStderrTail,
		waitDelay:  defaultWaitDelay,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run starts the program and blocks until it exits.
func (e *Executor) Run(ctx context.Context, command pipeline.Command) error {
	logger := e.logger.With(zap.String("stage", command.Stage), zap.String("program", command.Program))
	logger.Info("running", zap.String("command", command.String()), zap.String("dir", command.Dir))

	if e.dryRun {
		return nil
	}

	cmd := exec.CommandContext(ctx, command.Program, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = command.Env
	cmd.WaitDelay = e.waitDelay
	setProcessGroup(cmd)

	// Wait stops copying into the writers after the wait delay, even when a helper of the program
	// still holds the output open.
	stdout, stdoutWriter := io.Pipe()
	stderr, stderrWriter := io.Pipe()
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	tail := newLineTail(e.stderrTail)

	errGrp := errgroup.Group{}
	errGrp.Go(func() error {
		return scanLines(stdout, func(line string) {
			logger.Debug(line, zap.String("stream", "stdout"))
		})
	})
	errGrp.Go(func() error {
		return scanLines(stderr, func(line string) {
			tail.add(line)
			logger.Warn(line, zap.String("stream", "stderr"))
		})
	})

	waitErr := cmd.Start()
	if waitErr == nil {
		waitErr = cmd.Wait()
	} else {
		waitErr = errors.Wrap(waitErr, "unable to start")
	}

	_ = stdoutWriter.Close()
	_ = stderrWriter.Close()
	scanErr := errGrp.Wait()

	if errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Warn("output still open after the program exited", zap.Duration("wait_delay", e.waitDelay))

		waitErr = nil
	}

	if waitErr != nil {
		exitCode := -1

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		cause := waitErr
		if ctx.Err() != nil {
			cause = errors.Wrap(ctx.Err(), "cancelled")
		}

		return e.processError(command, exitCode, tail.String(), cause)
	}

	if scanErr != nil {
		logger.Warn("unable to read program output", zap.Error(scanErr))
	}

	return nil
}

func (e *Executor) processError(command pipeline.Command, exitCode int, stderr string, err error) error {
	return &pipeline.ExternalProcessError{
		Stage:    command.Stage,
		Program:  command.Program,
		Args:     command.Args,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}
}

// scanLines calls fn for every line of r. Lines longer than maxLineSize end the scan, the rest of r
// is discarded so the program never blocks on a full pipe.
func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		fn(scanner.Text())
	}

	err := scanner.Err()
	if err != nil {
		_, _ = io.Copy(io.Discard, r)

		return errors.Wrap(err, "unable to scan output")
	}

	return nil
}

type lineTail struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (lt *lineTail) add(line string) {
	if lt.limit <= 0 {
		return
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.lines = append(lt.lines, line)
	if len(lt.lines) > lt.limit {
		lt.lines = lt.lines[len(lt.lines)-lt.limit:]
	}
}

func (lt *lineTail) String() string {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return strings.Join(lt.lines, "\n")
}

var _ pipeline.Runner = (*Executor)(nil)

package pipeline_test

import (
	"context"
	"sync"
	"testing"

	"github.com/askiada/xdp/pkg/pipeline"
)

// recordingRunner records every command and fails the stages listed in failures.
type recordingRunner struct {
	mu       sync.Mutex
	commands []pipeline.Command
	failures map[string]error
}

func newRecordingRunner(t *testing.T, failures map[string]error) *recordingRunner {
	t.Helper()

	if failures == nil {
		failures = map[string]error{}
	}

	return &recordingRunner{failures: failures}
}

func (r *recordingRunner) Run(ctx context.Context, cmd pipeline.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, cmd)

	return r.failures[cmd.Stage]
}

func (r *recordingRunner) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		res = append(res, cmd.Stage)
	}

	return res
}

func (r *recordingRunner) command(stage string) (pipeline.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range r.commands {
		if cmd.Stage == stage {
			return cmd, true
		}
	}

	return pipeline.Command{}, false
}

func externalStage(name string) pipeline.Stage {
	return pipeline.Stage{Name: name, Program: "prog-" + name, Args: []string{"arg=" + name}, Dir: "/tmp/" + name}
}

func hasEnv(env []string, kv string) bool {
	for _, e := range env {
		if e == kv {
			return true
		}
	}

	return false
}

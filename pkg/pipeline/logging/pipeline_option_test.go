package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/xdp/pkg/pipeline"
	"github.com/askiada/xdp/pkg/pipeline/logging"
)

func TestPipelineLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)

	runner := pipeline.RunnerFunc(func(ctx context.Context, cmd pipeline.Command) error {
		if cmd.Stage == "odfingest" {
			return assert.AnError
		}

		return nil
	})

	pipe, err := pipeline.New(runner, logging.PipelineLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, pipeline.AddStages(pipe,
		pipeline.Stage{Name: "cifbuild", Program: "cifbuild"},
		pipeline.Stage{Name: "odfingest", Program: "odfingest"},
		pipeline.Stage{Name: "emchain", Program: "emchain"},
	))

	require.Error(t, pipe.Run(context.Background()))

	assert.Equal(t, 3, logs.FilterMessage("stage added").Len())
	assert.Equal(t, 1, logs.FilterMessage("stage done").Len())

	failed := logs.FilterMessage("stage failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "odfingest", failed[0].ContextMap()["stage"])

	aborted := logs.FilterMessage("pipeline aborted").All()
	require.Len(t, aborted, 1)
	assert.Equal(t, zapcore.WarnLevel, aborted[0].Level)
	assert.Equal(t, "odfingest", aborted[0].ContextMap()["failed"])
	assert.Equal(t, int64(1), aborted[0].ContextMap()["done"])
}

func TestPipelineLoggerNil(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(pipeline.RunnerFunc(func(context.Context, pipeline.Command) error { return nil }),
		logging.PipelineLogger(nil))
	require.NoError(t, err)
	require.NoError(t, pipeline.AddStage(pipe, pipeline.Stage{Name: "a", Program: "a"}))
	assert.NoError(t, pipe.Run(context.Background()))
}

func TestPipelineLoggerCancelledBetweenStages(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := pipeline.RunnerFunc(func(context.Context, pipeline.Command) error {
		cancel()

		return nil
	})

	pipe, err := pipeline.New(runner, logging.PipelineLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, pipeline.AddStages(pipe,
		pipeline.Stage{Name: "cifbuild", Program: "cifbuild"},
		pipeline.Stage{Name: "odfingest", Program: "odfingest"},
	))

	require.ErrorIs(t, pipe.Run(ctx), context.Canceled)

	assert.Equal(t, 0, logs.FilterMessage("stage failed").Len())
	assert.Equal(t, 0, logs.FilterMessage("pipeline finished").Len())

	aborted := logs.FilterMessage("pipeline aborted").All()
	require.Len(t, aborted, 1)
	assert.Equal(t, zapcore.WarnLevel, aborted[0].Level)
	assert.Equal(t, int64(1), aborted[0].ContextMap()["done"])
	assert.Equal(t, int64(2), aborted[0].ContextMap()["stages"])
}

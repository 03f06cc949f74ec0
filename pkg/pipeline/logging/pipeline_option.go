// Package logging provides a pipeline option reporting the progress of a run with zap.
package logging

import (
	"time"

	"go.uber.org/zap"

	"github.com/askiada/xdp/pkg/pipeline/model"
)

type pipelineLogger struct {
	logger    *zap.Logger
	startTime time.Time
	total     int
	done      int
	failed    string
}

func (pl *pipelineLogger) New() error {
	pl.startTime = time.Now()
	return nil
}

func (pl *pipelineLogger) PrepareStage(parentStage, stage *model.StageInfo) error {
	pl.total++
	pl.logger.Debug("stage added",
		zap.String("stage", stage.Name),
		zap.String("after", parentStage.Name),
		zap.String("type", string(stage.Type)),
		zap.String("program", stage.Program),
	)

	return nil
}

func (pl *pipelineLogger) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	if err != nil {
		pl.failed = stage.Name
		pl.logger.Error("stage failed",
			zap.String("stage", stage.Name),
			zap.Int("index", stage.Index),
			zap.Duration("duration", duration),
			zap.Error(err),
		)

		return nil
	}

	pl.done++
	pl.logger.Info("stage done",
		zap.String("stage", stage.Name),
		zap.Int("index", stage.Index),
		zap.Duration("duration", duration),
	)

	return nil
}

func (pl *pipelineLogger) Finish() error {
	fields := []zap.Field{
		zap.Int("stages", pl.total),
		zap.Int("done", pl.done),
		zap.Duration("duration", time.Since(pl.startTime)),
	}

	if pl.failed != "" {
		pl.logger.Warn("pipeline aborted", append(fields, zap.String("failed", pl.failed))...)

		return nil
	}

	// stopped between stages, by cancellation
	if pl.done < pl.total {
		pl.logger.Warn("pipeline aborted", fields...)

		return nil
	}

	pl.logger.Info("pipeline finished", fields...)

	return nil
}

// PipelineLogger logs every stage of the pipeline with logger.
func PipelineLogger(logger *zap.Logger) model.PipelineOption {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &pipelineLogger{logger: logger}
}

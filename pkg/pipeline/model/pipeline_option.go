package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// PrepareStage runs when a stage is added to the pipeline.
	PrepareStage(parentStage, stage *StageInfo) error
	// OnStageDone runs after a stage returned, err is the stage error if any.
	OnStageDone(stage *StageInfo, duration time.Duration, err error) error
	// Finish runs after the pipeline is finished, successfully or not.
	Finish() error
}

package measure

import (
	"time"

	"github.com/askiada/xdp/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStage.Name)
	return nil
}

func (pm *pipelineMeasure) PrepareStage(parentStage, stage *model.StageInfo) error {
	pm.AddMetric(stage.Name)
	return nil
}

func (pm *pipelineMeasure) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}

	pm.GetMetric(stage.Name).SetDuration(duration, status)
	pm.GetMetric(stage.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	mt := pm.AddMetric(model.EndStage.Name)
	mt.SetTotalDuration(time.Since(pm.startTime))
	return nil
}

func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}

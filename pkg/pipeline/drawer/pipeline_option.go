package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/xdp/pkg/pipeline/measure"
	"github.com/askiada/xdp/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
	last      string
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()

	err := pd.AddStep(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	pd.last = model.StartStage.Name

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parentStage, stage *model.StageInfo) error {
	err := pd.AddStep(stage.Name)
	if err != nil {
		return err
	}

	err = pd.AddLink(parentStage.Name, stage.Name)
	if err != nil {
		return err
	}

	pd.last = stage.Name

	return nil
}

func (pd *pipelineDrawer) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.AddStep(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	err = pd.AddLink(pd.last, model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to link end stage")
	}

	if pd.m != nil {
		err := pd.SetTotalTime(model.EndStage.Name, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the stage chain once the pipeline finished. When msr is set, stages are
// labelled with the durations it collected; msr should also be registered on the pipeline with
// measure.PipelineMeasure, before the drawer.
func PipelineDrawer(drawer Drawer, msr measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: msr}
}

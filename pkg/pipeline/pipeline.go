package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/xdp/pkg/pipeline/model"
)

// Pipeline is an ordered sequence of stages.
type Pipeline struct {
	runner    Runner
	opts      []model.PipelineOption
	stages    []Stage
	infos     []*model.StageInfo
	names     map[string]struct{}
	env       Env
	baseEnv   func() []string
	startTime time.Time
	ran       bool
}

// New creates a new pipeline running external stages with runner.
func New(runner Runner, opts ...model.PipelineOption) (*Pipeline, error) {
	if runner == nil {
		return nil, ErrRunnerMustBeSet
	}

	pipe := &Pipeline{
		runner:  runner,
		opts:    opts,
		names:   make(map[string]struct{}),
		env:     NewEnv(),
		baseEnv: os.Environ,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// AddStage appends a stage to the pipeline. Stages run in the order they were added.
func AddStage(p *Pipeline, stage Stage) error {
	if p == nil {
		return ErrPipelineMustBeSet
	}

	err := stage.validate()
	if err != nil {
		return err
	}

	if _, ok := p.names[stage.Name]; ok {
		return errors.Wrap(ErrStageAlreadyExists, stage.Name)
	}

	parent := model.StartStage
	if len(p.infos) > 0 {
		parent = p.infos[len(p.infos)-1]
	}

	info := stage.info(len(p.stages))
	for _, opt := range p.opts {
		err := opt.PrepareStage(parent, info)
		if err != nil {
			return errors.Wrapf(err, "unable to prepare stage %s", stage.Name)
		}
	}

	p.names[stage.Name] = struct{}{}
	p.stages = append(p.stages, stage)
	p.infos = append(p.infos, info)

	return nil
}

// AddStages appends stages in order, stopping at the first one that cannot be added.
func AddStages(p *Pipeline, stages ...Stage) error {
	for _, stage := range stages {
		err := AddStage(p, stage)
		if err != nil {
			return err
		}
	}

	return nil
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	res := make([]Stage, len(p.stages))
	copy(res, p.stages)

	return res
}

// Env returns a copy of the environment pointers published so far.
func (p *Pipeline) Env() Env {
	return p.env.Clone()
}

// Plan returns the commands the external stages would run, assuming every stage succeeds. In-process
// stages are listed with an empty program.
func (p *Pipeline) Plan(base []string) []Command {
	env := p.env.Clone()
	cmds := make([]Command, 0, len(p.stages))

	for _, stage := range p.stages {
		cmds = append(cmds, stage.command(env, base))
		for k, v := range stage.Exports {
			env.Set(k, v)
		}
	}

	return cmds
}

// Run runs every stage in order and returns the first error. A pipeline can only run once.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.ran {
		return ErrAlreadyRun
	}

	p.ran = true
	p.startTime = time.Now()

	err := p.runStages(ctx)

	finishErr := p.finishRun()
	if err != nil {
		return err
	}

	return finishErr
}

func (p *Pipeline) runStages(ctx context.Context) error {
	for idx, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "stage %s not started", stage.Name)
		}

		start := time.Now()
		err := p.runStage(ctx, stage)
		elapsed := time.Since(start)

		for _, opt := range p.opts {
			optErr := opt.OnStageDone(p.infos[idx], elapsed, err)
			if optErr != nil && err == nil {
				err = errors.Wrap(optErr, "unable to run stage done function")
			}
		}

		if err != nil {
			return err
		}

		for k, v := range stage.Exports {
			p.env.Set(k, v)
		}
	}

	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage) error {
	if !stage.external() {
		err := stage.Fn(ctx, p.env.Clone())
		if err != nil {
			return errors.Wrapf(err, "stage %s", stage.Name)
		}

		return nil
	}

	err := p.runner.Run(ctx, stage.command(p.env, p.baseEnv()))
	if err != nil {
		var procErr *ExternalProcessError
		if errors.As(err, &procErr) {
			return procErr
		}

		return &ExternalProcessError{
			Stage:    stage.Name,
			Program:  stage.Program,
			Args:     stage.Args,
			ExitCode: -1,
			Err:      err,
		}
	}

	return nil
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

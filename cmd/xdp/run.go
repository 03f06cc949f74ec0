package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/xdp/internal/archive"
	"github.com/askiada/xdp/internal/config"
	"github.com/askiada/xdp/internal/executor"
	"github.com/askiada/xdp/internal/sas"
	"github.com/askiada/xdp/pkg/pipeline"
	"github.com/askiada/xdp/pkg/pipeline/drawer"
	"github.com/askiada/xdp/pkg/pipeline/logging"
	"github.com/askiada/xdp/pkg/pipeline/measure"
	"github.com/askiada/xdp/pkg/pipeline/model"
)

var (
	dryRun       bool
	skipDownload bool
	graphPath    string
	workDir      string
)

var runCmd = &cobra.Command{
	Use:   "run [obsid]",
	Short: "Download an observation and run the SAS reduction on it",
	Long: `Runs every stage of the reduction in order:
  1. archive fetch and extraction
  2. cifbuild, exporting SAS_CCF
  3. odfingest, exporting SAS_ODF
  4. emchain and epchain
  5. good time intervals (when gti.event_file is set)
  6. MOS and PN images (when their event_file is set)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReduction,
}

func applyFlags(cfg *config.Config) {
	if workDir != "" {
		cfg.WorkDir = workDir
	}

	if skipDownload {
		cfg.Archive.Skip = true
	}

	if dryRun {
		cfg.Execution.DryRun = true
	}
}

func newArchiveClient(cfg *config.Config, logger *zap.Logger) (*archive.Client, error) {
	timeout, err := cfg.ArchiveTimeout()
	if err != nil {
		return nil, err
	}

	return archive.NewClient(
		archive.WithURL(cfg.Archive.URL),
		archive.WithTimeout(timeout),
		archive.WithLogger(logger),
	)
}

func runReduction(cmd *cobra.Command, args []string) error {
	applyFlags(cfg)

	err := cfg.Validate()
	if err != nil {
		return err
	}

	runLogger := logger.With(zap.String("run", uuid.NewString()), zap.String("obsid", cfg.Observation))

	var fetcher sas.Fetcher
	if !cfg.Archive.Skip && !cfg.Execution.DryRun {
		fetcher, err = newArchiveClient(cfg, runLogger)
		if err != nil {
			return err
		}
	}

	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{
		logging.PipelineLogger(runLogger),
		measure.PipelineMeasure(msr),
	}

	if graphPath != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(graphPath), msr))
	}

	runner := executor.New(
		executor.WithLogger(runLogger),
		executor.WithDryRun(cfg.Execution.DryRun),
		executor.WithStderrTail(cfg.Execution.StderrTail),
	)

	pipe, err := pipeline.New(runner, opts...)
	if err != nil {
		return err
	}

	stages, err := sas.Plan(cfg, fetcher)
	if err != nil {
		return err
	}

	if cfg.Execution.DryRun {
		stages = externalOnly(stages)
	}

	err = pipeline.AddStages(pipe, stages...)
	if err != nil {
		return err
	}

	err = pipe.Run(cmd.Context())

	printSummary(cmd, msr)

	return err
}

// externalOnly drops the in-process stages, which would touch the filesystem.
func externalOnly(stages []pipeline.Stage) []pipeline.Stage {
	res := make([]pipeline.Stage, 0, len(stages))

	for _, stage := range stages {
		if stage.Program != "" {
			res = append(res, stage)
		}
	}

	return res
}

func printSummary(cmd *cobra.Command, msr measure.Measure) {
	out := cmd.OutOrStdout()

	for _, name := range msr.Order() {
		if name == model.StartStage.Name || name == model.EndStage.Name {
			continue
		}

		mt := msr.GetMetric(name)
		fmt.Fprintf(out, "%-16s %-8s %s\n", name, mt.Status(), mt.Duration())
	}

	if end := msr.GetMetric(model.EndStage.Name); end != nil {
		fmt.Fprintf(out, "%-16s %-8s %s\n", "total", "", end.GetTotalDuration())
	}
}

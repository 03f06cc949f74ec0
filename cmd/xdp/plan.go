package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/xdp/internal/executor"
	"github.com/askiada/xdp/internal/sas"
	"github.com/askiada/xdp/pkg/pipeline"
)

var planCmd = &cobra.Command{
	Use:   "plan [obsid]",
	Short: "Print the commands of a run without running them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  printPlan,
}

func printPlan(cmd *cobra.Command, args []string) error {
	applyFlags(cfg)

	err := cfg.Validate()
	if err != nil {
		return err
	}

	// The fetch stage is listed, never run.
	var fetcher sas.Fetcher
	if !cfg.Archive.Skip {
		fetcher, err = newArchiveClient(cfg, logger)
		if err != nil {
			return err
		}
	}

	pipe, err := pipeline.New(executor.New(executor.WithDryRun(true)))
	if err != nil {
		return err
	}

	stages, err := sas.Plan(cfg, fetcher)
	if err != nil {
		return err
	}

	err = pipeline.AddStages(pipe, stages...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, command := range pipe.Plan(nil) {
		if command.Program == "" {
			fmt.Fprintf(out, "%2d %s (in process)\n", i+1, command.Stage)

			continue
		}

		fmt.Fprintf(out, "%2d %s\n", i+1, command.Stage)
		if len(command.Env) > 0 {
			fmt.Fprintf(out, "   env %s\n", strings.Join(command.Env, " "))
		}

		fmt.Fprintf(out, "   cd %s && %s\n", command.Dir, command.String())
	}

	return nil
}

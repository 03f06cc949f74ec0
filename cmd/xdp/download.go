package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var downloadCmd = &cobra.Command{
	Use:   "download <obsid>",
	Short: "Download and extract an observation archive",
	Args:  cobra.ExactArgs(1),
	RunE:  download,
}

func download(cmd *cobra.Command, args []string) error {
	applyFlags(cfg)

	err := cfg.Validate()
	if err != nil {
		return err
	}

	client, err := newArchiveClient(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("fetching observation", zap.String("obsid", cfg.Observation), zap.String("workdir", cfg.WorkDir))

	return client.Fetch(cmd.Context(), cfg.Observation, cfg.WorkDir)
}

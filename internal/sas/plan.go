package sas

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/xdp/internal/config"
	"github.com/askiada/xdp/pkg/pipeline"
)

// ObservationFromConfig returns the observation of cfg, with the configured directory overrides.
// Every directory is made absolute, as each stage runs from its own directory.
func ObservationFromConfig(cfg *config.Config) (Observation, error) {
	root, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return Observation{}, errors.Wrapf(err, "unable to resolve workdir %s", cfg.WorkDir)
	}

	obs := NewObservation(cfg.Observation, root)

	overrides := []struct {
		dst *string
		src string
	}{
		{&obs.Dirs.ODF, cfg.Directories.ODF},
		{&obs.Dirs.CCF, cfg.Directories.CCF},
		{&obs.Dirs.EM, cfg.Directories.EM},
		{&obs.Dirs.EP, cfg.Directories.EP},
		{&obs.Dirs.GTI, cfg.Directories.GTI},
		{&obs.Dirs.Images, cfg.Directories.Images},
	}
	for _, o := range overrides {
		if o.src == "" {
			continue
		}

		dir, err := filepath.Abs(o.src)
		if err != nil {
			return Observation{}, errors.Wrapf(err, "unable to resolve directory %s", o.src)
		}

		*o.dst = dir
	}

	return obs, nil
}

// Plan returns the stages of a full run, in order: archive fetch, directories, cifbuild, odfingest,
// emchain, epchain, good time intervals, MOS images then PN images. Parts disabled by cfg are left
// out. fetcher may be nil when the archive is skipped.
func Plan(cfg *config.Config, fetcher Fetcher) ([]pipeline.Stage, error) {
	obs, err := ObservationFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	stages := []pipeline.Stage{}

	if !cfg.Archive.Skip && fetcher != nil {
		stages = append(stages, FetchStage(fetcher, obs))
	}

	stages = append(stages,
		DirsStage(obs),
		CIFBuild(obs),
		ODFIngest(obs),
	)

	if !cfg.EMChain.Skip {
		stages = append(stages, EMChain(obs))
	}

	if !cfg.EPChain.Skip {
		stages = append(stages, EPChain(obs, cfg.EPChain.OOT))
	}

	if cfg.GTI.EventFile != "" {
		stages = append(stages, GTIStages(obs, GTIOptions{
			EventFile:   cfg.GTI.EventFile,
			Expression:  cfg.GTI.Expression,
			Name:        cfg.GTI.Name,
			TimeBinSize: cfg.GTI.TimeBinSize,
			Sigma:       cfg.GTI.Sigma,
		})...)
	}

	if mos := cfg.Images.MOS; mos.EventFile != "" {
		stages = append(stages, MOSImages(obs, imageOptions(mos))...)
	}

	if pn := cfg.Images.PN; pn.EventFile != "" {
		stages = append(stages, PNImages(obs, PNImageOptions{
			ImageOptions:  imageOptions(pn.ImageConfig),
			OOT:           pn.OOT,
			OOTImageSet:   pn.OOTImageSet,
			OOTScale:      pn.OOTScale,
			OOTRescaled:   pn.OOTRescaled,
			OOTSubtracted: pn.OOTSubtracted,
		})...)
	}

	return stages, nil
}

func imageOptions(ic config.ImageConfig) ImageOptions {
	return ImageOptions{
		EventFile:  ic.EventFile,
		Expression: ic.Expression,
		Image:      ic.Image,
		ImageSet:   ic.ImageSet,
		BinSize:    ic.BinSize,
	}
}

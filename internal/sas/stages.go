package sas

import (
	"path/filepath"
	"strconv"

	"github.com/askiada/xdp/pkg/pipeline"
)

// Stage names, in run order.
const (
	StageFetch         = "archive"
	StageDirs          = "workdirs"
	StageCIFBuild      = "cifbuild"
	StageODFIngest     = "odfingest"
	StageEMChain       = "emchain"
	StageEPChain       = "epchain"
	StageGTIRate       = "gti-rate"
	StageGTIGen        = "gti-tabgtigen"
	StageGTIFilter     = "gti-filter"
	StageMOSImageSet   = "mos-imageset"
	StageMOSImage      = "mos-image"
	StagePNImageSet    = "pn-imageset"
	StagePNImage       = "pn-image"
	StagePNOOTImageSet = "pn-oot-imageset"
	StagePNOOTRescale  = "pn-oot-rescale"
	StagePNOOTSubtract = "pn-oot-subtract"
)

// CIFBuild builds the calibration index file of the observation and points SAS_CCF to it.
func CIFBuild(obs Observation) pipeline.Stage {
	return pipeline.Stage{
		Name:    StageCIFBuild,
		Program: "cifbuild",
		Args: []string{
			"obsid=" + obs.ID,
			"odfdir=" + obs.Dirs.ODF,
		},
		Dir:     obs.Dirs.CCF,
		Exports: map[string]string{EnvCCF: obs.CCFFile()},
	}
}

// ODFIngest ingests the observation data files against the calibration directory and points SAS_ODF
// to them.
func ODFIngest(obs Observation) pipeline.Stage {
	return pipeline.Stage{
		Name:    StageODFIngest,
		Program: "odfingest",
		Args: []string{
			obs.Dirs.ODF,
			"-p" + obs.Dirs.CCF,
		},
		Dir:     obs.Dirs.ODF,
		Exports: map[string]string{EnvODF: obs.Dirs.ODF},
	}
}

// EMChain runs the MOS processing chain.
func EMChain(obs Observation) pipeline.Stage {
	return pipeline.Stage{
		Name:    StageEMChain,
		Program: "emchain",
		Args: []string{
			"odfdir=" + obs.Dirs.ODF,
			"outdir=" + obs.Dirs.EM,
		},
		Dir: obs.Dirs.EM,
	}
}

// EPChain runs the PN processing chain, with the out-of-time correction when oot is set.
func EPChain(obs Observation, oot bool) pipeline.Stage {
	args := []string{
		"pnimage=yes",
		"pnspec=yes",
		"pntrailla=yes",
		"pntraillae=yes",
		"odfdir=" + obs.Dirs.ODF,
		"outdir=" + obs.Dirs.EP,
	}
	if oot {
		args = append(args, "ootcorr=yes")
	}

	return pipeline.Stage{
		Name:    StageEPChain,
		Program: "epchain",
		Args:    args,
		Dir:     obs.Dirs.EP,
	}
}

// GTIOptions configures the good time interval stages.
type GTIOptions struct {
	EventFile   string
	Expression  string
	Name        string
	TimeBinSize int
	Sigma       float64
}

// GTIStages bins the event rate, derives the good time intervals by sigma clipping the rate, then
// filters the events with expression into the GTI set.
func GTIStages(obs Observation, opts GTIOptions) []pipeline.Stage {
	rate := filepath.Join(obs.Dirs.GTI, "rate")
	gtiSet := filepath.Join(obs.Dirs.GTI, opts.Name)

	return []pipeline.Stage{
		{
			Name:    StageGTIRate,
			Program: "evselect",
			Args: []string{
				"table=" + opts.EventFile,
				"withrateset=yes",
				"rateset=" + rate,
				"maketimecolumn=yes",
				"makeratecolumn=yes",
				"timebinsize=" + strconv.Itoa(opts.TimeBinSize),
			},
			Dir: obs.Dirs.ODF,
		},
		{
			Name:    StageGTIGen,
			Program: "tabgtigen",
			Args: []string{
				"table=" + rate,
				"gtiset=" + gtiSet,
				"sigma=" + formatFloat(opts.Sigma),
			},
			Dir: obs.Dirs.ODF,
		},
		{
			Name:    StageGTIFilter,
			Program: "evselect",
			Args: []string{
				"table=" + opts.EventFile,
				"withfilteredset=yes",
				"expression=" + opts.Expression,
				"filteredset=" + gtiSet,
			},
			Dir: obs.Dirs.ODF,
		},
	}
}

// ImageOptions configures the images of an instrument.
type ImageOptions struct {
	EventFile  string
	Expression string
	Image      string
	ImageSet   string
	BinSize    int
}

// PNImageOptions configures the PN images and the out-of-time subtraction.
type PNImageOptions struct {
	ImageOptions

	OOT           bool
	OOTImageSet   string
	OOTScale      float64
	OOTRescaled   string
	OOTSubtracted string
}

// MOSImages creates the MOS image set and image.
func MOSImages(obs Observation, opts ImageOptions) []pipeline.Stage {
	return []pipeline.Stage{
		imageStage(StageMOSImageSet, obs, opts.EventFile, opts.ImageSet, opts.BinSize, opts.Expression),
		imageStage(StageMOSImage, obs, opts.EventFile, opts.Image, opts.BinSize, opts.Expression),
	}
}

// PNImages creates the PN image set and image. With OOT set, it also images the out-of-time events,
// rescales that image by OOTScale and subtracts it from the image set.
func PNImages(obs Observation, opts PNImageOptions) []pipeline.Stage {
	stages := []pipeline.Stage{
		imageStage(StagePNImageSet, obs, opts.EventFile, opts.ImageSet, opts.BinSize, opts.Expression),
		imageStage(StagePNImage, obs, opts.EventFile, opts.Image, opts.BinSize, opts.Expression),
	}
	if !opts.OOT {
		return stages
	}

	ootImageSet := filepath.Join(obs.Dirs.Images, opts.OOTImageSet)
	rescaled := filepath.Join(obs.Dirs.Images, opts.OOTRescaled)

	return append(stages,
		imageStage(StagePNOOTImageSet, obs, opts.EventFile, opts.OOTImageSet, opts.BinSize, "FLAG==0"),
		pipeline.Stage{
			Name:    StagePNOOTRescale,
			Program: "fcarith",
			Args:    []string{ootImageSet, formatFloat(opts.OOTScale), rescaled, "MUL"},
			Dir:     obs.Dirs.ODF,
		},
		pipeline.Stage{
			Name:    StagePNOOTSubtract,
			Program: "farith",
			Args: []string{
				filepath.Join(obs.Dirs.Images, opts.ImageSet),
				rescaled,
				filepath.Join(obs.Dirs.Images, opts.OOTSubtracted),
				"SUB",
			},
			Dir: obs.Dirs.ODF,
		},
	)
}

func imageStage(name string, obs Observation, eventFile, output string, binSize int, expression string) pipeline.Stage {
	bin := strconv.Itoa(binSize)

	return pipeline.Stage{
		Name:    name,
		Program: "evselect",
		Args: []string{
			"table=" + eventFile,
			"withimageset=yes",
			"imageset=" + filepath.Join(obs.Dirs.Images, output),
			"xcolumn=X",
			"ycolumn=Y",
			"imagebinning=imageSize",
			"ximagebinsize=" + bin,
			"yimagebinsize=" + bin,
			"expression=" + expression,
		},
		Dir: obs.Dirs.ODF,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

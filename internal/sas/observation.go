// Package sas builds the stages running the XMM-Newton Science Analysis System on an observation.
//
// Every builder returns stages with a fixed argument list: given the same observation and options,
// the same commands are produced.
package sas

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/xdp/pkg/pipeline"
)

// Environment pointers read by the SAS tasks.
const (
	EnvCCF = "SAS_CCF"
	EnvODF = "SAS_ODF"
)

// Dirs is the directory tree of an observation.
type Dirs struct {
	// Root receives the downloaded archive.
	Root string
	// Raw is where the archive extracts to.
	Raw    string
	ODF    string
	CCF    string
	EM     string
	EP     string
	GTI    string
	Images string
}

// Observation is an observation and its directory tree.
type Observation struct {
	ID   string
	Dirs Dirs
}

// NewObservation returns the observation with its default tree under root.
func NewObservation(id, root string) Observation {
	raw := filepath.Join(root, id)

	return Observation{
		ID: id,
		Dirs: Dirs{
			Root:   root,
			Raw:    raw,
			ODF:    filepath.Join(raw, "odf"),
			CCF:    filepath.Join(raw, "ccf"),
			EM:     filepath.Join(raw, "em"),
			EP:     filepath.Join(raw, "ep"),
			GTI:    filepath.Join(raw, "gti"),
			Images: filepath.Join(raw, "images"),
		},
	}
}

// CCFFile is the calibration index file written by cifbuild.
func (o Observation) CCFFile() string {
	return filepath.Join(o.Dirs.CCF, "ccf.cif")
}

// MkdirAll creates the output directories of the observation.
func (o Observation) MkdirAll() error {
	for _, dir := range []string{o.Dirs.CCF, o.Dirs.EM, o.Dirs.EP, o.Dirs.GTI, o.Dirs.Images} {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return errors.Wrapf(err, "unable to create %s", dir)
		}
	}

	return nil
}

// Fetcher downloads and extracts the archive of an observation into dir.
type Fetcher interface {
	Fetch(ctx context.Context, obsID, dir string) error
}

// FetchStage downloads and extracts the observation archive.
func FetchStage(fetcher Fetcher, obs Observation) pipeline.Stage {
	return pipeline.Stage{
		Name: StageFetch,
		Fn: func(ctx context.Context, _ pipeline.Env) error {
			return fetcher.Fetch(ctx, obs.ID, obs.Dirs.Root)
		},
	}
}

// DirsStage creates the output directories the following stages run in.
func DirsStage(obs Observation) pipeline.Stage {
	return pipeline.Stage{
		Name: StageDirs,
		Fn: func(context.Context, pipeline.Env) error {
			return obs.MkdirAll()
		},
	}
}

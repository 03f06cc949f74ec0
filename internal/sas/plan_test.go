package sas_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/xdp/internal/config"
	"github.com/askiada/xdp/internal/sas"
	"github.com/askiada/xdp/pkg/pipeline"
)

type fakeFetcher struct {
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, obsID, dir string) error {
	f.calls = append(f.calls, obsID+"@"+dir)

	return f.err
}

func fullConfig(workDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Observation = obsID
	cfg.WorkDir = workDir
	cfg.GTI.EventFile = "pn.fits"
	cfg.GTI.Expression = "RATE<=0.4"
	cfg.Images.MOS.EventFile = "mos1.fits"
	cfg.Images.MOS.Expression = "PI in [200:12000]"
	cfg.Images.PN.EventFile = "pn.fits"
	cfg.Images.PN.Expression = "PI in [200:12000]"
	cfg.Images.PN.OOT = true

	return cfg
}

func stageNames(stages []pipeline.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, stage.Name)
	}

	return names
}

func TestPlanOrder(t *testing.T) {
	t.Parallel()

	stages, err := sas.Plan(fullConfig("/data"), &fakeFetcher{})
	require.NoError(t, err)

	expected := []string{
		sas.StageFetch,
		sas.StageDirs,
		sas.StageCIFBuild,
		sas.StageODFIngest,
		sas.StageEMChain,
		sas.StageEPChain,
		sas.StageGTIRate,
		sas.StageGTIGen,
		sas.StageGTIFilter,
		sas.StageMOSImageSet,
		sas.StageMOSImage,
		sas.StagePNImageSet,
		sas.StagePNImage,
		sas.StagePNOOTImageSet,
		sas.StagePNOOTRescale,
		sas.StagePNOOTSubtract,
	}
	if diff := cmp.Diff(expected, stageNames(stages)); diff != "" {
		t.Errorf("unexpected stage order (-want +got):\n%s", diff)
	}
}

func TestPlanMinimal(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Observation = obsID
	cfg.Archive.Skip = true
	cfg.EMChain.Skip = true

	stages, err := sas.Plan(cfg, &fakeFetcher{})
	require.NoError(t, err)
	assert.Equal(t, []string{sas.StageDirs, sas.StageCIFBuild, sas.StageODFIngest, sas.StageEPChain}, stageNames(stages))

	cfg.Archive.Skip = false
	stages, err = sas.Plan(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, sas.StageDirs, stages[0].Name, "no fetch stage without a fetcher")
}

func TestObservationFromConfig(t *testing.T) {
	t.Parallel()

	cfg := fullConfig("/data")
	cfg.Directories.ODF = "/archive/odf"
	cfg.Directories.Images = "/products"

	obs, err := sas.ObservationFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/archive/odf", obs.Dirs.ODF)
	assert.Equal(t, "/products", obs.Dirs.Images)
	assert.Equal(t, "/data/0087940101/ccf", obs.Dirs.CCF)
}

func TestPlanRun(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	fetcher := &fakeFetcher{}

	var commands []pipeline.Command

	runner := pipeline.RunnerFunc(func(ctx context.Context, cmd pipeline.Command) error {
		commands = append(commands, cmd)

		return nil
	})

	pipe, err := pipeline.New(runner)
	require.NoError(t, err)
	stages, err := sas.Plan(fullConfig(workDir), fetcher)
	require.NoError(t, err)
	require.NoError(t, pipeline.AddStages(pipe, stages...))
	require.NoError(t, pipe.Run(context.Background()))

	assert.Equal(t, []string{obsID + "@" + workDir}, fetcher.calls)
	assert.DirExists(t, filepath.Join(workDir, obsID, "ccf"))
	assert.DirExists(t, filepath.Join(workDir, obsID, "images"))
	require.Len(t, commands, 14)

	ccf := "SAS_CCF=" + filepath.Join(workDir, obsID, "ccf", "ccf.cif")
	odf := "SAS_ODF=" + filepath.Join(workDir, obsID, "odf")

	assert.NotContains(t, commands[0].Env, ccf, "cifbuild does not see its own export")
	assert.Contains(t, commands[1].Env, ccf)
	assert.NotContains(t, commands[1].Env, odf, "odfingest does not see its own export")

	for _, cmd := range commands[2:] {
		assert.Contains(t, cmd.Env, ccf, cmd.Stage)
		assert.Contains(t, cmd.Env, odf, cmd.Stage)
	}
}

func TestPlanRunFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: assert.AnError}
	called := false

	pipe, err := pipeline.New(pipeline.RunnerFunc(func(context.Context, pipeline.Command) error {
		called = true

		return nil
	}))
	require.NoError(t, err)
	stages, err := sas.Plan(fullConfig(t.TempDir()), fetcher)
	require.NoError(t, err)
	require.NoError(t, pipeline.AddStages(pipe, stages...))

	err = pipe.Run(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, called)
}

// pathValue returns the path carried by a SAS argument, either "key=path" or "-ppath".
func pathValue(arg string) (string, bool) {
	if _, value, ok := strings.Cut(arg, "="); ok {
		return value, strings.Contains(value, string(filepath.Separator))
	}

	value := strings.TrimPrefix(arg, "-p")

	return value, strings.Contains(value, string(filepath.Separator))
}

func TestPlanRelativeWorkDir(t *testing.T) {
	t.Parallel()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg := fullConfig(".")
	cfg.Directories.Images = "products"

	stages, err := sas.Plan(cfg, &fakeFetcher{})
	require.NoError(t, err)

	pipe, err := pipeline.New(pipeline.RunnerFunc(func(context.Context, pipeline.Command) error { return nil }))
	require.NoError(t, err)
	require.NoError(t, pipeline.AddStages(pipe, stages...))

	for _, cmd := range pipe.Plan(nil) {
		if cmd.Program == "" {
			continue
		}

		assert.True(t, filepath.IsAbs(cmd.Dir), "%s runs in %s", cmd.Stage, cmd.Dir)

		for _, arg := range cmd.Args {
			if value, isPath := pathValue(arg); isPath {
				assert.True(t, filepath.IsAbs(value), "%s argument %s", cmd.Stage, arg)
			}
		}

		for _, kv := range cmd.Env {
			_, value, _ := strings.Cut(kv, "=")
			assert.True(t, filepath.IsAbs(value), "%s env %s", cmd.Stage, kv)
		}
	}

	for _, stage := range stages {
		if stage.Name != sas.StageCIFBuild {
			continue
		}

		assert.Equal(t, filepath.Join(cwd, obsID, "ccf"), stage.Dir)
		assert.Contains(t, stage.Args, "odfdir="+filepath.Join(cwd, obsID, "odf"))
		assert.Equal(t, filepath.Join(cwd, obsID, "ccf", "ccf.cif"), stage.Exports[sas.EnvCCF])
	}

	obs, err := sas.ObservationFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "products"), obs.Dirs.Images)
	assert.Equal(t, cwd, obs.Dirs.Root)
}

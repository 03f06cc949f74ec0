// Package config loads the configuration of a reduction run.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/xdp/internal/archive"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings of a reduction run.
type Config struct {
	// Observation is the ten digit observation ID.
	Observation string `yaml:"observation"`
	// WorkDir receives the archive and every directory of the observation tree.
	WorkDir string `yaml:"workdir"`

	Archive     ArchiveConfig     `yaml:"archive"`
	Directories DirectoriesConfig `yaml:"directories"`
	EMChain     EMChainConfig     `yaml:"emchain"`
	EPChain     EPChainConfig     `yaml:"epchain"`
	GTI         GTIConfig         `yaml:"gti"`
	Images      ImagesConfig      `yaml:"images"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ArchiveConfig configures the archive download.
type ArchiveConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
	// Skip uses an archive already extracted in the work directory.
	Skip bool `yaml:"skip"`
}

// DirectoriesConfig overrides the directories derived from the work directory.
type DirectoriesConfig struct {
	ODF    string `yaml:"odf"`
	CCF    string `yaml:"ccf"`
	EM     string `yaml:"em"`
	EP     string `yaml:"ep"`
	GTI    string `yaml:"gti"`
	Images string `yaml:"images"`
}

type EMChainConfig struct {
	Skip bool `yaml:"skip"`
}

type EPChainConfig struct {
	Skip bool `yaml:"skip"`
	// OOT runs the out-of-time correction.
	OOT bool `yaml:"oot"`
}

// GTIConfig configures the good time interval stages. They are skipped without an event file.
type GTIConfig struct {
	EventFile   string  `yaml:"event_file"`
	Expression  string  `yaml:"expression"`
	Name        string  `yaml:"name"`
	TimeBinSize int     `yaml:"time_bin_size"`
	Sigma       float64 `yaml:"sigma"`
}

type ImagesConfig struct {
	MOS ImageConfig   `yaml:"mos"`
	PN  PNImageConfig `yaml:"pn"`
}

// ImageConfig configures the images of an instrument. They are skipped without an event file.
type ImageConfig struct {
	EventFile  string `yaml:"event_file"`
	Expression string `yaml:"expression"`
	Image      string `yaml:"image"`
	ImageSet   string `yaml:"imageset"`
	BinSize    int    `yaml:"bin_size"`
}

type PNImageConfig struct {
	ImageConfig `yaml:",inline"`

	// OOT subtracts the rescaled out-of-time image.
	OOT           bool    `yaml:"oot"`
	OOTImageSet   string  `yaml:"oot_imageset"`
	OOTScale      float64 `yaml:"oot_scale"`
	OOTRescaled   string  `yaml:"oot_rescaled"`
	OOTSubtracted string  `yaml:"oot_subtracted"`
}

type ExecutionConfig struct {
	DryRun     bool `yaml:"dry_run"`
	StderrTail int  `yaml:"stderr_tail"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the defaults of a run.
func DefaultConfig() *Config {
	return &Config{
		WorkDir: ".",
		Archive: ArchiveConfig{
			URL:     archive.DefaultURL,
			Timeout: "30m",
		},
		EPChain: EPChainConfig{OOT: true},
		GTI: GTIConfig{
			Name:        "gti",
			TimeBinSize: 50,
			Sigma:       3,
		},
		Images: ImagesConfig{
			MOS: ImageConfig{Image: "image", ImageSet: "imageset", BinSize: 80},
			PN: PNImageConfig{
				ImageConfig:   ImageConfig{Image: "image", ImageSet: "imageset", BinSize: 40},
				OOTImageSet:   "oot_imageset",
				OOTScale:      0.063,
				OOTRescaled:   "PN_OoT_image_rescaled.fits",
				OOTSubtracted: "image_oot_sub.fits",
			},
		},
		Execution: ExecutionConfig{StderrTail: 20},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies the environment overrides. An
// empty path only applies the overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config %s", path)
		}

		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse config %s", path)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies the XDP_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("XDP_OBSERVATION"); v != "" {
		c.Observation = v
	}

	if v := os.Getenv("XDP_WORKDIR"); v != "" {
		c.WorkDir = v
	}

	if v := os.Getenv("XDP_ARCHIVE_URL"); v != "" {
		c.Archive.URL = v
	}

	if v := os.Getenv("XDP_DRY_RUN"); v != "" {
		if dryRun, err := strconv.ParseBool(v); err == nil {
			c.Execution.DryRun = dryRun
		}
	}

	if v := os.Getenv("XDP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ArchiveTimeout returns the parsed download timeout, zero meaning none.
func (c *Config) ArchiveTimeout() (time.Duration, error) {
	if c.Archive.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Archive.Timeout)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "archive.timeout %q", c.Archive.Timeout)
	}

	return d, nil
}

// Validate checks the config can describe a run.
func (c *Config) Validate() error {
	err := archive.ValidateObservationID(c.Observation)
	if err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	if c.WorkDir == "" {
		return errors.Wrap(ErrInvalidConfig, "workdir must be set")
	}

	if _, err := c.ArchiveTimeout(); err != nil {
		return err
	}

	if c.GTI.EventFile != "" {
		if c.GTI.TimeBinSize <= 0 {
			return errors.Wrap(ErrInvalidConfig, "gti.time_bin_size must be positive")
		}

		if c.GTI.Sigma <= 0 {
			return errors.Wrap(ErrInvalidConfig, "gti.sigma must be positive")
		}

		if c.GTI.Name == "" {
			return errors.Wrap(ErrInvalidConfig, "gti.name must be set")
		}
	}

	if err := c.Images.MOS.validate("images.mos"); err != nil {
		return err
	}

	if err := c.Images.PN.validate("images.pn"); err != nil {
		return err
	}

	if c.Images.PN.EventFile != "" && c.Images.PN.OOT && c.Images.PN.OOTScale <= 0 {
		return errors.Wrap(ErrInvalidConfig, "images.pn.oot_scale must be positive")
	}

	return nil
}

func (ic ImageConfig) validate(prefix string) error {
	if ic.EventFile == "" {
		return nil
	}

	if ic.BinSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s.bin_size must be positive", prefix)
	}

	if ic.Image == "" || ic.ImageSet == "" {
		return errors.Wrapf(ErrInvalidConfig, "%s.image and %s.imageset must be set", prefix, prefix)
	}

	return nil
}

// Package config loads the YAML configuration shared by the suptools command
// line and MCP server, and converts it into dataset configurations.
//
// Example file:
//
//	data_dir: ./flowers
//	img_size: 224
//	batch_size: 32
//	workers: 4
//	valid_pct: 0.2
//	shuffle_size: 1000
//	seed: 42
//	train_augments: [random_crop, flip, brightness, contrast]
//	valid_augments: [central_crop]
//
// Fields left out keep their default values.
package config

import (
	"io"
	"os"

	"github.com/ironsheep/suptools/internal/dataset"
	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the dataset preparation settings.
type Config struct {
	// DataDir is the directory holding one sub-directory of images per class.
	DataDir string `yaml:"data_dir"`

	// ClassNames, if empty, are read from the sub-directories of DataDir.
	ClassNames []string `yaml:"class_names"`

	ImageSize   int     `yaml:"img_size"`
	BatchSize   int     `yaml:"batch_size"`
	Workers     int     `yaml:"workers"`
	ShuffleSize int     `yaml:"shuffle_size"`
	ValidPct    float64 `yaml:"valid_pct"`
	Seed        int64   `yaml:"seed"`

	// Repeat makes datasets loop indefinitely.
	Repeat bool `yaml:"repeat"`

	// TrainAugments and ValidAugments are augmentation names, see imaging.AugmentationNames.
	TrainAugments []string `yaml:"train_augments"`
	ValidAugments []string `yaml:"valid_augments"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:       ".",
		ImageSize:     dataset.DefaultImageSize,
		BatchSize:     dataset.DefaultBatchSize,
		Workers:       dataset.DefaultWorkers,
		ValidPct:      dataset.DefaultValidPct,
		Repeat:        true,
		TrainAugments: []string{"random_crop", "flip", "brightness", "contrast"},
		ValidAugments: []string{"central_crop"},
	}
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "config file %q", path)
	}
	return cfg, nil
}

// Parse reads a YAML configuration from r on top of the defaults, and validates it.
// Unknown fields are an error.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch {
	case c.ImageSize <= 0:
		return errors.Errorf("img_size must be positive, got %d", c.ImageSize)
	case c.BatchSize <= 0:
		return errors.Errorf("batch_size must be positive, got %d", c.BatchSize)
	case c.Workers <= 0:
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	case c.ValidPct < 0 || c.ValidPct > 1:
		return errors.Errorf("valid_pct must be in [0, 1], got %g", c.ValidPct)
	}
	if _, err := imaging.ParseAugmentations(c.TrainAugments); err != nil {
		return errors.WithMessage(err, "train_augments")
	}
	if _, err := imaging.ParseAugmentations(c.ValidAugments); err != nil {
		return errors.WithMessage(err, "valid_augments")
	}
	return nil
}

// Classes returns ClassNames, or the sub-directory names of DataDir if empty.
func (c *Config) Classes() ([]string, error) {
	if len(c.ClassNames) > 0 {
		return c.ClassNames, nil
	}
	return dataset.ClassNames(c.DataDir)
}

// Augments parses the augmentation names into dataset augmentation chains.
func (c *Config) Augments() (*dataset.Augments, error) {
	trainAugs, err := imaging.ParseAugmentations(c.TrainAugments)
	if err != nil {
		return nil, errors.WithMessage(err, "train_augments")
	}
	validAugs, err := imaging.ParseAugmentations(c.ValidAugments)
	if err != nil {
		return nil, errors.WithMessage(err, "valid_augments")
	}
	return &dataset.Augments{Train: trainAugs, Valid: validAugs}, nil
}

// DatasetConfig returns the dataset configuration for mode. Class names are
// resolved with Classes.
func (c *Config) DatasetConfig(mode dataset.Mode) (dataset.Config, error) {
	classNames, err := c.Classes()
	if err != nil {
		return dataset.Config{}, err
	}
	augs, err := c.Augments()
	if err != nil {
		return dataset.Config{}, err
	}
	return dataset.Config{
		ClassNames:  classNames,
		ImageSize:   c.ImageSize,
		BatchSize:   c.BatchSize,
		Workers:     c.Workers,
		ShuffleSize: c.ShuffleSize,
		Augments:    augs,
		Mode:        mode,
		Repeat:      c.Repeat,
		Prefetch:    c.BatchSize,
		Seed:        c.Seed,
	}, nil
}

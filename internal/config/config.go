// Package config loads and validates the handful of engine-wide
// settings maxsimdb reads from a YAML file: storage behavior and the
// default retrieval/training parameters a caller can override per
// call. Values are layered as defaults, then the file's non-zero
// settings, then validated; there is no environment-variable layer.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageConfig controls how the column-family store opens its file.
type StorageConfig struct {
	BulkLoad bool `yaml:"bulk_load"`
}

// RetrievalConfig mirrors retriever.Options (§4.7) so a deployment can
// pin its own defaults without touching call sites.
type RetrievalConfig struct {
	NProbe                  int     `yaml:"n_probe"`
	KTopCentroids           int     `yaml:"k_top_centroids"`
	CentroidScoreThreshold  float32 `yaml:"centroid_score_threshold"`
	NumSecondPass           int     `yaml:"num_second_pass"`
	NearestTokensToFetch    int     `yaml:"nearest_tokens_to_fetch"`
}

// TrainingConfig controls k-means training defaults (§4.3).
type TrainingConfig struct {
	Iterations int `yaml:"iterations"`
}

// Config is the complete maxsimdb engine configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Training  TrainingConfig  `yaml:"training"`
}

// Default returns the configuration implied by spec defaults: no bulk
// load, n_probe 32, k_top_centroids 2, centroid_score_threshold 0.45,
// num_second_pass left at 0 (callers resolve max(k*32, 1024) against
// the requested k at search time), nearest_tokens_to_fetch 100, and 10
// k-means iterations.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			NProbe:                 32,
			KTopCentroids:          2,
			CentroidScoreThreshold: 0.45,
			NumSecondPass:          0,
			NearestTokensToFetch:   100,
		},
		Training: TrainingConfig{
			Iterations: 10,
		},
	}
}

// Load reads a YAML config file at path and merges it over Default.
// A missing file is not an error — Default() is returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	mergeInto(cfg, &parsed)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeInto overlays non-zero fields of other onto base.
func mergeInto(base, other *Config) {
	if other.Storage.BulkLoad {
		base.Storage.BulkLoad = true
	}
	if other.Retrieval.NProbe != 0 {
		base.Retrieval.NProbe = other.Retrieval.NProbe
	}
	if other.Retrieval.KTopCentroids != 0 {
		base.Retrieval.KTopCentroids = other.Retrieval.KTopCentroids
	}
	if other.Retrieval.CentroidScoreThreshold != 0 {
		base.Retrieval.CentroidScoreThreshold = other.Retrieval.CentroidScoreThreshold
	}
	if other.Retrieval.NumSecondPass != 0 {
		base.Retrieval.NumSecondPass = other.Retrieval.NumSecondPass
	}
	if other.Retrieval.NearestTokensToFetch != 0 {
		base.Retrieval.NearestTokensToFetch = other.Retrieval.NearestTokensToFetch
	}
	if other.Training.Iterations != 0 {
		base.Training.Iterations = other.Training.Iterations
	}
}

// Validate checks that every setting is within a sane range.
func (c *Config) Validate() error {
	if c.Retrieval.NProbe <= 0 {
		return fmt.Errorf("retrieval.n_probe must be > 0")
	}
	if c.Retrieval.KTopCentroids <= 0 {
		return fmt.Errorf("retrieval.k_top_centroids must be > 0")
	}
	if c.Retrieval.CentroidScoreThreshold < 0 || c.Retrieval.CentroidScoreThreshold > 1 {
		return fmt.Errorf("retrieval.centroid_score_threshold must be in [0,1]")
	}
	if c.Retrieval.NearestTokensToFetch <= 0 {
		return fmt.Errorf("retrieval.nearest_tokens_to_fetch must be > 0")
	}
	if c.Training.Iterations <= 0 {
		return fmt.Errorf("training.iterations must be > 0")
	}
	return nil
}

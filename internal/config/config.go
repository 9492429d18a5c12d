// Package config centralises the fingerprinting parameters that must stay
// identical between any index and the queries run against it.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable that must stay fixed across the lifetime
// of an index. It is stamped into a persisted index's header; loading
// an index with a different Config is a refusal, not a silent drift.
type Config struct {
	SampleRate          int `yaml:"sample_rate"`
	FFTSize             int `yaml:"fft_size"`
	HopSize             int `yaml:"hop_size"`
	NumBands            int `yaml:"num_bands"`
	NeighbourhoodK      int `yaml:"neighbourhood_k"`
	TargetZoneFrames    int `yaml:"target_zone_frames"`
	FreqBin             int `yaml:"freq_bin"`
	TimeBin             int `yaml:"time_bin"`
	AlignBin            int `yaml:"align_bin"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig selects and configures the durable backends. The
// fingerprint index itself defaults to file-based snapshots; Postgres and
// the analytics store are opt-in.
type DatabaseConfig struct {
	PostgresDSN     string `yaml:"postgres_dsn"`
	AnalyticsDSN    string `yaml:"analytics_dsn"`
}

// Default returns the parameter set the fingerprinting pipeline uses
// when no YAML override is supplied.
func Default() Config {
	return Config{
		SampleRate:       8192,
		FFTSize:          1024,
		HopSize:          32,
		NumBands:         6,
		NeighbourhoodK:   30,
		TargetZoneFrames: 50,
		FreqBin:          2,
		TimeBin:          2,
		AlignBin:         3,
	}
}

// Load reads a YAML config file, falling back to Default() for any field
// left unset by the file's zero values not being present. Environment
// variables from a .env file (if present) are loaded as a side effect;
// they fill in any DatabaseConfig field left empty by the YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("config: loading .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if dsn := os.Getenv("SHAZOOM_POSTGRES_DSN"); dsn != "" && cfg.Database.PostgresDSN == "" {
		cfg.Database.PostgresDSN = dsn
	}
	if dsn := os.Getenv("SHAZOOM_ANALYTICS_DSN"); dsn != "" && cfg.Database.AnalyticsDSN == "" {
		cfg.Database.AnalyticsDSN = dsn
	}
	return cfg
}

// Equal reports whether two configs agree on every fingerprinting
// parameter (the fields that must match between an index and a query).
// Database connection settings are deliberately excluded: they describe
// where data lives, not how it was computed.
func (c Config) Equal(other Config) bool {
	return c.SampleRate == other.SampleRate &&
		c.FFTSize == other.FFTSize &&
		c.HopSize == other.HopSize &&
		c.NumBands == other.NumBands &&
		c.NeighbourhoodK == other.NeighbourhoodK &&
		c.TargetZoneFrames == other.TargetZoneFrames &&
		c.FreqBin == other.FreqBin &&
		c.TimeBin == other.TimeBin &&
		c.AlignBin == other.AlignBin
}

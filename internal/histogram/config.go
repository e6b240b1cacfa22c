package histogram

import (
	"fmt"

	"github.com/banshee-data/pixelscan/internal/config"
)

// DefaultInjectionsPerPoint is the number of charge injections assumed per
// scan point by the threshold estimator.
const DefaultInjectionsPerPoint = 100

// Config selects which histograms an Accumulator builds and how it treats
// inconsistent input. The enable flags only decide which counters are
// incremented; occupancy storage is sized by the scan parameter table.
type Config struct {
	Occupancy bool // occupancy per pixel and scan parameter
	ToT       bool // 16-bin ToT histogram
	RelBcid   bool // 16-bin relative BCID histogram

	// NoScanParameter keeps a single parameter bin and ignores scan
	// parameter tables.
	NoScanParameter bool

	// StrictEventOrder fails lookups for events that precede the readout
	// reached by an earlier lookup. Otherwise the lookup rescans from the
	// first readout.
	StrictEventOrder bool

	// StrictParameterLookup rejects scan parameter values missing from the
	// parameter set instead of filing them into bin 0.
	StrictParameterLookup bool

	// SkipInvalidHits drops malformed hits and counts them in Stats instead
	// of failing the batch. Correlation errors always fail the batch.
	SkipInvalidHits bool

	InjectionsPerPoint int
}

// DefaultConfig returns a Config with all three histograms enabled.
func DefaultConfig() *Config {
	return &Config{
		Occupancy:          true,
		ToT:                true,
		RelBcid:            true,
		InjectionsPerPoint: DefaultInjectionsPerPoint,
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	return &Config{
		Occupancy:             cfg.GetOccupancyHist(),
		ToT:                   cfg.GetTotHist(),
		RelBcid:               cfg.GetRelBcidHist(),
		NoScanParameter:       cfg.GetNoScanParameter(),
		StrictEventOrder:      cfg.GetStrictEventOrder(),
		StrictParameterLookup: cfg.GetStrictParameterLookup(),
		SkipInvalidHits:       cfg.GetSkipInvalidHits(),
		InjectionsPerPoint:    cfg.GetInjectionsPerPoint(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InjectionsPerPoint <= 0 {
		return fmt.Errorf("InjectionsPerPoint must be positive, got %d", c.InjectionsPerPoint)
	}
	return nil
}

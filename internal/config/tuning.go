package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical histogramming defaults file.
const DefaultConfigPath = "config/histogram.defaults.json"

// TuningConfig is the root configuration for a histogramming run. Every
// field is optional; the Get* methods supply the default for a nil field so
// partial files are safe.
type TuningConfig struct {
	// Histogram selection
	OccupancyHist *bool `json:"occupancy_hist,omitempty"`
	TotHist       *bool `json:"tot_hist,omitempty"`
	RelBcidHist   *bool `json:"rel_bcid_hist,omitempty"`

	// Scan parameter handling
	NoScanParameter       *bool `json:"no_scan_parameter,omitempty"`
	StrictEventOrder      *bool `json:"strict_event_order,omitempty"`
	StrictParameterLookup *bool `json:"strict_parameter_lookup,omitempty"`

	// Ingestion
	SkipInvalidHits *bool `json:"skip_invalid_hits,omitempty"`
	HitBatchSize    *int  `json:"hit_batch_size,omitempty"`

	// Threshold scan model
	InjectionsPerPoint *int `json:"injections_per_point,omitempty"`

	// Reporting
	PlotBins *int `json:"plot_bins,omitempty"`
}

func ptrBool(v bool) *bool { return &v }
func ptrInt(v int) *int    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		OccupancyHist:         ptrBool(c.GetOccupancyHist()),
		TotHist:               ptrBool(c.GetTotHist()),
		RelBcidHist:           ptrBool(c.GetRelBcidHist()),
		NoScanParameter:       ptrBool(c.GetNoScanParameter()),
		StrictEventOrder:      ptrBool(c.GetStrictEventOrder()),
		StrictParameterLookup: ptrBool(c.GetStrictParameterLookup()),
		SkipInvalidHits:       ptrBool(c.GetSkipInvalidHits()),
		HitBatchSize:          ptrInt(c.GetHitBatchSize()),
		InjectionsPerPoint:    ptrInt(c.GetInjectionsPerPoint()),
		PlotBins:              ptrInt(c.GetPlotBins()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.HitBatchSize != nil && *c.HitBatchSize <= 0 {
		return fmt.Errorf("hit_batch_size must be positive, got %d", *c.HitBatchSize)
	}
	if c.InjectionsPerPoint != nil && *c.InjectionsPerPoint <= 0 {
		return fmt.Errorf("injections_per_point must be positive, got %d", *c.InjectionsPerPoint)
	}
	if c.PlotBins != nil && *c.PlotBins <= 0 {
		return fmt.Errorf("plot_bins must be positive, got %d", *c.PlotBins)
	}
	return nil
}

// GetOccupancyHist returns the occupancy_hist value or the default.
func (c *TuningConfig) GetOccupancyHist() bool {
	if c.OccupancyHist == nil {
		return true
	}
	return *c.OccupancyHist
}

// GetTotHist returns the tot_hist value or the default.
func (c *TuningConfig) GetTotHist() bool {
	if c.TotHist == nil {
		return true
	}
	return *c.TotHist
}

// GetRelBcidHist returns the rel_bcid_hist value or the default.
func (c *TuningConfig) GetRelBcidHist() bool {
	if c.RelBcidHist == nil {
		return true
	}
	return *c.RelBcidHist
}

// GetNoScanParameter returns the no_scan_parameter value or the default.
func (c *TuningConfig) GetNoScanParameter() bool {
	if c.NoScanParameter == nil {
		return false
	}
	return *c.NoScanParameter
}

// GetStrictEventOrder returns the strict_event_order value or the default.
func (c *TuningConfig) GetStrictEventOrder() bool {
	if c.StrictEventOrder == nil {
		return false
	}
	return *c.StrictEventOrder
}

// GetStrictParameterLookup returns the strict_parameter_lookup value or the default.
func (c *TuningConfig) GetStrictParameterLookup() bool {
	if c.StrictParameterLookup == nil {
		return false
	}
	return *c.StrictParameterLookup
}

// GetSkipInvalidHits returns the skip_invalid_hits value or the default.
func (c *TuningConfig) GetSkipInvalidHits() bool {
	if c.SkipInvalidHits == nil {
		return false // default: abort the batch
	}
	return *c.SkipInvalidHits
}

// GetHitBatchSize returns the hit_batch_size value or the default.
func (c *TuningConfig) GetHitBatchSize() int {
	if c.HitBatchSize == nil {
		return 4096
	}
	return *c.HitBatchSize
}

// GetInjectionsPerPoint returns the injections_per_point value or the default.
func (c *TuningConfig) GetInjectionsPerPoint() int {
	if c.InjectionsPerPoint == nil {
		return 100
	}
	return *c.InjectionsPerPoint
}

// GetPlotBins returns the plot_bins value or the default.
func (c *TuningConfig) GetPlotBins() int {
	if c.PlotBins == nil {
		return 50
	}
	return *c.PlotBins
}

// Package scanrun drives one histogramming run end to end: metadata and hit
// files in, histograms, calibration, plots and an optional database record
// out.
package scanrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/pixelscan/internal/config"
	"github.com/banshee-data/pixelscan/internal/histdb"
	"github.com/banshee-data/pixelscan/internal/histogram"
	"github.com/banshee-data/pixelscan/internal/hitio"
	"github.com/banshee-data/pixelscan/internal/monitoring"
	"github.com/banshee-data/pixelscan/internal/report"
)

// progressEvery is the hit interval between progress log lines.
const progressEvery = 1_000_000

// Options describes one run. Only HitsPath is required.
type Options struct {
	HitsPath string
	// MetaPath is the readout metadata file. Empty runs with a single
	// parameter bin.
	MetaPath string
	SensorID string
	// Tuning defaults to config.DefaultTuningConfig when nil.
	Tuning *config.TuningConfig
	// NoScan forces single-parameter mode regardless of Tuning.
	NoScan bool
	// DBPath, when set, stores the run in that SQLite database.
	DBPath string
	// PlotDir, when set, receives PNG plots and an HTML pixel map page.
	PlotDir string
}

// Result is the outcome of a successful run.
type Result struct {
	RunID           string
	Stats           histogram.Stats
	ParameterValues []uint32
	Occupancy       histogram.OccupancyView
	ToT             []uint64
	RelBcid         []uint64
	// Calibration is nil unless the run had at least two scan parameters
	// and occupancy histogramming enabled.
	Calibration *histogram.ThresholdMap
	Threshold   report.Summary
	Noise       report.Summary
	Plots       []string
	Elapsed     time.Duration
}

// Run executes the run described by opts. It checks ctx between hit
// batches; a cancelled run returns ctx.Err() and writes nothing.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.HitsPath == "" {
		return nil, errors.New("no hit file given")
	}
	tuning := opts.Tuning
	if tuning == nil {
		tuning = config.DefaultTuningConfig()
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}

	cfg := histogram.ConfigFromTuning(tuning)
	if opts.NoScan {
		cfg.NoScanParameter = true
	}
	acc, err := histogram.New(cfg)
	if err != nil {
		return nil, err
	}

	if opts.MetaPath != "" && !cfg.NoScanParameter {
		if err := loadMeta(acc, opts.MetaPath); err != nil {
			return nil, err
		}
	}

	progress := monitoring.NewProgress(filepath.Base(opts.HitsPath), progressEvery)
	if err := ingest(ctx, acc, opts.HitsPath, tuning.GetHitBatchSize(), progress); err != nil {
		return nil, err
	}

	res := &Result{
		Stats:           acc.Stats(),
		ParameterValues: acc.ParameterValues(),
		Occupancy:       acc.Occupancy(),
		ToT:             acc.ToT(),
		RelBcid:         acc.RelBcid(),
	}
	if acc.OccupancyEnabled() {
		if m, ok := acc.ThresholdNoise(); ok {
			res.Calibration = m
			res.Threshold = report.Summarize(report.HitPixels(m.Threshold, res.Occupancy))
			res.Noise = report.Summarize(report.HitPixels(m.Noise, res.Occupancy))
		}
	}

	if opts.PlotDir != "" {
		plots, err := writePlots(opts.PlotDir, res, tuning.GetPlotBins())
		if err != nil {
			return nil, err
		}
		res.Plots = plots
	}

	if opts.DBPath != "" {
		id, err := persist(opts, tuning, res)
		if err != nil {
			return nil, err
		}
		res.RunID = id
	}

	res.Elapsed = progress.Done()
	return res, nil
}

func loadMeta(acc *histogram.Accumulator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	meta, err := hitio.ReadMeta(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return acc.SetScanParameters(meta.ScanParameters, meta.EventIndex)
}

func ingest(ctx context.Context, acc *histogram.Accumulator, path string, batchSize int, progress *monitoring.Progress) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open hits: %w", err)
	}
	defer f.Close()

	hr := hitio.NewHitReader(f)
	buf := make([]histogram.Hit, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := hr.Next(buf)
		if n > 0 {
			if addErr := acc.AddHits(buf[:n]); addErr != nil {
				return fmt.Errorf("%s: hits %d-%d: %w", path, progress.Hits(), progress.Hits()+uint64(n)-1, addErr)
			}
			progress.Add(n)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
}

func writePlots(dir string, res *Result, bins int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	var written []string

	if res.ToT != nil {
		path := filepath.Join(dir, "tot.png")
		if err := report.WriteBinsPNG(path, "ToT", "ToT code", res.ToT); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	if res.RelBcid != nil {
		path := filepath.Join(dir, "rel_bcid.png")
		if err := report.WriteBinsPNG(path, "Relative BCID", "BCID", res.RelBcid); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	maps := []report.PixelMap{{Title: "Occupancy", Values: report.PixelHits(res.Occupancy), SkipZero: true}}
	if res.Calibration != nil && res.Threshold.Count > 0 {
		for _, d := range []struct {
			name, title string
			values      []float64
		}{
			{"threshold.png", "Threshold", res.Calibration.Threshold},
			{"noise.png", "Noise", res.Calibration.Noise},
		} {
			path := filepath.Join(dir, d.name)
			if err := report.WriteDistributionPNG(path, d.title, "Scan parameter", report.HitPixels(d.values, res.Occupancy), bins); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
		maps = append(maps,
			report.PixelMap{Title: "Threshold", Values: res.Calibration.Threshold},
			report.PixelMap{Title: "Noise", Values: res.Calibration.Noise},
		)
	}

	if res.Occupancy.ParameterCount() > 0 {
		path := filepath.Join(dir, "pixel_maps.html")
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		err = report.WritePixelMapsHTML(f, "Pixel maps", maps...)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func persist(opts Options, tuning *config.TuningConfig, res *Result) (string, error) {
	db, err := histdb.Open(opts.DBPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	configJSON, err := json.Marshal(tuning)
	if err != nil {
		return "", fmt.Errorf("marshal tuning config: %w", err)
	}
	return db.InsertRun(&histdb.Run{
		SensorID:        opts.SensorID,
		ParameterValues: res.ParameterValues,
		HitsAccepted:    res.Stats.Accepted,
		HitsRejected:    res.Stats.Rejected(),
		ConfigJSON:      configJSON,
		Occupancy:       res.Occupancy,
		ToT:             res.ToT,
		RelBcid:         res.RelBcid,
		Calibration:     res.Calibration,
	})
}

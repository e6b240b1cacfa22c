// Command pixelscan histograms decoded pixel hits against the scan parameter
// of their readout and estimates per-pixel threshold and noise.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/pixelscan/internal/config"
	"github.com/banshee-data/pixelscan/internal/histdb"
	"github.com/banshee-data/pixelscan/internal/histogram"
	"github.com/banshee-data/pixelscan/internal/monitoring"
	"github.com/banshee-data/pixelscan/internal/scanrun"
	"github.com/banshee-data/pixelscan/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pixelscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		hitsPath   = fs.String("hits", "", "Hit CSV file (event_number,column,row,tot,relative_bcid)")
		metaPath   = fs.String("meta", "", "Readout metadata CSV file (event_number,scan_parameter)")
		configPath = fs.String("config", "", "Tuning config JSON (defaults to "+config.DefaultConfigPath+" when present)")
		sensorID   = fs.String("sensor", "dut0", "Sensor identifier stored with the run")
		dbPath     = fs.String("db", "", "SQLite database to store the run in")
		plotDir    = fs.String("plots", "", "Directory for PNG plots and HTML pixel maps")
		noScan     = fs.Bool("no-scan", false, "Ignore scan parameters and histogram into a single bin")
		listRuns   = fs.Int("list", 0, "List the N most recent runs in -db and exit")
		trace      = fs.Bool("trace", false, "Log per-hit parameter lookups")
		quiet      = fs.Bool("quiet", false, "Suppress progress logging")
		showVer    = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVer {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	var traceW io.Writer
	if *trace {
		traceW = stderr
	}
	histogram.SetLogWriters(stderr, stderr, traceW)
	if *quiet {
		histogram.SetLogWriters(stderr, nil, nil)
		monitoring.SetLogger(nil)
	}

	if *listRuns > 0 {
		if err := printRuns(stdout, *dbPath, *listRuns); err != nil {
			fmt.Fprintf(stderr, "pixelscan: %v\n", err)
			return 1
		}
		return 0
	}

	if *hitsPath == "" {
		fmt.Fprintln(stderr, "pixelscan: -hits is required")
		fs.Usage()
		return 2
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "pixelscan: %v\n", err)
		return 1
	}

	res, err := scanrun.Run(ctx, scanrun.Options{
		HitsPath: *hitsPath,
		MetaPath: *metaPath,
		SensorID: *sensorID,
		Tuning:   tuning,
		NoScan:   *noScan,
		DBPath:   *dbPath,
		PlotDir:  *plotDir,
	})
	if err != nil {
		fmt.Fprintf(stderr, "pixelscan: %v\n", err)
		return 1
	}
	printResult(stdout, res)
	return 0
}

// loadTuning reads path, or the default config file when path is empty and
// the file exists, or falls back to built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path != "" {
		return config.LoadTuningConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadTuningConfig(config.DefaultConfigPath)
	}
	return config.DefaultTuningConfig(), nil
}

func printResult(w io.Writer, res *scanrun.Result) {
	fmt.Fprintf(w, "hits accepted: %d\n", res.Stats.Accepted)
	if n := res.Stats.Rejected(); n > 0 {
		fmt.Fprintf(w, "hits rejected: %d (column %d, row %d, tot %d, bcid %d, parameter %d)\n",
			n, res.Stats.RejectedColumn, res.Stats.RejectedRow, res.Stats.RejectedTot,
			res.Stats.RejectedBcid, res.Stats.RejectedParameter)
	}
	fmt.Fprintf(w, "scan parameters: %d\n", res.Occupancy.ParameterCount())
	if res.Calibration != nil {
		fmt.Fprintf(w, "threshold: mean %.2f std %.2f median %.2f over %d pixels\n",
			res.Threshold.Mean, res.Threshold.StdDev, res.Threshold.Median, res.Threshold.Count)
		fmt.Fprintf(w, "noise: mean %.2f std %.2f median %.2f\n",
			res.Noise.Mean, res.Noise.StdDev, res.Noise.Median)
	}
	for _, p := range res.Plots {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	if res.RunID != "" {
		fmt.Fprintf(w, "run id: %s\n", res.RunID)
	}
}

func printRuns(w io.Writer, dbPath string, limit int) error {
	if dbPath == "" {
		return fmt.Errorf("-list needs -db")
	}
	db, err := histdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d params [%d, %d]\t%d hits (%d rejected)\n",
			r.RunID, r.SensorID, r.ParameterCount, r.MinParameter, r.MaxParameter,
			r.HitsAccepted, r.HitsRejected)
	}
	return nil
}

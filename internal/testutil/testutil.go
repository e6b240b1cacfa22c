// Package testutil provides shared test fixtures: hit and metadata files in
// the CSV layout read by hitio.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

// Readout is one metadata row: the first event of a readout and the scan
// parameter value active for it.
type Readout struct {
	EventNumber   uint64
	ScanParameter uint32
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// HitsCSV renders hits with a header line.
func HitsCSV(hits []histogram.Hit) string {
	var b strings.Builder
	b.WriteString("event_number,column,row,tot,relative_bcid\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d\n", h.EventNumber, h.Column, h.Row, h.ToT, h.RelativeBCID)
	}
	return b.String()
}

// MetaCSV renders readouts with a header line.
func MetaCSV(readouts []Readout) string {
	var b strings.Builder
	b.WriteString("event_number,scan_parameter\n")
	for _, r := range readouts {
		fmt.Fprintf(&b, "%d,%d\n", r.EventNumber, r.ScanParameter)
	}
	return b.String()
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ThresholdScan builds hits for a threshold scan in which every listed pixel
// fires injections times per scan point from its threshold step upward.
// Readouts start one event per scan point at event 0.
func ThresholdScan(params []uint32, injections int, pixels map[[2]uint32]int) ([]histogram.Hit, []Readout) {
	readouts := make([]Readout, len(params))
	for i, p := range params {
		readouts[i] = Readout{EventNumber: uint64(i * injections), ScanParameter: p}
	}
	var hits []histogram.Hit
	for i := range params {
		for inj := 0; inj < injections; inj++ {
			event := uint64(i*injections + inj)
			for px, step := range pixels {
				if i < step {
					continue
				}
				hits = append(hits, histogram.Hit{EventNumber: event, Column: px[0], Row: px[1], ToT: 5, RelativeBCID: 7})
			}
		}
	}
	return hits, readouts
}

package testutil

import (
	"os"
	"testing"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

func TestHitsCSV(t *testing.T) {
	got := HitsCSV([]histogram.Hit{{EventNumber: 3, Column: 1, Row: 2, ToT: 4, RelativeBCID: 5}})
	want := "event_number,column,row,tot,relative_bcid\n3,1,2,4,5\n"
	if got != want {
		t.Errorf("HitsCSV = %q, want %q", got, want)
	}
}

func TestMetaCSV(t *testing.T) {
	got := MetaCSV([]Readout{{0, 10}, {100, 20}})
	want := "event_number,scan_parameter\n0,10\n100,20\n"
	if got != want {
		t.Errorf("MetaCSV = %q, want %q", got, want)
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "a.csv", "x")
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(data) != "x" {
		t.Errorf("content = %q", data)
	}
}

func TestThresholdScan(t *testing.T) {
	hits, readouts := ThresholdScan([]uint32{10, 20, 30}, 4, map[[2]uint32]int{{1, 1}: 1, {2, 2}: 3})
	if len(readouts) != 3 || readouts[2].EventNumber != 8 || readouts[2].ScanParameter != 30 {
		t.Fatalf("readouts = %+v", readouts)
	}
	// Pixel (1,1) fires in steps 1 and 2; pixel (2,2) never reaches step 3.
	if len(hits) != 8 {
		t.Fatalf("got %d hits, want 8", len(hits))
	}
	for _, h := range hits {
		if h.Column != 1 || h.EventNumber < 4 {
			t.Errorf("unexpected hit %+v", h)
		}
	}
}

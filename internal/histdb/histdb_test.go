package histdb

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(t *testing.T) *Run {
	t.Helper()
	counts := make([]uint32, 2*histogram.PixelCount)
	counts[histogram.PixelIndex(1, 2)] = 3
	counts[histogram.PixelCount+histogram.PixelIndex(1, 2)] = 7
	counts[histogram.PixelCount+histogram.PixelIndex(79, 335)] = 1
	view, ok := histogram.NewOccupancyView(counts, 2)
	if !ok {
		t.Fatal("NewOccupancyView rejected test counts")
	}

	calib := &histogram.ThresholdMap{
		Threshold: make([]float64, histogram.PixelCount),
		Noise:     make([]float64, histogram.PixelCount),
	}
	for i := range calib.Threshold {
		calib.Threshold[i] = 99
	}
	calib.Threshold[histogram.PixelIndex(1, 2)] = 12.5
	calib.Noise[histogram.PixelIndex(1, 2)] = 0.75
	calib.Threshold[histogram.PixelIndex(79, 335)] = 20

	tot := make([]uint64, histogram.TotBins)
	tot[4] = 11
	bcid := make([]uint64, histogram.RelBcidBins)
	bcid[0] = 9
	bcid[15] = 2

	return &Run{
		SensorID:        "dut0",
		CreatedAtNs:     1000,
		ParameterValues: []uint32{10, 20},
		HitsAccepted:    11,
		HitsRejected:    2,
		ConfigJSON:      json.RawMessage(`{"hit_batch_size":4096}`),
		Occupancy:       view,
		ToT:             tot,
		RelBcid:         bcid,
		Calibration:     calib,
	}
}

func TestOpenMigratesToLatest(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 false", version, dirty)
	}

	// Running again is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'pixel_calibration'`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("pixel_calibration still exists after rollback")
	}
}

func TestInsertAndGetRun(t *testing.T) {
	db := openTestDB(t)
	in := testRun(t)

	id, err := db.InsertRun(in)
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if id == "" || id != in.RunID {
		t.Fatalf("InsertRun returned %q, run has %q", id, in.RunID)
	}

	got, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.SensorID != "dut0" || got.CreatedAtNs != 1000 {
		t.Errorf("got sensor %q created %d", got.SensorID, got.CreatedAtNs)
	}
	if got.HitsAccepted != 11 || got.HitsRejected != 2 {
		t.Errorf("hits = %d/%d, want 11/2", got.HitsAccepted, got.HitsRejected)
	}
	if diff := cmp.Diff([]uint32{10, 20}, got.ParameterValues); diff != "" {
		t.Errorf("parameter values (-want +got):\n%s", diff)
	}
	if string(got.ConfigJSON) != `{"hit_batch_size":4096}` {
		t.Errorf("config = %s", got.ConfigJSON)
	}
	if diff := cmp.Diff(in.ToT, got.ToT); diff != "" {
		t.Errorf("ToT (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in.RelBcid, got.RelBcid); diff != "" {
		t.Errorf("RelBcid (-want +got):\n%s", diff)
	}
	if got.Occupancy.ParameterCount() != 2 {
		t.Fatalf("occupancy parameter count = %d", got.Occupancy.ParameterCount())
	}
	if diff := cmp.Diff(in.Occupancy.Raw(), got.Occupancy.Raw()); diff != "" {
		t.Errorf("occupancy differs (-want +got):\n%s", diff)
	}

	if got.Calibration == nil {
		t.Fatal("calibration missing")
	}
	th, noise := got.Calibration.At(1, 2)
	if th != 12.5 || noise != 0.75 {
		t.Errorf("pixel (1,2) = %v/%v, want 12.5/0.75", th, noise)
	}
	if th, _ := got.Calibration.At(79, 335); th != 20 {
		t.Errorf("pixel (79,335) threshold = %v, want 20", th)
	}
	// Pixels without hits are not stored.
	if th, _ := got.Calibration.At(0, 0); !math.IsNaN(th) {
		t.Errorf("pixel (0,0) threshold = %v, want NaN", th)
	}

	var stored int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pixel_calibration WHERE run_id = ?`, id).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored != 2 {
		t.Errorf("stored %d calibration rows, want 2", stored)
	}
}

func TestInsertRun_OccupancyCollapsedToOneBin(t *testing.T) {
	db := openTestDB(t)
	counts := make([]uint32, histogram.PixelCount)
	counts[histogram.PixelIndex(4, 4)] = 9
	view, ok := histogram.NewOccupancyView(counts, 1)
	if !ok {
		t.Fatal("NewOccupancyView rejected test counts")
	}

	id, err := db.InsertRun(&Run{SensorID: "dut0", ParameterValues: []uint32{10, 20, 30}, Occupancy: view})
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	got, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Occupancy.ParameterCount() != 1 {
		t.Errorf("occupancy parameter count = %d, want 1", got.Occupancy.ParameterCount())
	}
	if c := got.Occupancy.At(4, 4, 0); c != 9 {
		t.Errorf("pixel (4,4) = %d, want 9", c)
	}
	if diff := cmp.Diff([]uint32{10, 20, 30}, got.ParameterValues); diff != "" {
		t.Errorf("parameter values (-want +got):\n%s", diff)
	}
}

func TestInsertRun_Minimal(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertRun(&Run{SensorID: "dut1"})
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	got, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff([]uint32{0}, got.ParameterValues); diff != "" {
		t.Errorf("parameter values (-want +got):\n%s", diff)
	}
	if got.Occupancy.ParameterCount() != 0 || got.ToT != nil || got.Calibration != nil {
		t.Errorf("expected empty payloads, got %+v", got)
	}
	if got.CreatedAtNs == 0 {
		t.Error("CreatedAtNs not set")
	}
}

func TestInsertRun_DuplicateIDRollsBack(t *testing.T) {
	db := openTestDB(t)
	first := testRun(t)
	id, err := db.InsertRun(first)
	if err != nil {
		t.Fatal(err)
	}

	dup := testRun(t)
	dup.RunID = id
	if _, err := db.InsertRun(dup); err == nil {
		t.Fatal("expected duplicate run ID to fail")
	}

	var bins int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tot_hist`).Scan(&bins); err != nil {
		t.Fatal(err)
	}
	if bins != histogram.TotBins {
		t.Errorf("tot_hist rows = %d, want %d", bins, histogram.TotBins)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	for i, sensor := range []string{"a", "b", "c"} {
		if _, err := db.InsertRun(&Run{SensorID: sensor, CreatedAtNs: int64(i + 1), ParameterValues: []uint32{5, uint32(i)}}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].SensorID != "c" || runs[1].SensorID != "b" {
		t.Errorf("order = %s,%s, want c,b", runs[0].SensorID, runs[1].SensorID)
	}
	if runs[0].ParameterCount != 2 || runs[0].MinParameter != 2 || runs[0].MaxParameter != 5 {
		t.Errorf("summary = %+v", runs[0])
	}

	all, err := db.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs, want 3", len(all))
	}
}

func TestDeleteRunCascades(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertRun(testRun(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	for _, table := range []string{"tot_hist", "rel_bcid_hist", "pixel_calibration"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after delete", table, n)
		}
	}
	if err := db.DeleteRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete err = %v, want ErrRunNotFound", err)
	}
}

package histdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one finished scan as stored in the database.
type Run struct {
	RunID           string          `json:"run_id"`
	SensorID        string          `json:"sensor_id"`
	CreatedAtNs     int64           `json:"created_at_ns"`
	ParameterValues []uint32        `json:"parameter_values"`
	HitsAccepted    uint64          `json:"hits_accepted"`
	HitsRejected    uint64          `json:"hits_rejected"`
	ConfigJSON      json.RawMessage `json:"config_json,omitempty"`

	// Occupancy is stored compressed. A zero view stores nothing.
	Occupancy histogram.OccupancyView `json:"-"`
	ToT       []uint64                `json:"tot,omitempty"`
	RelBcid   []uint64                `json:"rel_bcid,omitempty"`
	// Calibration is stored only for pixels with at least one hit. On read,
	// the remaining pixels are NaN.
	Calibration *histogram.ThresholdMap `json:"-"`
}

// RunSummary is the scan_runs row without histogram payloads.
type RunSummary struct {
	RunID          string `json:"run_id"`
	SensorID       string `json:"sensor_id"`
	CreatedAtNs    int64  `json:"created_at_ns"`
	// ParameterCount is the occupancy parameter axis when occupancy was
	// stored, otherwise the number of parameter values.
	ParameterCount int    `json:"parameter_count"`
	MinParameter   uint32 `json:"min_parameter"`
	MaxParameter   uint32 `json:"max_parameter"`
	HitsAccepted   uint64 `json:"hits_accepted"`
	HitsRejected   uint64 `json:"hits_rejected"`
}

// InsertRun stores r in a single transaction and returns its run ID. An
// empty RunID is replaced by a new UUID.
func (db *DB) InsertRun(r *Run) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.CreatedAtNs == 0 {
		r.CreatedAtNs = time.Now().UnixNano()
	}

	params := r.ParameterValues
	if len(params) == 0 {
		params = []uint32{0}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal parameter values: %w", err)
	}

	// parameter_count sizes the occupancy blob on read, so it follows the
	// view when one is stored.
	paramCount := len(params)
	var blob []byte
	if raw := r.Occupancy.Raw(); len(raw) > 0 {
		if blob, err = EncodeOccupancy(raw); err != nil {
			return "", err
		}
		paramCount = r.Occupancy.ParameterCount()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scan_runs (
			run_id, sensor_id, created_at_ns, parameter_count, min_parameter,
			max_parameter, parameter_values_json, hits_accepted, hits_rejected,
			config_json, occupancy_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.SensorID, r.CreatedAtNs, paramCount, slices.Min(params),
		slices.Max(params), string(paramsJSON), clampInt64(r.HitsAccepted),
		clampInt64(r.HitsRejected), nullString(string(r.ConfigJSON)), blob,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertBins(tx, "tot_hist", r.RunID, r.ToT); err != nil {
		return "", err
	}
	if err := insertBins(tx, "rel_bcid_hist", r.RunID, r.RelBcid); err != nil {
		return "", err
	}
	if err := insertCalibration(tx, r); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit insert run: %w", err)
	}
	return r.RunID, nil
}

func insertBins(tx *sql.Tx, table, runID string, counts []uint64) error {
	if len(counts) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (run_id, bin, count) VALUES (?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()
	for bin, c := range counts {
		if _, err := stmt.Exec(runID, bin, clampInt64(c)); err != nil {
			return fmt.Errorf("insert %s bin %d: %w", table, bin, err)
		}
	}
	return nil
}

func insertCalibration(tx *sql.Tx, r *Run) error {
	if r.Calibration == nil || r.Occupancy.ParameterCount() == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO pixel_calibration (run_id, col, row, hits, threshold, noise)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pixel_calibration: %w", err)
	}
	defer stmt.Close()

	for col := 0; col < histogram.MaxColumn; col++ {
		for row := 0; row < histogram.MaxRow; row++ {
			hits := r.Occupancy.PixelSum(col, row)
			if hits == 0 {
				continue
			}
			threshold, noise := r.Calibration.At(col, row)
			if _, err := stmt.Exec(r.RunID, col, row, clampInt64(hits), threshold, noise); err != nil {
				return fmt.Errorf("insert calibration (%d,%d): %w", col, row, err)
			}
		}
	}
	return nil
}

// GetRun loads a run with all of its histograms.
func (db *DB) GetRun(runID string) (*Run, error) {
	var (
		r          Run
		paramsJSON string
		accepted   int64
		rejected   int64
		configJSON sql.NullString
		blob       []byte
		paramCount int
	)
	err := db.QueryRow(`
		SELECT run_id, sensor_id, created_at_ns, parameter_count,
		       parameter_values_json, hits_accepted, hits_rejected,
		       config_json, occupancy_blob
		FROM scan_runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.SensorID, &r.CreatedAtNs, &paramCount,
		&paramsJSON, &accepted, &rejected, &configJSON, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.HitsAccepted = uint64(accepted)
	r.HitsRejected = uint64(rejected)
	if configJSON.Valid {
		r.ConfigJSON = json.RawMessage(configJSON.String)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &r.ParameterValues); err != nil {
		return nil, fmt.Errorf("unmarshal parameter values: %w", err)
	}

	if len(blob) > 0 {
		counts, err := DecodeOccupancy(blob)
		if err != nil {
			return nil, err
		}
		view, ok := histogram.NewOccupancyView(counts, paramCount)
		if !ok {
			return nil, fmt.Errorf("occupancy blob holds %d counters, want %d parameters", len(counts), paramCount)
		}
		r.Occupancy = view
	}

	if r.ToT, err = db.loadBins("tot_hist", runID); err != nil {
		return nil, err
	}
	if r.RelBcid, err = db.loadBins("rel_bcid_hist", runID); err != nil {
		return nil, err
	}
	if r.Calibration, err = db.loadCalibration(runID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) loadBins(table, runID string) ([]uint64, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT bin, count FROM %s WHERE run_id = ? ORDER BY bin`, table), runID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var bin int
		var count int64
		if err := rows.Scan(&bin, &count); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for len(out) <= bin {
			out = append(out, 0)
		}
		out[bin] = uint64(count)
	}
	return out, rows.Err()
}

func (db *DB) loadCalibration(runID string) (*histogram.ThresholdMap, error) {
	rows, err := db.Query(`SELECT col, row, threshold, noise FROM pixel_calibration WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pixel_calibration: %w", err)
	}
	defer rows.Close()

	var m *histogram.ThresholdMap
	for rows.Next() {
		if m == nil {
			m = &histogram.ThresholdMap{
				Threshold: make([]float64, histogram.PixelCount),
				Noise:     make([]float64, histogram.PixelCount),
			}
			for i := range m.Threshold {
				m.Threshold[i] = math.NaN()
				m.Noise[i] = math.NaN()
			}
		}
		var col, row int
		var threshold, noise sql.NullFloat64
		if err := rows.Scan(&col, &row, &threshold, &noise); err != nil {
			return nil, fmt.Errorf("scan pixel_calibration: %w", err)
		}
		if col < 0 || col >= histogram.MaxColumn || row < 0 || row >= histogram.MaxRow {
			return nil, fmt.Errorf("pixel_calibration row for pixel (%d,%d) outside the matrix", col, row)
		}
		idx := histogram.PixelIndex(col, row)
		if threshold.Valid {
			m.Threshold[idx] = threshold.Float64
		}
		if noise.Valid {
			m.Noise[idx] = noise.Float64
		}
	}
	return m, rows.Err()
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT run_id, sensor_id, created_at_ns, parameter_count, min_parameter,
		       max_parameter, hits_accepted, hits_rejected
		FROM scan_runs ORDER BY created_at_ns DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var accepted, rejected int64
		if err := rows.Scan(&s.RunID, &s.SensorID, &s.CreatedAtNs, &s.ParameterCount,
			&s.MinParameter, &s.MaxParameter, &accepted, &rejected); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.HitsAccepted = uint64(accepted)
		s.HitsRejected = uint64(rejected)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through foreign keys, all of its histograms.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM scan_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Package hitio reads decoded hits and readout metadata from CSV files.
//
// Hit files carry one hit per line:
//
//	event_number,column,row,tot,relative_bcid
//
// Metadata files carry one readout per line:
//
//	event_number,scan_parameter
//
// where event_number is the first event of the readout. A leading header
// line and lines starting with '#' are ignored.
package hitio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

// HitReader streams hits from a CSV source.
type HitReader struct {
	r    *csv.Reader
	line int
}

// NewHitReader creates a HitReader over r.
func NewHitReader(r io.Reader) *HitReader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &HitReader{r: cr}
}

// Next fills buf with the following hits and returns how many were read.
// It returns 0 and io.EOF once the source is exhausted.
func (hr *HitReader) Next(buf []histogram.Hit) (int, error) {
	n := 0
	for n < len(buf) {
		record, err := hr.r.Read()
		if errors.Is(err, io.EOF) {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to read hit CSV: %w", err)
		}
		hr.line++
		if hr.line == 1 && isHeader(record) {
			continue
		}
		if len(record) != 5 {
			return n, fmt.Errorf("hit record %d: expected 5 fields, got %d", hr.line, len(record))
		}
		h, err := parseHit(record)
		if err != nil {
			return n, fmt.Errorf("hit record %d: %w", hr.line, err)
		}
		buf[n] = h
		n++
	}
	return n, nil
}

func parseHit(record []string) (histogram.Hit, error) {
	event, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return histogram.Hit{}, fmt.Errorf("invalid event_number: %v", err)
	}
	col, err := strconv.ParseUint(record[1], 10, 32)
	if err != nil {
		return histogram.Hit{}, fmt.Errorf("invalid column: %v", err)
	}
	row, err := strconv.ParseUint(record[2], 10, 32)
	if err != nil {
		return histogram.Hit{}, fmt.Errorf("invalid row: %v", err)
	}
	tot, err := strconv.ParseUint(record[3], 10, 32)
	if err != nil {
		return histogram.Hit{}, fmt.Errorf("invalid tot: %v", err)
	}
	bcid, err := strconv.ParseUint(record[4], 10, 32)
	if err != nil {
		return histogram.Hit{}, fmt.Errorf("invalid relative_bcid: %v", err)
	}
	return histogram.Hit{
		EventNumber:  event,
		Column:       uint32(col),
		Row:          uint32(row),
		ToT:          uint32(tot),
		RelativeBCID: uint32(bcid),
	}, nil
}

// Meta is the readout table of a run. Entry i of both slices describes
// readout i.
type Meta struct {
	EventIndex     []uint64
	ScanParameters []uint32
}

// Len returns the number of readouts.
func (m *Meta) Len() int { return len(m.EventIndex) }

// ReadMeta reads a readout metadata CSV.
func ReadMeta(r io.Reader) (*Meta, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata CSV: %w", err)
	}
	if len(records) > 0 && isHeader(records[0]) {
		records = records[1:]
	}

	m := &Meta{
		EventIndex:     make([]uint64, 0, len(records)),
		ScanParameters: make([]uint32, 0, len(records)),
	}
	for i, record := range records {
		if len(record) != 2 {
			return nil, fmt.Errorf("readout %d: expected 2 fields, got %d", i, len(record))
		}
		event, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("readout %d: invalid event_number: %v", i, err)
		}
		par, err := strconv.ParseUint(record[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("readout %d: invalid scan_parameter: %v", i, err)
		}
		m.EventIndex = append(m.EventIndex, event)
		m.ScanParameters = append(m.ScanParameters, uint32(par))
	}
	return m, nil
}

// isHeader reports whether a record starts with a non-numeric field.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	return err != nil
}

package histogram

import (
	"fmt"
	"slices"
)

// Accumulator histograms hits of one sensor against the scan parameter that
// was active when each hit was recorded.
type Accumulator struct {
	cfg Config

	occupancyEnabled bool
	totEnabled       bool
	relBcidEnabled   bool

	params ParameterSet
	corr   correlator
	store  store
	stats  Stats

	// scratch holds a validated batch until it is committed.
	scratch []binnedHit
}

type binnedHit struct {
	col, row, tot, relBcid, parIndex int
}

// New creates an Accumulator. A nil cfg uses DefaultConfig. The occupancy
// array starts with a single parameter bin so hits can be ingested before
// any scan parameter table is loaded.
func New(cfg *Config) (*Accumulator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid histogram config: %w", err)
	}

	a := &Accumulator{cfg: *cfg}
	a.corr.strict = cfg.StrictEventOrder
	a.SetOccupancyEnabled(cfg.Occupancy)
	a.SetTotEnabled(cfg.ToT)
	a.SetRelBcidEnabled(cfg.RelBcid)
	a.ResetToSingleParameter()
	return a, nil
}

// SetOccupancyEnabled toggles occupancy histogramming. It does not touch
// the occupancy array.
func (a *Accumulator) SetOccupancyEnabled(enabled bool) {
	a.occupancyEnabled = enabled
}

// SetTotEnabled toggles ToT histogramming. Enabling always starts from a
// fresh zeroed array; disabling releases it.
func (a *Accumulator) SetTotEnabled(enabled bool) {
	a.totEnabled = enabled
	if enabled {
		a.store.allocateTot()
	} else {
		a.store.tot = nil
	}
}

// SetRelBcidEnabled toggles relative BCID histogramming. Enabling always
// starts from a fresh zeroed array; disabling releases it.
func (a *Accumulator) SetRelBcidEnabled(enabled bool) {
	a.relBcidEnabled = enabled
	if enabled {
		a.store.allocateRelBcid()
	} else {
		a.store.relBcid = nil
	}
}

// SetScanParameters replaces the scan parameter table and the event index
// table. Entry i of both tables describes readout i: eventIndex[i] is the
// first event number of the readout and values[i] its scan parameter.
//
// The occupancy array is reallocated for the new number of distinct values
// and all occupancy counts restart at zero. In NoScanParameter mode the
// tables are ignored.
func (a *Accumulator) SetScanParameters(values []uint32, eventIndex []uint64) error {
	if len(values) != len(eventIndex) {
		return fmt.Errorf("%w: %d scan parameters, %d event boundaries", ErrTableLengthMismatch, len(values), len(eventIndex))
	}
	if a.cfg.NoScanParameter {
		diagf("no scan parameter mode, ignoring table of %d readouts", len(values))
		return nil
	}

	a.params = NewParameterSet(values)
	a.corr.load(values, eventIndex)
	a.store.allocateOccupancy(a.params.Count())
	diagf("loaded %d readouts: %d scan parameters in [%d, %d]",
		len(values), a.params.Count(), a.params.Min(), a.params.Max())
	return nil
}

// ResetToSingleParameter collapses the parameter axis to one bin and zeroes
// the occupancy array. Loaded tables are kept, so hits whose scan parameter
// maps to any other index are rejected afterwards.
func (a *Accumulator) ResetToSingleParameter() {
	a.store.allocateOccupancy(1)
}

// ResolveParameter returns the scan parameter active at event.
func (a *Accumulator) ResolveParameter(event uint64) (uint32, error) {
	return a.corr.resolve(event)
}

// ParameterIndex returns the position of value in the parameter set.
// Unknown values map to index 0, or to -1 with StrictParameterLookup. In
// NoScanParameter mode, or before any table is loaded, everything maps to
// the single bin 0.
func (a *Accumulator) ParameterIndex(value uint32) int {
	if a.cfg.NoScanParameter || a.params.empty() {
		return 0
	}
	if i, ok := a.params.IndexOf(value); ok {
		return i
	}
	if a.cfg.StrictParameterLookup {
		return -1
	}
	tracef("scan parameter %d not in parameter set, using bin 0", value)
	return 0
}

// AddHits histograms a batch of hits in order.
//
// By default the first invalid hit fails the whole batch and no counter is
// changed. With SkipInvalidHits, malformed hits are dropped and counted in
// Stats. A CorrelationError always fails the batch. The correlation cursor
// may have advanced even when the batch fails.
func (a *Accumulator) AddHits(hits []Hit) error {
	binned := a.scratch[:0]
	var batch Stats

	for i := range hits {
		b, err := a.binHit(i, &hits[i])
		if err != nil {
			if a.cfg.SkipInvalidHits && batch.countRejection(err) {
				continue
			}
			a.scratch = binned[:0]
			return err
		}
		binned = append(binned, b)
	}

	for _, b := range binned {
		if a.occupancyEnabled {
			a.store.incrementOccupancy(b.col, b.row, b.parIndex)
		}
		if a.relBcidEnabled {
			a.store.incrementRelBcid(b.relBcid)
		}
		if a.totEnabled {
			a.store.incrementTot(b.tot)
		}
	}

	batch.Accepted = uint64(len(binned))
	if n := batch.Rejected(); n > 0 {
		opsf("skipped %d of %d hits (column %d, row %d, tot %d, bcid %d, parameter %d)",
			n, len(hits), batch.RejectedColumn, batch.RejectedRow, batch.RejectedTot,
			batch.RejectedBcid, batch.RejectedParameter)
	}
	a.stats.add(batch)
	a.scratch = binned[:0]
	return nil
}

// binHit validates one hit and resolves its histogram bins.
func (a *Accumulator) binHit(i int, h *Hit) (binnedHit, error) {
	col := int(h.Column) - 1
	if col < 0 || col >= MaxColumn {
		return binnedHit{}, &HitError{Kind: ErrInvalidColumn, Index: i, EventNumber: h.EventNumber,
			Value: int(h.Column), Min: 1, Max: MaxColumn}
	}
	row := int(h.Row) - 1
	if row < 0 || row >= MaxRow {
		return binnedHit{}, &HitError{Kind: ErrInvalidRow, Index: i, EventNumber: h.EventNumber,
			Value: int(h.Row), Min: 1, Max: MaxRow}
	}
	tot := int(h.ToT)
	if tot >= TotBins {
		return binnedHit{}, &HitError{Kind: ErrInvalidTot, Index: i, EventNumber: h.EventNumber,
			Value: tot, Min: 0, Max: TotBins - 1}
	}
	relBcid := int(h.RelativeBCID)
	if relBcid >= RelBcidBins {
		return binnedHit{}, &HitError{Kind: ErrInvalidBcid, Index: i, EventNumber: h.EventNumber,
			Value: relBcid, Min: 0, Max: RelBcidBins - 1}
	}

	value, err := a.corr.resolve(h.EventNumber)
	if err != nil {
		opsf("hit %d: %v", i, err)
		return binnedHit{}, err
	}
	parIndex := a.ParameterIndex(value)
	if parIndex < 0 || parIndex >= a.store.parameterCount {
		err := &ParameterIndexError{
			Index:          i,
			EventNumber:    h.EventNumber,
			ScanParameter:  value,
			ParameterIndex: parIndex,
			ParameterCount: a.store.parameterCount,
			MinParameter:   a.params.Min(),
			MaxParameter:   a.params.Max(),
		}
		opsf("AddHits: parameter index %d, min parameter %d, max parameter %d",
			parIndex, err.MinParameter, err.MaxParameter)
		return binnedHit{}, err
	}

	return binnedHit{col: col, row: row, tot: tot, relBcid: relBcid, parIndex: parIndex}, nil
}

// Occupancy returns a view of the occupancy array.
func (a *Accumulator) Occupancy() OccupancyView {
	return OccupancyView{counts: a.store.occupancy, parameterCount: a.store.parameterCount}
}

// ToT returns a copy of the ToT histogram, or nil when disabled.
func (a *Accumulator) ToT() []uint64 {
	return slices.Clone(a.store.tot)
}

// RelBcid returns a copy of the relative BCID histogram, or nil when
// disabled.
func (a *Accumulator) RelBcid() []uint64 {
	return slices.Clone(a.store.relBcid)
}

// OccupancyEnabled reports whether hits are counted into the occupancy array.
func (a *Accumulator) OccupancyEnabled() bool { return a.occupancyEnabled }

// TotEnabled reports whether the ToT histogram is filled.
func (a *Accumulator) TotEnabled() bool { return a.totEnabled }

// RelBcidEnabled reports whether the relative BCID histogram is filled.
func (a *Accumulator) RelBcidEnabled() bool { return a.relBcidEnabled }

// MinParameter returns the smallest distinct scan parameter value.
func (a *Accumulator) MinParameter() uint32 { return a.params.Min() }

// MaxParameter returns the largest distinct scan parameter value.
func (a *Accumulator) MaxParameter() uint32 { return a.params.Max() }

// ParameterCount returns the size of the occupancy parameter axis.
func (a *Accumulator) ParameterCount() int { return a.store.parameterCount }

// ParameterValues returns the distinct scan parameter values in ascending
// order.
func (a *Accumulator) ParameterValues() []uint32 { return a.params.Values() }

// Stats returns the accepted and skipped hit counts so far.
func (a *Accumulator) Stats() Stats { return a.stats }

// ThresholdNoise estimates per-pixel threshold and noise from the occupancy
// array. It reports false when fewer than two parameter bins exist.
func (a *Accumulator) ThresholdNoise() (*ThresholdMap, bool) {
	return EstimateThresholdNoise(a.Occupancy(), a.params.Min(), a.params.Max(), a.cfg.InjectionsPerPoint)
}

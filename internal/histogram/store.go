package histogram

import (
	"math"
	"slices"
)

// store owns the histogram buffers. Buffers are replaced, never resized, so
// views taken before a reallocation keep pointing at the old contents.
//
// Counters saturate at the maximum of their type instead of wrapping.
type store struct {
	occupancy      []uint32
	parameterCount int
	tot            []uint64
	relBcid        []uint64
}

func (s *store) allocateOccupancy(parameterCount int) {
	diagf("allocating occupancy array with %d parameters", parameterCount)
	s.occupancy = make([]uint32, int64(PixelCount)*int64(parameterCount))
	s.parameterCount = parameterCount
}

func (s *store) allocateTot() {
	diagf("allocating tot array")
	s.tot = make([]uint64, TotBins)
}

func (s *store) allocateRelBcid() {
	diagf("allocating relative bcid array")
	s.relBcid = make([]uint64, RelBcidBins)
}

func (s *store) incrementOccupancy(col, row, parIndex int) {
	i := occupancyOffset(col, row, parIndex)
	if s.occupancy[i] != math.MaxUint32 {
		s.occupancy[i]++
	}
}

func (s *store) incrementTot(tot int) {
	if s.tot[tot] != math.MaxUint64 {
		s.tot[tot]++
	}
}

func (s *store) incrementRelBcid(bcid int) {
	if s.relBcid[bcid] != math.MaxUint64 {
		s.relBcid[bcid]++
	}
}

// OccupancyView is a read-only view of the occupancy buffer. It stays valid
// until the next scan parameter load or ResetToSingleParameter; take a new
// view after either.
type OccupancyView struct {
	counts         []uint32
	parameterCount int
}

// ParameterCount returns the size of the parameter axis.
func (v OccupancyView) ParameterCount() int { return v.parameterCount }

// At returns the count for a 0-based pixel and parameter index.
func (v OccupancyView) At(col, row, parIndex int) uint32 {
	return v.counts[occupancyOffset(col, row, parIndex)]
}

// PixelSum returns the count for a 0-based pixel summed over all parameter
// indices.
func (v OccupancyView) PixelSum(col, row int) uint64 {
	var sum uint64
	for k := 0; k < v.parameterCount; k++ {
		sum += uint64(v.counts[occupancyOffset(col, row, k)])
	}
	return sum
}

// Total returns the sum of all occupancy counts.
func (v OccupancyView) Total() uint64 {
	var sum uint64
	for _, c := range v.counts {
		sum += uint64(c)
	}
	return sum
}

// Raw returns the flat buffer, column fastest, then row, then parameter
// index. Callers must not modify it.
func (v OccupancyView) Raw() []uint32 { return v.counts }

// Clone returns a view over a private copy of the buffer.
func (v OccupancyView) Clone() OccupancyView {
	return OccupancyView{counts: slices.Clone(v.counts), parameterCount: v.parameterCount}
}

// NewOccupancyView wraps a flat occupancy buffer, e.g. one loaded from
// storage. It reports false if the length does not match parameterCount.
func NewOccupancyView(counts []uint32, parameterCount int) (OccupancyView, bool) {
	if parameterCount < 1 || int64(len(counts)) != int64(PixelCount)*int64(parameterCount) {
		return OccupancyView{}, false
	}
	return OccupancyView{counts: counts, parameterCount: parameterCount}, true
}

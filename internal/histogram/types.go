package histogram

import "errors"

// Hit is one decoded pixel hit. Column and Row are 1-based, as delivered by
// the raw data decoder.
//
// The fields are wider than the detector ranges so that out-of-range
// decoder output reaches AddHits and is classified there.
type Hit struct {
	EventNumber  uint64
	Column       uint32
	Row          uint32
	ToT          uint32
	RelativeBCID uint32
}

// Stats counts hits processed by an Accumulator. Rejections are only
// recorded when invalid hits are skipped instead of aborting the batch.
type Stats struct {
	Accepted uint64

	RejectedColumn    uint64
	RejectedRow       uint64
	RejectedTot       uint64
	RejectedBcid      uint64
	RejectedParameter uint64
}

// Rejected returns the total number of skipped hits.
func (s Stats) Rejected() uint64 {
	return s.RejectedColumn + s.RejectedRow + s.RejectedTot + s.RejectedBcid + s.RejectedParameter
}

func (s *Stats) add(o Stats) {
	s.Accepted += o.Accepted
	s.RejectedColumn += o.RejectedColumn
	s.RejectedRow += o.RejectedRow
	s.RejectedTot += o.RejectedTot
	s.RejectedBcid += o.RejectedBcid
	s.RejectedParameter += o.RejectedParameter
}

// countRejection records err against the matching counter. It reports false
// for errors that cannot be skipped.
func (s *Stats) countRejection(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidColumn):
		s.RejectedColumn++
	case errors.Is(err, ErrInvalidRow):
		s.RejectedRow++
	case errors.Is(err, ErrInvalidTot):
		s.RejectedTot++
	case errors.Is(err, ErrInvalidBcid):
		s.RejectedBcid++
	case errors.Is(err, ErrParameterIndexOutOfRange):
		s.RejectedParameter++
	default:
		return false
	}
	return true
}

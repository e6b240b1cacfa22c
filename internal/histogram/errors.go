package histogram

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidColumn            = errors.New("invalid column")
	ErrInvalidRow               = errors.New("invalid row")
	ErrInvalidTot               = errors.New("invalid tot")
	ErrInvalidBcid              = errors.New("invalid relative bcid")
	ErrParameterIndexOutOfRange = errors.New("parameter index out of range")
	ErrCorrelation              = errors.New("event number correlation failed")
	ErrTableLengthMismatch      = errors.New("scan parameter and event index tables differ in length")
)

// HitError reports a hit field outside its valid range. It unwraps to one of
// ErrInvalidColumn, ErrInvalidRow, ErrInvalidTot or ErrInvalidBcid.
type HitError struct {
	Kind        error
	Index       int // position of the hit in its batch
	EventNumber uint64
	Value       int
	Min         int
	Max         int
}

func (e *HitError) Error() string {
	return fmt.Sprintf("hit %d (event %d): %v %d, want [%d, %d]",
		e.Index, e.EventNumber, e.Kind, e.Value, e.Min, e.Max)
}

func (e *HitError) Unwrap() error { return e.Kind }

// ParameterIndexError reports a hit whose scan parameter resolved to an index
// outside the occupancy parameter axis. This means the metadata and the hit
// stream are inconsistent.
type ParameterIndexError struct {
	Index          int // position of the hit in its batch
	EventNumber    uint64
	ScanParameter  uint32
	ParameterIndex int
	ParameterCount int
	MinParameter   uint32
	MaxParameter   uint32
}

func (e *ParameterIndexError) Error() string {
	return fmt.Sprintf("hit %d (event %d): %v: index %d for scan parameter %d, want [0, %d) (min parameter %d, max parameter %d)",
		e.Index, e.EventNumber, ErrParameterIndexOutOfRange, e.ParameterIndex, e.ScanParameter,
		e.ParameterCount, e.MinParameter, e.MaxParameter)
}

func (e *ParameterIndexError) Unwrap() error { return ErrParameterIndexOutOfRange }

// CorrelationError reports an event number that cannot be matched to a
// readout of the event index table.
type CorrelationError struct {
	EventNumber  uint64
	LastBoundary uint64 // boundary of the last readout in the table
	Cursor       int
	// Regression is set when the event precedes the readout matched by an
	// earlier lookup and strict ordering is enforced.
	Regression bool
}

func (e *CorrelationError) Error() string {
	if e.Regression {
		return fmt.Sprintf("%v: event %d precedes readout %d already reached", ErrCorrelation, e.EventNumber, e.Cursor)
	}
	return fmt.Sprintf("%v: event %d, last readout boundary %d, cursor %d",
		ErrCorrelation, e.EventNumber, e.LastBoundary, e.Cursor)
}

func (e *CorrelationError) Unwrap() error { return ErrCorrelation }

package histogram

import "slices"

// ParameterSet is the ascending, duplicate-free set of scan parameter values
// seen in a run. Position in the set is the parameter index used as the
// third occupancy axis.
type ParameterSet struct {
	values []uint32
}

// NewParameterSet derives the set of distinct values from one scan
// parameter entry per readout.
func NewParameterSet(entries []uint32) ParameterSet {
	values := slices.Clone(entries)
	slices.Sort(values)
	return ParameterSet{values: slices.Compact(values)}
}

// Count returns the number of distinct values. An empty set counts as one
// so the occupancy array always has a parameter bin.
func (s ParameterSet) Count() int {
	if len(s.values) == 0 {
		return 1
	}
	return len(s.values)
}

func (s ParameterSet) empty() bool { return len(s.values) == 0 }

// Min returns the smallest value, or 0 for an empty set.
func (s ParameterSet) Min() uint32 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[0]
}

// Max returns the largest value, or 0 for an empty set.
func (s ParameterSet) Max() uint32 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// Values returns a copy of the distinct values in ascending order.
func (s ParameterSet) Values() []uint32 {
	return slices.Clone(s.values)
}

// IndexOf returns the parameter index of an exact match.
func (s ParameterSet) IndexOf(value uint32) (int, bool) {
	return slices.BinarySearch(s.values, value)
}

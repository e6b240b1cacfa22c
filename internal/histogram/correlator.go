package histogram

import "slices"

// correlator maps event numbers to the scan parameter of the readout they
// belong to. Readout i covers events from boundaries[i] up to the next
// boundary. A boundary lower than its predecessor marks readouts whose
// metadata was never filled in.
//
// cursor caches the readout matched by the last lookup so that a stream of
// non-decreasing event numbers is resolved in amortised constant time.
// It only moves backward through rewind or load.
type correlator struct {
	parameters []uint32
	boundaries []uint64
	cursor     int
	strict     bool
}

func (c *correlator) load(parameters []uint32, boundaries []uint64) {
	c.parameters = slices.Clone(parameters)
	c.boundaries = slices.Clone(boundaries)
	c.cursor = 0
}

func (c *correlator) loaded() bool {
	return len(c.boundaries) > 0
}

// resolve returns the scan parameter active at event. Without a table every
// event resolves to 0.
func (c *correlator) resolve(event uint64) (uint32, error) {
	if !c.loaded() {
		return 0, nil
	}
	n := len(c.boundaries)

	if c.cursor > 0 && event < c.boundaries[c.cursor] {
		if c.strict {
			return 0, &CorrelationError{
				EventNumber:  event,
				LastBoundary: c.boundaries[n-1],
				Cursor:       c.cursor,
				Regression:   true,
			}
		}
		tracef("event %d precedes readout %d (boundary %d), rescanning", event, c.cursor, c.boundaries[c.cursor])
		c.cursor = 0
	}

	for i := c.cursor; i < n-1; i++ {
		if c.boundaries[i+1] > event || c.boundaries[i+1] < c.boundaries[i] {
			c.cursor = i
			return c.parameters[i], nil
		}
	}
	if c.boundaries[n-1] <= event {
		return c.parameters[n-1], nil
	}
	return 0, &CorrelationError{
		EventNumber:  event,
		LastBoundary: c.boundaries[n-1],
		Cursor:       c.cursor,
	}
}

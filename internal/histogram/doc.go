// Package histogram accumulates per-sensor hit histograms for pixel
// detector scans.
//
// Responsibilities: correlating event numbers with the scan parameter active
// at that event, histogramming hits into occupancy (column x row x parameter
// index), ToT and relative BCID arrays, and estimating per-pixel threshold and
// noise from the occupancy S-curves.
// Key types: Accumulator, Hit, ParameterSet, OccupancyView, ThresholdMap.
//
// An Accumulator is not safe for concurrent use. Run one instance per sensor
// or per worker.
//
// No file, database or plotting code is allowed in this package.
package histogram

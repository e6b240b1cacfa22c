package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

// Summary describes the distribution of a per-pixel quantity. Non-finite
// values are excluded.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes a Summary over values.
func Summarize(values []float64) Summary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Summary{}
	}
	sort.Float64s(finite)

	s := Summary{
		Count:  len(finite),
		Median: stat.Quantile(0.5, stat.Empirical, finite, nil),
		Min:    floats.Min(finite),
		Max:    floats.Max(finite),
	}
	if len(finite) == 1 {
		s.Mean = finite[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	return s
}

// PixelHits returns the hit count of every pixel summed over the parameter
// axis, indexed by histogram.PixelIndex.
func PixelHits(view histogram.OccupancyView) []float64 {
	out := make([]float64, histogram.PixelCount)
	for col := 0; col < histogram.MaxColumn; col++ {
		for row := 0; row < histogram.MaxRow; row++ {
			out[histogram.PixelIndex(col, row)] = float64(view.PixelSum(col, row))
		}
	}
	return out
}

// HitPixels selects the entries of a per-pixel map whose pixel recorded at
// least one hit. Pixels without hits carry no S-curve information.
func HitPixels(values []float64, view histogram.OccupancyView) []float64 {
	out := make([]float64, 0, len(values))
	for col := 0; col < histogram.MaxColumn; col++ {
		for row := 0; row < histogram.MaxRow; row++ {
			if view.PixelSum(col, row) > 0 {
				out = append(out, values[histogram.PixelIndex(col, row)])
			}
		}
	}
	return out
}

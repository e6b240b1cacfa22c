package histogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScanAccumulator loads scan parameters 0..9 in readouts of 100 events.
func newScanAccumulator(t *testing.T) *Accumulator {
	t.Helper()
	a := newTestAccumulator(t, nil)
	values := make([]uint32, 10)
	boundaries := make([]uint64, 10)
	for i := range values {
		values[i] = uint32(i)
		boundaries[i] = uint64(i * 100)
	}
	require.NoError(t, a.SetScanParameters(values, boundaries))
	return a
}

// fillCurve injects counts[k] hits at scan parameter index k for one
// 1-based pixel.
func fillCurve(t *testing.T, a *Accumulator, col, row uint32, counts []int) {
	t.Helper()
	var hits []Hit
	for k, n := range counts {
		for i := 0; i < n; i++ {
			hits = append(hits, Hit{EventNumber: uint64(k*100 + i%100), Column: col, Row: row})
		}
	}
	require.NoError(t, a.AddHits(hits))
}

func TestThresholdNoise_RequiresTwoParameters(t *testing.T) {
	a := newTestAccumulator(t, nil)
	m, ok := a.ThresholdNoise()
	assert.False(t, ok)
	assert.Nil(t, m)

	require.NoError(t, a.SetScanParameters([]uint32{5, 5, 5}, []uint64{0, 10, 20}))
	_, ok = a.ThresholdNoise()
	assert.False(t, ok)

	require.NoError(t, a.SetScanParameters([]uint32{5, 6}, []uint64{0, 10}))
	_, ok = a.ThresholdNoise()
	assert.True(t, ok)

	a.ResetToSingleParameter()
	_, ok = a.ThresholdNoise()
	assert.False(t, ok)
}

func TestThresholdNoise_Curves(t *testing.T) {
	scale := math.Sqrt(referencePi / 2)

	tests := []struct {
		name          string
		counts        []int
		wantThreshold float64
		wantNoise     float64
	}{
		{
			name:          "ideal step",
			counts:        []int{0, 0, 0, 0, 0, 100, 100, 100, 100, 100},
			wantThreshold: 4,
			wantNoise:     0,
		},
		{
			name:          "smeared step",
			counts:        []int{0, 0, 0, 20, 50, 80, 100, 100, 100, 100},
			wantThreshold: 3.5,
			wantNoise:     0.9 * scale,
		},
		{
			// Index 4 equals the threshold and is excluded from both sums.
			name:          "bin on threshold",
			counts:        []int{0, 0, 0, 0, 30, 70, 100, 100, 100, 100},
			wantThreshold: 4,
			wantNoise:     0.3 * scale,
		},
		{
			name:          "fully on",
			counts:        []int{100, 100, 100, 100, 100, 100, 100, 100, 100, 100},
			wantThreshold: -1,
			wantNoise:     0,
		},
		{
			name:          "no hits",
			counts:        []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			wantThreshold: 9,
			wantNoise:     0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newScanAccumulator(t)
			fillCurve(t, a, 4, 16, tc.counts)

			m, ok := a.ThresholdNoise()
			require.True(t, ok)
			threshold, noise := m.At(3, 15)
			assert.InDelta(t, tc.wantThreshold, threshold, 1e-12)
			assert.InDelta(t, tc.wantNoise, noise, 1e-12)

			// Untouched pixels sit at the top of the scan range.
			threshold, noise = m.At(0, 0)
			assert.Equal(t, 9.0, threshold)
			assert.Equal(t, 0.0, noise)
		})
	}
}

func TestThresholdNoise_StepIsTruncated(t *testing.T) {
	a := newTestAccumulator(t, nil)
	// (25-0)/2 = 12.5 truncates to a step of 12.
	require.NoError(t, a.SetScanParameters([]uint32{0, 10, 25}, []uint64{0, 1000, 2000}))

	hits := make([]Hit, 100)
	for i := range hits {
		hits[i] = Hit{EventNumber: uint64(i), Column: 1, Row: 1}
	}
	require.NoError(t, a.AddHits(hits))

	m, ok := a.ThresholdNoise()
	require.True(t, ok)
	threshold, _ := m.At(0, 0)
	assert.Equal(t, 13.0, threshold)
}

func TestEstimateThresholdNoise_FromView(t *testing.T) {
	counts := make([]uint32, 2*PixelCount)
	counts[occupancyOffset(1, 2, 1)] = 50
	view, ok := NewOccupancyView(counts, 2)
	require.True(t, ok)

	m, ok := EstimateThresholdNoise(view, 100, 200, 50)
	require.True(t, ok)
	require.Len(t, m.Threshold, PixelCount)
	require.Len(t, m.Noise, PixelCount)

	// d = 100, M = 50, A = 50.
	threshold, noise := m.At(1, 2)
	assert.Equal(t, 100.0, threshold)
	// Both indices are below the threshold: mu1 = 50, mu2 = 0.
	assert.InDelta(t, 100.0*50/50*math.Sqrt(referencePi/2), noise, 1e-9)

	_, ok = EstimateThresholdNoise(view, 100, 200, 0)
	assert.False(t, ok)
}

func TestNewOccupancyView_RejectsBadLength(t *testing.T) {
	_, ok := NewOccupancyView(make([]uint32, PixelCount+1), 1)
	assert.False(t, ok)
	_, ok = NewOccupancyView(nil, 0)
	assert.False(t, ok)
}

package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestWriteDistributionPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threshold.png")
	err := WriteDistributionPNG(path, "Threshold", "DAC", []float64{1, 2, 2, 3, math.NaN()}, 5)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestWriteDistributionPNG_NoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	err := WriteDistributionPNG(path, "Threshold", "DAC", []float64{math.NaN()}, 5)
	assert.ErrorIs(t, err, ErrNoData)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteBinsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tot.png")
	counts := make([]uint64, histogram.TotBins)
	counts[3] = 10
	counts[7] = 4
	require.NoError(t, WriteBinsPNG(path, "ToT", "ToT code", counts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	assert.ErrorIs(t, WriteBinsPNG(path, "ToT", "ToT code", nil), ErrNoData)
}

func TestWritePixelMapHTML(t *testing.T) {
	values := make([]float64, histogram.PixelCount)
	values[histogram.PixelIndex(2, 3)] = 42

	var buf bytes.Buffer
	require.NoError(t, WritePixelMapHTML(&buf, "Occupancy", values))
	html := buf.String()
	assert.True(t, strings.Contains(html, "Occupancy"))
	assert.True(t, strings.Contains(html, "visualMap"))
}

func TestWritePixelMapsHTML_Multiple(t *testing.T) {
	a := make([]float64, histogram.PixelCount)
	b := make([]float64, histogram.PixelCount)
	b[0] = 1

	var buf bytes.Buffer
	err := WritePixelMapsHTML(&buf, "Calibration",
		PixelMap{Title: "Threshold map", Values: a, SkipZero: true},
		PixelMap{Title: "Noise map", Values: b},
	)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Threshold map")
	assert.Contains(t, buf.String(), "Noise map")
}

func TestWritePixelMapHTML_WrongLength(t *testing.T) {
	var buf bytes.Buffer
	err := WritePixelMapHTML(&buf, "bad", []float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 3 values")
}

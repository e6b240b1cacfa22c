package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pixelscan/internal/histogram"
)

// viridis is the colour ramp used for all pixel maps.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// PixelMap is one per-pixel quantity indexed by histogram.PixelIndex.
type PixelMap struct {
	Title  string
	Values []float64
	// SkipZero leaves pixels with value 0 out of the chart.
	SkipZero bool
}

// WritePixelMapHTML renders a single per-pixel map as an HTML page.
func WritePixelMapHTML(w io.Writer, title string, values []float64) error {
	return WritePixelMapsHTML(w, title, PixelMap{Title: title, Values: values})
}

// WritePixelMapsHTML renders one column x row chart per map into a single
// HTML page.
func WritePixelMapsHTML(w io.Writer, pageTitle string, maps ...PixelMap) error {
	page := components.NewPage()
	page.PageTitle = pageTitle
	for _, m := range maps {
		chart, err := pixelChart(m)
		if err != nil {
			return err
		}
		page.AddCharts(chart)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render pixel maps: %w", err)
	}
	return nil
}

func pixelChart(m PixelMap) (*charts.Scatter, error) {
	if len(m.Values) != histogram.PixelCount {
		return nil, fmt.Errorf("pixel map %q has %d values, want %d", m.Title, len(m.Values), histogram.PixelCount)
	}

	data := make([]opts.ScatterData, 0, len(m.Values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for col := 0; col < histogram.MaxColumn; col++ {
		for row := 0; row < histogram.MaxRow; row++ {
			v := m.Values[histogram.PixelIndex(col, row)]
			if math.IsNaN(v) || math.IsInf(v, 0) || (m.SkipZero && v == 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			// 1-based coordinates, as printed on the sensor.
			data = append(data, opts.ScatterData{Value: []interface{}{col + 1, row + 1, v}})
		}
	}
	if len(data) == 0 {
		lo, hi = 0, 1
	}
	if hi == lo {
		hi = lo + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "600px", Height: "1200px"}),
		charts.WithTitleOpts(opts.Title{Title: m.Title, Subtitle: fmt.Sprintf("pixels=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: histogram.MaxColumn + 1, Name: "Column", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: histogram.MaxRow + 1, Name: "Row", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(m.Title, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter, nil
}

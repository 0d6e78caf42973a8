package hzzplot

import (
	"fmt"
	"image/color"
	"sort"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
)

var lineColors = []color.RGBA{
	{A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, B: 127, G: 127, A: 255},
	{R: 255, A: 255},
	{R: 127, G: 127, A: 255},
}

// LineColor returns the color of the i-th overlaid histogram.
func LineColor(i int) color.Color { return lineColors[i%len(lineColors)] }

// Overlay draws one outline histogram per region, sorted by region name.
// Histograms are drawn with PreciseTicks on x, and on a log scale in y
// when logY is set.
func Overlay(title, xlabel string, regions map[string]*hbook.H1D, logY bool) (*hplot.Plot, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("hzzplot: nothing to draw")
	}

	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Events"
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	if logY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		h := hplot.NewH1D(regions[name], hplot.WithLogY(logY))
		h.FillColor = nil
		h.LineStyle.Color = LineColor(i)
		h.Infos.Style = hplot.HInfoNone

		p.Add(h)
		p.Legend.Add(name, h)
	}
	return p, nil
}

// Package hist provides named, region-categorized weighted histograms.
//
// A Hist has one continuous axis and a growing category axis of region
// labels. Each region owns an hbook.H1D (sum of weights and sum of squared
// weights per bin). NaN values are never binned: they are counted in a
// separate per-region flow so entry counts stay diagnostic.
package hist

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"go-hep.org/x/hep/hbook"
)

var (
	ErrIncompatible     = errors.New("hist: incompatible histograms")
	ErrLength           = errors.New("hist: values and weights differ in length")
	ErrUnknownHistogram = errors.New("hist: unknown histogram")
)

// Axis describes the continuous axis of a histogram.
type Axis struct {
	Name  string
	Label string

	// Edges are the bin edges, in increasing order.
	Edges []float64

	regular bool
}

// Regular returns an axis of n equal-width bins spanning [lo, hi).
func Regular(name, label string, n int, lo, hi float64) Axis {
	edges := make([]float64, n+1)
	width := (hi - lo) / float64(n)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[n] = hi
	return Axis{Name: name, Label: label, Edges: edges, regular: true}
}

// Variable returns an axis with the given bin edges.
func Variable(name, label string, edges []float64) Axis {
	return Axis{Name: name, Label: label, Edges: slices.Clone(edges)}
}

// Bins returns the number of bins of the axis.
func (a Axis) Bins() int { return len(a.Edges) - 1 }

// Validate reports whether the edges define at least one bin and increase
// strictly.
func (a Axis) Validate() error {
	if len(a.Edges) < 2 {
		return fmt.Errorf("hist: axis %q needs at least 2 edges", a.Name)
	}
	for i := 1; i < len(a.Edges); i++ {
		if !(a.Edges[i] > a.Edges[i-1]) {
			return fmt.Errorf("hist: axis %q edges must increase (edge %d)", a.Name, i)
		}
	}
	return nil
}

func (a Axis) compatible(o Axis) bool {
	return a.Name == o.Name && slices.Equal(a.Edges, o.Edges)
}

func (a Axis) newH1D(region string) *hbook.H1D {
	var h *hbook.H1D
	if a.regular {
		h = hbook.NewH1D(a.Bins(), a.Edges[0], a.Edges[a.Bins()])
	} else {
		h = hbook.NewH1DFromEdges(a.Edges)
	}
	h.Annotation()["name"] = a.Name + "/" + region
	h.Annotation()["title"] = a.Label
	return h
}

// Flow accumulates entries that fall outside any bin.
type Flow struct {
	Entries int64
	SumW    float64
	SumW2   float64
}

func (f *Flow) fill(w float64) {
	f.Entries++
	f.SumW += w
	f.SumW2 += w * w
}

// Hist is a weighted histogram over (region, value).
type Hist struct {
	axis Axis

	h   map[string]*hbook.H1D
	nan map[string]*Flow
}

// New returns an empty histogram over the given axis.
func New(axis Axis) *Hist {
	return &Hist{
		axis: axis,
		h:    make(map[string]*hbook.H1D),
		nan:  make(map[string]*Flow),
	}
}

// Name returns the axis name, which names the histogram.
func (h *Hist) Name() string { return h.axis.Name }

// Axis returns the continuous axis.
func (h *Hist) Axis() Axis { return h.axis }

// Regions returns the sorted region labels filled so far.
func (h *Hist) Regions() []string {
	regions := make([]string, 0, len(h.h))
	for r := range h.h {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Region returns the binned histogram of a region, or nil when the region
// was never filled.
func (h *Hist) Region(region string) *hbook.H1D { return h.h[region] }

// NaN returns the sentinel flow of a region.
func (h *Hist) NaN(region string) Flow {
	if f, ok := h.nan[region]; ok {
		return *f
	}
	return Flow{}
}

// Entries returns the number of fills of a region, NaN entries included.
func (h *Hist) Entries(region string) int64 {
	n := h.NaN(region).Entries
	if hh := h.h[region]; hh != nil {
		n += hh.Entries()
	}
	return n
}

// SumW returns the sum of weights filled in a region, NaN entries included.
func (h *Hist) SumW(region string) float64 {
	sumw := h.NaN(region).SumW
	if hh := h.h[region]; hh != nil {
		sumw += hh.SumW()
	}
	return sumw
}

func (h *Hist) region(region string) (*hbook.H1D, *Flow) {
	hh, ok := h.h[region]
	if !ok {
		hh = h.axis.newH1D(region)
		h.h[region] = hh
		h.nan[region] = &Flow{}
	}
	return hh, h.nan[region]
}

// Fill adds values[i] with weight weights[i] to the region. The region is
// created on first use, even when values is empty.
func (h *Hist) Fill(region string, values, weights []float64) error {
	if len(values) != len(weights) {
		return fmt.Errorf("%w: %s/%s: %d values, %d weights", ErrLength, h.Name(), region, len(values), len(weights))
	}
	hh, nan := h.region(region)
	for i, v := range values {
		if math.IsNaN(v) {
			nan.fill(weights[i])
			continue
		}
		hh.Fill(v, weights[i])
	}
	return nil
}

// Merge adds the contents of o into h. Regions missing on either side are
// treated as empty.
func (h *Hist) Merge(o *Hist) error {
	if !h.axis.compatible(o.axis) {
		return fmt.Errorf("%w: axis %q vs %q", ErrIncompatible, h.axis.Name, o.axis.Name)
	}
	for region, oh := range o.h {
		hh, nan := h.region(region)
		sum := hbook.AddH1D(hh, oh)
		sum.Annotation()["name"] = h.axis.Name + "/" + region
		sum.Annotation()["title"] = h.axis.Label
		h.h[region] = sum

		onan := o.nan[region]
		nan.Entries += onan.Entries
		nan.SumW += onan.SumW
		nan.SumW2 += onan.SumW2
	}
	return nil
}

// Clone returns a deep copy of h.
func (h *Hist) Clone() *Hist {
	c := New(h.axis)
	c.axis.Edges = slices.Clone(h.axis.Edges)
	if err := c.Merge(h); err != nil {
		panic(err)
	}
	return c
}

package hist

import (
	"fmt"
	"sort"
)

// Set is a named collection of histograms.
type Set struct {
	hists map[string]*Hist
}

// NewSet returns a set holding one empty histogram per axis.
func NewSet(axes ...Axis) *Set {
	s := &Set{hists: make(map[string]*Hist, len(axes))}
	for _, a := range axes {
		s.hists[a.Name] = New(a)
	}
	return s
}

// Factory builds a fresh, independently owned histogram set. Each
// processing call obtains its own set from a factory.
type Factory func() *Set

// NewFactory returns a factory producing sets over the given axes.
func NewFactory(axes ...Axis) (Factory, error) {
	seen := make(map[string]bool, len(axes))
	for _, a := range axes {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("hist: duplicate histogram %q", a.Name)
		}
		seen[a.Name] = true
	}
	return func() *Set { return NewSet(axes...) }, nil
}

// Get returns the named histogram, or nil.
func (s *Set) Get(name string) *Hist { return s.hists[name] }

// Names returns the sorted histogram names.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.hists))
	for n := range s.hists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fill fills the named histogram.
func (s *Set) Fill(name, region string, values, weights []float64) error {
	h, ok := s.hists[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHistogram, name)
	}
	return h.Fill(region, values, weights)
}

// Merge adds the contents of o into s. Histograms only present in o are
// copied. Merging is associative and commutative up to floating-point
// summation order.
func (s *Set) Merge(o *Set) error {
	for _, name := range o.Names() {
		oh := o.hists[name]
		h, ok := s.hists[name]
		if !ok {
			s.hists[name] = oh.Clone()
			continue
		}
		if err := h.Merge(oh); err != nil {
			return fmt.Errorf("hist: could not merge %q: %w", name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	c := &Set{hists: make(map[string]*Hist, len(s.hists))}
	for name, h := range s.hists {
		c.hists[name] = h.Clone()
	}
	return c
}

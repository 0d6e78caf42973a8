package signal

import (
	"fmt"
	"sort"

	"github.com/decibelcooper/hzzplot/nano"
)

// Objects are the reconstructed collections of one batch, as seen by the
// event predicates and the histogram features.
type Objects struct {
	Batch *nano.Batch

	Muons      nano.View
	Dimuons    *Dimuons
	Candidates Candidates
	Jets       nano.View
	Tagged     map[string]nano.View
}

// Events returns the number of events.
func (o *Objects) Events() int { return o.Batch.Len() }

// Predicate computes one boolean per event.
type Predicate func(o *Objects) []bool

// Registry maps predicate names to predicates.
type Registry map[string]Predicate

// Names returns the sorted predicate names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TaggerPredicate returns the name of the "exactly one tagged jet"
// predicate of a tagger.
func TaggerPredicate(tagger string) string { return "one" + tagger + "jet" }

// MuonCountPredicate returns the name of the "at least n selected muons"
// predicate.
func MuonCountPredicate(n int) string { return fmt.Sprintf("atleast%dmuons", n) }

// CandidateCountPredicate returns the name of the "at least n Z candidates"
// predicate.
func CandidateCountPredicate(n int) string { return fmt.Sprintf("atleast%dcandidates", n) }

// NewRegistry returns the predicate pool of the analysis: muon kinematics
// and multiplicities, candidate multiplicity, and one predicate per tagger.
func NewRegistry(cuts EventCuts, taggers []Tagger) Registry {
	r := Registry{
		"leadingmuonpt":    muonPt(0, cuts.LeadingMuonPt),
		"subleadingmuonpt": muonPt(1, cuts.SubleadingMuonPt),
		MuonCountPredicate(cuts.MinMuons): count(func(o *Objects, evt int) int {
			return o.Muons.Count(evt)
		}, cuts.MinMuons),
		CandidateCountPredicate(cuts.MinCandidates): count(func(o *Objects, evt int) int {
			return o.Dimuons.Count(evt)
		}, cuts.MinCandidates),
	}
	for _, t := range taggers {
		name := t.Name
		r[TaggerPredicate(name)] = func(o *Objects) []bool {
			v := o.Tagged[name]
			mask := make([]bool, o.Events())
			for evt := range mask {
				mask[evt] = v.Count(evt) == 1
			}
			return mask
		}
	}
	return r
}

// muonPt tests the k-th selected muon; events with fewer muons fail.
func muonPt(k int, threshold float64) Predicate {
	return func(o *Objects) []bool {
		mask := make([]bool, o.Events())
		for evt := range mask {
			i, ok := o.Muons.At(evt, k)
			mask[evt] = ok && o.Batch.Muons.Pt[i] > threshold
		}
		return mask
	}
}

func count(n func(o *Objects, evt int) int, threshold int) Predicate {
	return func(o *Objects) []bool {
		mask := make([]bool, o.Events())
		for evt := range mask {
			mask[evt] = n(o, evt) >= threshold
		}
		return mask
	}
}

// maxPredicates is the capacity of a PackedSelection.
const maxPredicates = 64

// PackedSelection stores up to 64 named per-event booleans as bits.
type PackedSelection struct {
	names []string
	bit   map[string]uint
	bits  []uint64
}

// NewPackedSelection returns an empty selection over n events.
func NewPackedSelection(n int) *PackedSelection {
	return &PackedSelection{
		bit:  make(map[string]uint),
		bits: make([]uint64, n),
	}
}

// Names returns the predicate names in insertion order.
func (s *PackedSelection) Names() []string { return append([]string(nil), s.names...) }

// Add stores a named mask.
func (s *PackedSelection) Add(name string, mask []bool) error {
	switch {
	case len(mask) != len(s.bits):
		return fmt.Errorf("%w: %q has %d entries, want %d", ErrSelection, name, len(mask), len(s.bits))
	case len(s.names) == maxPredicates:
		return fmt.Errorf("%w: more than %d predicates", ErrSelection, maxPredicates)
	}
	if _, dup := s.bit[name]; dup {
		return fmt.Errorf("%w: duplicate predicate %q", ErrSelection, name)
	}

	b := uint(len(s.names))
	s.names = append(s.names, name)
	s.bit[name] = b
	for evt, ok := range mask {
		if ok {
			s.bits[evt] |= 1 << b
		}
	}
	return nil
}

// All returns the events passing every named predicate. With no names,
// every event passes.
func (s *PackedSelection) All(names ...string) ([]bool, error) {
	var want uint64
	for _, n := range names {
		b, ok := s.bit[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPredicate, n)
		}
		want |= 1 << b
	}
	mask := make([]bool, len(s.bits))
	for evt, bits := range s.bits {
		mask[evt] = bits&want == want
	}
	return mask, nil
}

// Region is a named event category: the conjunction of its predicates.
// Jet features of the region are taken from the Tagger variant.
type Region struct {
	Name       string   `koanf:"name"`
	Predicates []string `koanf:"predicates"`
	Tagger     string   `koanf:"tagger"`
}

// DefaultRegions returns one region per tagger, each requiring the common
// muon selection of cuts and exactly one jet tagged by that tagger.
func DefaultRegions(cuts EventCuts, taggers []Tagger) []Region {
	regions := make([]Region, 0, len(taggers))
	for _, t := range taggers {
		regions = append(regions, Region{
			Name: t.Name,
			Predicates: []string{
				"leadingmuonpt",
				"subleadingmuonpt",
				MuonCountPredicate(cuts.MinMuons),
				CandidateCountPredicate(cuts.MinCandidates),
				TaggerPredicate(t.Name),
			},
			Tagger: t.Name,
		})
	}
	return regions
}

// resolveRegions checks regions against the registry and the taggers and
// returns the predicate names they use, in first-use order.
func resolveRegions(regions []Region, reg Registry, taggers []Tagger) ([]string, error) {
	known := make(map[string]bool, len(taggers))
	for _, t := range taggers {
		known[t.Name] = true
	}

	var (
		used  []string
		seen  = make(map[string]bool)
		names = make(map[string]bool)
	)
	for _, r := range regions {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: region without a name", ErrSelection)
		}
		if names[r.Name] {
			return nil, fmt.Errorf("%w: duplicate region %q", ErrSelection, r.Name)
		}
		names[r.Name] = true

		if !known[r.Tagger] {
			return nil, fmt.Errorf("%w: %q in region %q", ErrUnknownTagger, r.Tagger, r.Name)
		}
		for _, p := range r.Predicates {
			if _, ok := reg[p]; !ok {
				return nil, fmt.Errorf("%w: %q in region %q", ErrUnknownPredicate, p, r.Name)
			}
			if !seen[p] {
				seen[p] = true
				used = append(used, p)
			}
		}
	}
	if len(used) > maxPredicates {
		return nil, fmt.Errorf("%w: regions use %d predicates, at most %d allowed", ErrSelection, len(used), maxPredicates)
	}
	return used, nil
}

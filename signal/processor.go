// Package signal implements the H->ZZ*->4mu plus charm-jet event selection.
//
// A Processor turns one nano.Batch into per-region weighted histograms:
// muon and jet object selection, opposite-sign dimuon candidates, best Z
// and Z* choice, jet cleaning against muons, charm-tagger variants, region
// predicates and histogram filling. Processing is synchronous and shares no
// mutable state between calls, so batches can be processed concurrently and
// their Outputs merged in any order.
package signal

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/decibelcooper/hzzplot/hist"
	"github.com/decibelcooper/hzzplot/nano"
)

// Options configure a Processor.
type Options struct {
	Muon  MuonCuts
	Pair  PairCuts
	Jet   JetCuts
	Event EventCuts

	WorkingPoints map[string]WorkingPoint

	// Regions defaults to one region per tagger when empty.
	Regions []Region

	// JetPtEdges defaults to DefaultJetPtEdges when empty.
	JetPtEdges []float64
}

// DefaultOptions returns the analysis configuration.
func DefaultOptions() Options {
	return Options{
		Muon:          DefaultMuonCuts(),
		Pair:          DefaultPairCuts(),
		Jet:           DefaultJetCuts(),
		Event:         DefaultEventCuts(),
		WorkingPoints: DefaultWorkingPoints(),
		JetPtEdges:    slices.Clone(DefaultJetPtEdges),
	}
}

// Processor runs the selection on batches.
type Processor struct {
	opts Options

	taggers    []Tagger
	registry   Registry
	regions    []Region
	predicates []string
	features   []Feature
	factory    hist.Factory
}

// NewProcessor validates the options and resolves the regions against the
// predicate registry. Unknown predicates or taggers are reported here, not
// while processing.
func NewProcessor(opts Options) (*Processor, error) {
	taggers, err := Taggers(opts.WorkingPoints)
	if err != nil {
		return nil, err
	}
	if len(opts.JetPtEdges) == 0 {
		opts.JetPtEdges = slices.Clone(DefaultJetPtEdges)
	}

	p := &Processor{
		opts:     opts,
		taggers:  taggers,
		registry: NewRegistry(opts.Event, taggers),
		regions:  opts.Regions,
		features: Features(opts.JetPtEdges),
	}
	if len(p.regions) == 0 {
		p.regions = DefaultRegions(opts.Event, taggers)
	}

	p.predicates, err = resolveRegions(p.regions, p.registry, taggers)
	if err != nil {
		return nil, err
	}

	axes := make([]hist.Axis, len(p.features))
	for i, f := range p.features {
		axes[i] = f.Axis
	}
	p.factory, err = hist.NewFactory(axes...)
	if err != nil {
		return nil, fmt.Errorf("signal: invalid histogram binning: %w", err)
	}
	return p, nil
}

// Regions returns the resolved regions.
func (p *Processor) Regions() []Region { return slices.Clone(p.regions) }

// Histograms returns a fresh, empty histogram set.
func (p *Processor) Histograms() *hist.Set { return p.factory() }

// Reconstruct runs the object selection, dimuon building, candidate choice
// and jet tagging on a batch.
func (p *Processor) Reconstruct(batch *nano.Batch) *Objects {
	muons := SelectMuons(&batch.Muons, batch.Muons.All(), p.opts.Muon)
	dimuons := BuildDimuons(&batch.Muons, muons, p.opts.Pair)

	jets := SelectJets(&batch.Jets, batch.Jets.All(), p.opts.Jet)
	jets = CleanJets(&batch.Jets, jets, &batch.Muons, muons, p.opts.Jet.MuonDeltaRMax)

	return &Objects{
		Batch:      batch,
		Muons:      muons,
		Dimuons:    dimuons,
		Candidates: BestCandidates(dimuons, ZMass),
		Jets:       jets,
		Tagged:     TagJets(&batch.Jets, jets, p.taggers),
	}
}

// Select evaluates every predicate used by the regions.
func (p *Processor) Select(objs *Objects) (*PackedSelection, error) {
	sel := NewPackedSelection(objs.Events())
	for _, name := range p.predicates {
		if err := sel.Add(name, p.registry[name](objs)); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// Process runs the full selection on one batch and returns its histograms
// keyed by dataset. Only structurally invalid batches fail.
func (p *Processor) Process(batch *nano.Batch) (Output, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("signal: invalid batch of %q: %w", batch.Dataset, err)
	}

	objs := p.Reconstruct(batch)
	sel, err := p.Select(objs)
	if err != nil {
		return nil, err
	}

	weights := batch.Weights()
	res := &Result{
		Histograms: p.factory(),
		Metadata: Metadata{
			SumW:           floats.Sum(weights),
			NEvents:        int64(batch.Len()),
			SelectedEvents: make(map[string]int64, len(p.regions)),
			SelectedSumW:   make(map[string]float64, len(p.regions)),
		},
	}

	for _, r := range p.regions {
		mask, err := sel.All(r.Predicates...)
		if err != nil {
			return nil, err
		}
		if err := p.fill(res, objs, r, mask, weights); err != nil {
			return nil, err
		}
	}

	return Output{batch.Dataset: res}, nil
}

func (p *Processor) fill(res *Result, objs *Objects, r Region, mask []bool, weights []float64) error {
	ro := &regionObjects{
		objs: objs,
		jets: objs.Tagged[r.Tagger].Mask(mask),
	}
	var rw []float64
	for evt, ok := range mask {
		if ok {
			ro.events = append(ro.events, evt)
			rw = append(rw, weights[evt])
		}
	}
	res.Metadata.SelectedEvents[r.Name] += int64(len(ro.events))
	res.Metadata.SelectedSumW[r.Name] += floats.Sum(rw)

	for _, f := range p.features {
		values, counts := hist.Flatten(f.eval(ro))
		w := hist.RepeatByCount(rw, counts)
		if err := res.Histograms.Fill(f.Axis.Name, r.Name, values, w); err != nil {
			return fmt.Errorf("signal: could not fill %s in region %q: %w", f.Axis.Name, r.Name, err)
		}
	}
	return nil
}

package nano

import (
	"fmt"

	"go-hep.org/x/hep/groot"
	_ "go-hep.org/x/hep/groot/riofs/plugin/xrootd"
	"go-hep.org/x/hep/groot/rtree"
)

// DefaultTree is the name of the NanoAOD event tree.
const DefaultTree = "Events"

// Reader reads NanoAOD event trees into batches.
type Reader struct {
	f       *groot.File
	tree    rtree.Tree
	dataset string
	isMC    bool
}

// Open opens the tree named key in the ROOT file fname. Local paths and
// root:// URLs are both accepted.
func Open(fname, key, dataset string) (*Reader, error) {
	f, err := groot.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("nano: could not open %q: %w", fname, err)
	}

	o, err := f.Get(key)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nano: could not find tree %q in %q: %w", key, fname, err)
	}
	tree, ok := o.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: %q in %q is a %T, not a tree", ErrSchema, key, fname, o)
	}

	return &Reader{
		f:       f,
		tree:    tree,
		dataset: dataset,
		isMC:    tree.Branch("genWeight") != nil,
	}, nil
}

// Entries returns the number of events in the tree.
func (r *Reader) Entries() int64 { return r.tree.Entries() }

// IsSimulated reports whether the tree carries generator weights.
func (r *Reader) IsSimulated() bool { return r.isMC }

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Read reads the events [beg, end) into a new batch.
func (r *Reader) Read(beg, end int64) (*Batch, error) {
	var (
		muPt, muEta, muPhi, muMass []float32
		muCharge                   []int32
		muDxy, muDz, muIso, muSIP  []float32
		muMedium, muTight          []bool

		jetPt, jetEta, jetPhi, jetMass []float32
		jetID                          []uint8
		deepCvB, deepCvL               []float32
		pnetCvB, pnetCvL               []float32
		partCvB, partCvL               []float32

		genWeight float32
	)

	rvars := []rtree.ReadVar{
		{Name: "Muon_pt", Value: &muPt},
		{Name: "Muon_eta", Value: &muEta},
		{Name: "Muon_phi", Value: &muPhi},
		{Name: "Muon_mass", Value: &muMass},
		{Name: "Muon_charge", Value: &muCharge},
		{Name: "Muon_dxy", Value: &muDxy},
		{Name: "Muon_dz", Value: &muDz},
		{Name: "Muon_pfRelIso04_all", Value: &muIso},
		{Name: "Muon_sip3d", Value: &muSIP},
		{Name: "Muon_mediumId", Value: &muMedium},
		{Name: "Muon_tightId", Value: &muTight},
		{Name: "Jet_pt", Value: &jetPt},
		{Name: "Jet_eta", Value: &jetEta},
		{Name: "Jet_phi", Value: &jetPhi},
		{Name: "Jet_mass", Value: &jetMass},
		{Name: "Jet_jetId", Value: &jetID},
		{Name: "Jet_btagDeepFlavCvB", Value: &deepCvB},
		{Name: "Jet_btagDeepFlavCvL", Value: &deepCvL},
		{Name: "Jet_btagPNetCvB", Value: &pnetCvB},
		{Name: "Jet_btagPNetCvL", Value: &pnetCvL},
		{Name: "Jet_btagRobustParTAK4CvB", Value: &partCvB},
		{Name: "Jet_btagRobustParTAK4CvL", Value: &partCvL},
	}
	if r.isMC {
		rvars = append(rvars, rtree.ReadVar{Name: "genWeight", Value: &genWeight})
	}
	for _, rv := range rvars {
		if r.tree.Branch(rv.Name) == nil {
			return nil, fmt.Errorf("%w: missing branch %q", ErrSchema, rv.Name)
		}
	}

	rr, err := rtree.NewReader(r.tree, rvars, rtree.WithRange(beg, end))
	if err != nil {
		return nil, fmt.Errorf("%w: could not create tree reader: %v", ErrSchema, err)
	}
	defer rr.Close()

	bld := NewBuilder(r.dataset, r.isMC)
	err = rr.Read(func(ctx rtree.RCtx) error {
		evt := Event{
			GenWeight: float64(genWeight),
			Muons:     make([]Muon, len(muPt)),
			Jets:      make([]Jet, len(jetPt)),
		}
		for i := range evt.Muons {
			evt.Muons[i] = Muon{
				Pt:            float64(muPt[i]),
				Eta:           float64(muEta[i]),
				Phi:           float64(muPhi[i]),
				Mass:          float64(muMass[i]),
				Charge:        muCharge[i],
				Dxy:           float64(muDxy[i]),
				Dz:            float64(muDz[i]),
				PFRelIso04All: float64(muIso[i]),
				SIP3D:         float64(muSIP[i]),
				MediumID:      muMedium[i],
				TightID:       muTight[i],
			}
		}
		for i := range evt.Jets {
			evt.Jets[i] = Jet{
				Pt:          float64(jetPt[i]),
				Eta:         float64(jetEta[i]),
				Phi:         float64(jetPhi[i]),
				Mass:        float64(jetMass[i]),
				JetID:       int32(jetID[i]),
				DeepFlavCvB: float64(deepCvB[i]),
				DeepFlavCvL: float64(deepCvL[i]),
				PNetCvB:     float64(pnetCvB[i]),
				PNetCvL:     float64(pnetCvL[i]),
				ParTCvB:     float64(partCvB[i]),
				ParTCvL:     float64(partCvL[i]),
			}
		}
		bld.Add(evt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("nano: could not read events [%d, %d): %w", beg, end, err)
	}

	batch := bld.Batch()
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

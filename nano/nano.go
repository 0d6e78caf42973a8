// Package nano holds batches of collision events in a columnar layout.
//
// Every particle collection is stored as a structure of arrays plus CSR
// offsets: the particles of event i live at [Offsets[i], Offsets[i+1]).
// Selections never copy particles; they produce Views holding parent indices.
package nano

import (
	"fmt"

	"go-hep.org/x/hep/fmom"
)

// Muon is a single reconstructed muon.
type Muon struct {
	Pt, Eta, Phi, Mass float64
	Charge             int32

	Dxy, Dz       float64
	PFRelIso04All float64
	SIP3D         float64

	MediumID bool
	TightID  bool
}

// Jet is a single reconstructed jet with its charm tagger scores.
type Jet struct {
	Pt, Eta, Phi, Mass float64
	JetID              int32

	DeepFlavCvB, DeepFlavCvL float64
	PNetCvB, PNetCvL         float64
	ParTCvB, ParTCvL         float64
}

// Muons is the columnar muon collection of a batch.
type Muons struct {
	Offsets []int

	Pt, Eta, Phi, Mass []float64
	Charge             []int32
	Dxy, Dz            []float64
	PFRelIso04All      []float64
	SIP3D              []float64
	MediumID, TightID  []bool
}

// Events returns the number of events spanned by the collection.
func (m *Muons) Events() int { return nevents(m.Offsets) }

// Len returns the total number of muons in the batch.
func (m *Muons) Len() int { return len(m.Pt) }

// P4 returns the four-momentum of muon i.
func (m *Muons) P4(i int) fmom.PtEtaPhiM {
	return fmom.NewPtEtaPhiM(m.Pt[i], m.Eta[i], m.Phi[i], m.Mass[i])
}

// At returns muon i as a row.
func (m *Muons) At(i int) Muon {
	return Muon{
		Pt: m.Pt[i], Eta: m.Eta[i], Phi: m.Phi[i], Mass: m.Mass[i],
		Charge:        m.Charge[i],
		Dxy:           m.Dxy[i],
		Dz:            m.Dz[i],
		PFRelIso04All: m.PFRelIso04All[i],
		SIP3D:         m.SIP3D[i],
		MediumID:      m.MediumID[i],
		TightID:       m.TightID[i],
	}
}

// All returns the view holding every muon.
func (m *Muons) All() View { return identity(m.Offsets) }

func (m *Muons) append(mu Muon) {
	m.Pt = append(m.Pt, mu.Pt)
	m.Eta = append(m.Eta, mu.Eta)
	m.Phi = append(m.Phi, mu.Phi)
	m.Mass = append(m.Mass, mu.Mass)
	m.Charge = append(m.Charge, mu.Charge)
	m.Dxy = append(m.Dxy, mu.Dxy)
	m.Dz = append(m.Dz, mu.Dz)
	m.PFRelIso04All = append(m.PFRelIso04All, mu.PFRelIso04All)
	m.SIP3D = append(m.SIP3D, mu.SIP3D)
	m.MediumID = append(m.MediumID, mu.MediumID)
	m.TightID = append(m.TightID, mu.TightID)
}

func (m *Muons) validate() error {
	n := m.Len()
	cols := map[string]int{
		"charge":         len(m.Charge),
		"eta":            len(m.Eta),
		"phi":            len(m.Phi),
		"mass":           len(m.Mass),
		"dxy":            len(m.Dxy),
		"dz":             len(m.Dz),
		"pfRelIso04_all": len(m.PFRelIso04All),
		"sip3d":          len(m.SIP3D),
		"mediumId":       len(m.MediumID),
		"tightId":        len(m.TightID),
	}
	return checkColumns("Muon", m.Offsets, n, cols)
}

// Jets is the columnar jet collection of a batch.
type Jets struct {
	Offsets []int

	Pt, Eta, Phi, Mass []float64
	JetID              []int32

	DeepFlavCvB, DeepFlavCvL []float64
	PNetCvB, PNetCvL         []float64
	ParTCvB, ParTCvL         []float64
}

// Events returns the number of events spanned by the collection.
func (j *Jets) Events() int { return nevents(j.Offsets) }

// Len returns the total number of jets in the batch.
func (j *Jets) Len() int { return len(j.Pt) }

// P4 returns the four-momentum of jet i.
func (j *Jets) P4(i int) fmom.PtEtaPhiM {
	return fmom.NewPtEtaPhiM(j.Pt[i], j.Eta[i], j.Phi[i], j.Mass[i])
}

// At returns jet i as a row.
func (j *Jets) At(i int) Jet {
	return Jet{
		Pt: j.Pt[i], Eta: j.Eta[i], Phi: j.Phi[i], Mass: j.Mass[i],
		JetID:       j.JetID[i],
		DeepFlavCvB: j.DeepFlavCvB[i],
		DeepFlavCvL: j.DeepFlavCvL[i],
		PNetCvB:     j.PNetCvB[i],
		PNetCvL:     j.PNetCvL[i],
		ParTCvB:     j.ParTCvB[i],
		ParTCvL:     j.ParTCvL[i],
	}
}

// All returns the view holding every jet.
func (j *Jets) All() View { return identity(j.Offsets) }

func (j *Jets) append(jet Jet) {
	j.Pt = append(j.Pt, jet.Pt)
	j.Eta = append(j.Eta, jet.Eta)
	j.Phi = append(j.Phi, jet.Phi)
	j.Mass = append(j.Mass, jet.Mass)
	j.JetID = append(j.JetID, jet.JetID)
	j.DeepFlavCvB = append(j.DeepFlavCvB, jet.DeepFlavCvB)
	j.DeepFlavCvL = append(j.DeepFlavCvL, jet.DeepFlavCvL)
	j.PNetCvB = append(j.PNetCvB, jet.PNetCvB)
	j.PNetCvL = append(j.PNetCvL, jet.PNetCvL)
	j.ParTCvB = append(j.ParTCvB, jet.ParTCvB)
	j.ParTCvL = append(j.ParTCvL, jet.ParTCvL)
}

func (j *Jets) validate() error {
	n := j.Len()
	cols := map[string]int{
		"eta":                  len(j.Eta),
		"phi":                  len(j.Phi),
		"mass":                 len(j.Mass),
		"jetId":                len(j.JetID),
		"btagDeepFlavCvB":      len(j.DeepFlavCvB),
		"btagDeepFlavCvL":      len(j.DeepFlavCvL),
		"btagPNetCvB":          len(j.PNetCvB),
		"btagPNetCvL":          len(j.PNetCvL),
		"btagRobustParTAK4CvB": len(j.ParTCvB),
		"btagRobustParTAK4CvL": len(j.ParTCvL),
	}
	return checkColumns("Jet", j.Offsets, n, cols)
}

// Batch is a set of events processed together.
type Batch struct {
	Dataset string

	Muons Muons
	Jets  Jets

	// GenWeight is nil for real data.
	GenWeight []float64
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int { return b.Muons.Events() }

// IsSimulated reports whether the batch carries generator weights.
func (b *Batch) IsSimulated() bool { return b.GenWeight != nil }

// Weights returns the per-event weights: the generator weight for simulated
// events, 1 otherwise. The returned slice is owned by the caller.
func (b *Batch) Weights() []float64 {
	w := make([]float64, b.Len())
	if !b.IsSimulated() {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	copy(w, b.GenWeight)
	return w
}

// Validate checks the structural consistency of the batch.
func (b *Batch) Validate() error {
	if err := b.Muons.validate(); err != nil {
		return err
	}
	if err := b.Jets.validate(); err != nil {
		return err
	}
	if nm, nj := b.Muons.Events(), b.Jets.Events(); nm != nj {
		return fmt.Errorf("%w: Muon spans %d events, Jet spans %d", ErrSchema, nm, nj)
	}
	if b.GenWeight != nil && len(b.GenWeight) != b.Len() {
		return fmt.Errorf("%w: genWeight has %d entries for %d events", ErrSchema, len(b.GenWeight), b.Len())
	}
	return nil
}

// Slice returns the events [beg, end) as a new batch sharing no storage
// with b.
func (b *Batch) Slice(beg, end int) *Batch {
	if beg < 0 || end > b.Len() || beg > end {
		panic(fmt.Errorf("nano: invalid slice [%d, %d) of %d events", beg, end, b.Len()))
	}

	bld := NewBuilder(b.Dataset, b.IsSimulated())
	for evt := beg; evt < end; evt++ {
		var e Event
		if b.IsSimulated() {
			e.GenWeight = b.GenWeight[evt]
		}
		for i := b.Muons.Offsets[evt]; i < b.Muons.Offsets[evt+1]; i++ {
			e.Muons = append(e.Muons, b.Muons.At(i))
		}
		for i := b.Jets.Offsets[evt]; i < b.Jets.Offsets[evt+1]; i++ {
			e.Jets = append(e.Jets, b.Jets.At(i))
		}
		bld.Add(e)
	}
	return bld.Batch()
}

func nevents(offsets []int) int {
	if len(offsets) == 0 {
		return 0
	}
	return len(offsets) - 1
}

func checkColumns(coll string, offsets []int, n int, cols map[string]int) error {
	if len(offsets) == 0 {
		return fmt.Errorf("%w: %s has no offsets", ErrSchema, coll)
	}
	if offsets[0] != 0 || offsets[len(offsets)-1] != n {
		return fmt.Errorf("%w: %s offsets do not span %d entries", ErrSchema, coll, n)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("%w: %s offsets decrease at event %d", ErrSchema, coll, i-1)
		}
	}
	for name, size := range cols {
		if size != n {
			return fmt.Errorf("%w: %s_%s has %d entries, want %d", ErrSchema, coll, name, size, n)
		}
	}
	return nil
}

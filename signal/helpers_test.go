package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/hzzplot/nano"
)

const muonMass = 0.1057

func muon(pt, eta, phi float64, charge int32) nano.Muon {
	return nano.Muon{
		Pt: pt, Eta: eta, Phi: phi, Mass: muonMass,
		Charge:        charge,
		Dxy:           0.01,
		Dz:            0.02,
		PFRelIso04All: 0.1,
		SIP3D:         1.5,
		MediumID:      true,
		TightID:       true,
	}
}

func jet(pt, eta, phi float64) nano.Jet {
	return nano.Jet{Pt: pt, Eta: eta, Phi: phi, Mass: 5, JetID: 6}
}

func deepjet(pt, eta, phi float64) nano.Jet {
	j := jet(pt, eta, phi)
	j.DeepFlavCvB, j.DeepFlavCvL = 0.5, 0.5
	return j
}

func pnetjet(pt, eta, phi float64) nano.Jet {
	j := jet(pt, eta, phi)
	j.PNetCvB, j.PNetCvL = 0.5, 0.6
	return j
}

// fourMuons returns an event with three accepted dimuons: AB (~90 GeV) and
// BC, BD (~42 GeV).
func fourMuons() []nano.Muon {
	return []nano.Muon{
		muon(45, 0, 0, +1),
		muon(45, 0, math.Pi, -1),
		muon(20, 0, math.Pi/2, +1),
		muon(20, 0, -math.Pi/2, +1),
	}
}

// scenarioBatch is a ten-event batch: events 0-5 carry four good muons,
// event 0 is the only one with a single clean deepjet-tagged jet and
// event 3 the only one with a single pnet-tagged jet.
func scenarioBatch(t *testing.T) *nano.Batch {
	t.Helper()

	isolated := fourMuons()
	for i := range isolated {
		isolated[i].PFRelIso04All = 0.5
	}

	badID := deepjet(50, 1, 0.8)
	badID.JetID = 2

	events := []nano.Event{
		{GenWeight: 1.5, Muons: fourMuons(), Jets: []nano.Jet{deepjet(50, 1, 0.8)}},
		{GenWeight: 0.5, Muons: fourMuons()},
		{GenWeight: 2, Muons: fourMuons(), Jets: []nano.Jet{deepjet(60, 0.1, 0.1)}},
		{GenWeight: 3, Muons: fourMuons(), Jets: []nano.Jet{pnetjet(70, -1, 2.3)}},
		{GenWeight: 0.25, Muons: fourMuons(), Jets: []nano.Jet{deepjet(50, 1, 0.8), deepjet(40, -1, -2.4)}},
		{GenWeight: 4, Muons: fourMuons(), Jets: []nano.Jet{badID}},
		{GenWeight: 5, Muons: []nano.Muon{muon(30, 0, 0, +1)}, Jets: []nano.Jet{deepjet(50, 1, 0.8)}},
		{GenWeight: 6},
		{GenWeight: 7, Muons: isolated, Jets: []nano.Jet{deepjet(50, 1, 0.8)}},
		{GenWeight: 8, Muons: []nano.Muon{muon(45, 0, 0, +1), muon(45, 0, math.Pi, -1)}},
	}

	bld := nano.NewBuilder("GluGluHToZZTo4L", true)
	for _, evt := range events {
		bld.Add(evt)
	}
	batch := bld.Batch()
	require.NoError(t, batch.Validate())
	return batch
}

func newProcessor(t *testing.T) *Processor {
	t.Helper()
	p, err := NewProcessor(DefaultOptions())
	require.NoError(t, err)
	return p
}

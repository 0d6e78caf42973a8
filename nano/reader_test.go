package nano

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// nmuons and njets are the multiplicities of the events written by
// writeEvents; event i has generator weight weights[i].
var (
	nmuons  = []int{2, 1, 2, 0, 1}
	njets   = []int{0, 1, 0, 1, 2}
	weights = []float32{0.5, 1, 2, 3, 4}
)

func muonPt(evt, k int) float32 { return float32(10*(evt+1) + k) }
func jetPt(evt, k int) float32 { return float32(30 + 10*evt + k) }

// writeEvents writes a NanoAOD-like Events tree, leaving out the branches
// named in skip.
func writeEvents(t *testing.T, skip ...string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "nano.root")

	f, err := groot.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	var (
		nMuon, nJet int32

		muPt, muEta, muPhi, muMass []float32
		muCharge                   []int32
		muDxy, muDz, muIso, muSIP  []float32
		muMedium, muTight          []bool

		jetPtV, jetEta, jetPhi, jetMass []float32
		jetID                           []uint8
		deepCvB, deepCvL                []float32
		pnetCvB, pnetCvL                []float32
		partCvB, partCvL                []float32

		genWeight float32
	)

	all := []rtree.WriteVar{
		{Name: "nMuon", Value: &nMuon},
		{Name: "Muon_pt", Value: &muPt, Count: "nMuon"},
		{Name: "Muon_eta", Value: &muEta, Count: "nMuon"},
		{Name: "Muon_phi", Value: &muPhi, Count: "nMuon"},
		{Name: "Muon_mass", Value: &muMass, Count: "nMuon"},
		{Name: "Muon_charge", Value: &muCharge, Count: "nMuon"},
		{Name: "Muon_dxy", Value: &muDxy, Count: "nMuon"},
		{Name: "Muon_dz", Value: &muDz, Count: "nMuon"},
		{Name: "Muon_pfRelIso04_all", Value: &muIso, Count: "nMuon"},
		{Name: "Muon_sip3d", Value: &muSIP, Count: "nMuon"},
		{Name: "Muon_mediumId", Value: &muMedium, Count: "nMuon"},
		{Name: "Muon_tightId", Value: &muTight, Count: "nMuon"},
		{Name: "nJet", Value: &nJet},
		{Name: "Jet_pt", Value: &jetPtV, Count: "nJet"},
		{Name: "Jet_eta", Value: &jetEta, Count: "nJet"},
		{Name: "Jet_phi", Value: &jetPhi, Count: "nJet"},
		{Name: "Jet_mass", Value: &jetMass, Count: "nJet"},
		{Name: "Jet_jetId", Value: &jetID, Count: "nJet"},
		{Name: "Jet_btagDeepFlavCvB", Value: &deepCvB, Count: "nJet"},
		{Name: "Jet_btagDeepFlavCvL", Value: &deepCvL, Count: "nJet"},
		{Name: "Jet_btagPNetCvB", Value: &pnetCvB, Count: "nJet"},
		{Name: "Jet_btagPNetCvL", Value: &pnetCvL, Count: "nJet"},
		{Name: "Jet_btagRobustParTAK4CvB", Value: &partCvB, Count: "nJet"},
		{Name: "Jet_btagRobustParTAK4CvL", Value: &partCvL, Count: "nJet"},
		{Name: "genWeight", Value: &genWeight},
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var wvars []rtree.WriteVar
	for _, wv := range all {
		if !skipped[wv.Name] {
			wvars = append(wvars, wv)
		}
	}

	w, err := rtree.NewWriter(f, DefaultTree, wvars)
	require.NoError(t, err)

	for evt := range nmuons {
		nMuon, nJet = int32(nmuons[evt]), int32(njets[evt])
		genWeight = weights[evt]

		muPt, muEta, muPhi, muMass = nil, nil, nil, nil
		muCharge = nil
		muDxy, muDz, muIso, muSIP = nil, nil, nil, nil
		muMedium, muTight = nil, nil
		for k := 0; k < nmuons[evt]; k++ {
			muPt = append(muPt, muonPt(evt, k))
			muEta = append(muEta, 0.5)
			muPhi = append(muPhi, float32(k))
			muMass = append(muMass, 0.125)
			muCharge = append(muCharge, int32(1-2*(k%2)))
			muDxy = append(muDxy, 0.25)
			muDz = append(muDz, 0.5)
			muIso = append(muIso, 0.125)
			muSIP = append(muSIP, 1.5)
			muMedium = append(muMedium, true)
			muTight = append(muTight, k == 0)
		}

		jetPtV, jetEta, jetPhi, jetMass = nil, nil, nil, nil
		jetID = nil
		deepCvB, deepCvL, pnetCvB, pnetCvL, partCvB, partCvL = nil, nil, nil, nil, nil, nil
		for k := 0; k < njets[evt]; k++ {
			jetPtV = append(jetPtV, jetPt(evt, k))
			jetEta = append(jetEta, -1)
			jetPhi = append(jetPhi, 2)
			jetMass = append(jetMass, 5)
			jetID = append(jetID, 6)
			deepCvB = append(deepCvB, 0.25)
			deepCvL = append(deepCvL, 0.5)
			pnetCvB = append(pnetCvB, 0.75)
			pnetCvL = append(pnetCvL, 0.375)
			partCvB = append(partCvB, 0.0625)
			partCvL = append(partCvL, 0.875)
		}

		_, err := w.Write()
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return fname
}

func TestReaderRead(t *testing.T) {
	r, err := Open(writeEvents(t), DefaultTree, "ZZTo4L")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(5), r.Entries())
	assert.True(t, r.IsSimulated())

	batch, err := r.Read(1, 4)
	require.NoError(t, err)
	require.NoError(t, batch.Validate())

	assert.Equal(t, "ZZTo4L", batch.Dataset)
	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, []int{0, 1, 3, 3}, batch.Muons.Offsets)
	assert.Equal(t, []int{0, 1, 1, 2}, batch.Jets.Offsets)
	assert.Equal(t, []float64{1, 2, 3}, batch.GenWeight)

	assert.Equal(t, []float64{20, 30, 31}, batch.Muons.Pt)
	assert.Equal(t, []int32{1, 1, -1}, batch.Muons.Charge)
	assert.Equal(t, []bool{true, true, false}, batch.Muons.TightID)
	assert.Equal(t, []bool{true, true, true}, batch.Muons.MediumID)
	assert.Equal(t, []float64{0.25, 0.25, 0.25}, batch.Muons.Dxy)
	assert.Equal(t, []float64{1.5, 1.5, 1.5}, batch.Muons.SIP3D)

	assert.Equal(t, []float64{40, 60}, batch.Jets.Pt)
	assert.Equal(t, []int32{6, 6}, batch.Jets.JetID)
	assert.Equal(t, []float64{0.75, 0.75}, batch.Jets.PNetCvB)
	assert.Equal(t, []float64{0.875, 0.875}, batch.Jets.ParTCvL)

	mu := batch.Muons.At(2)
	assert.Equal(t, 0.5, mu.Eta)
	assert.Equal(t, 1.0, mu.Phi)
	assert.Equal(t, 0.125, mu.Mass)
}

func TestReaderFullRange(t *testing.T) {
	r, err := Open(writeEvents(t), DefaultTree, "ZZTo4L")
	require.NoError(t, err)
	defer r.Close()

	batch, err := r.Read(0, r.Entries())
	require.NoError(t, err)
	assert.Equal(t, 5, batch.Len())
	assert.Equal(t, []int{0, 2, 3, 5, 5, 6}, batch.Muons.Offsets)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 4}, batch.Jets.Offsets)
	assert.Equal(t, []float64{0.5, 1, 2, 3, 4}, batch.GenWeight)
	assert.Equal(t, []float64{70, 71}, batch.Jets.Pt[2:])
}

func TestReaderRealData(t *testing.T) {
	r, err := Open(writeEvents(t, "genWeight"), DefaultTree, "DoubleMuon")
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.IsSimulated())
	batch, err := r.Read(0, 2)
	require.NoError(t, err)
	assert.Nil(t, batch.GenWeight)
	assert.Equal(t, []float64{1, 1}, batch.Weights())
}

func TestReaderMissingBranch(t *testing.T) {
	r, err := Open(writeEvents(t, "Jet_btagPNetCvL"), DefaultTree, "ZZTo4L")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read(0, 1)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestReaderOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.root"), DefaultTree, "x")
	assert.Error(t, err)

	_, err = Open(writeEvents(t), "Runs", "x")
	assert.Error(t, err)
}

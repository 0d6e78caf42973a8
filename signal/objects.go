package signal

import (
	"math"

	"github.com/decibelcooper/hzzplot/nano"
)

// SelectMuons returns the muons of v passing the quality cuts.
// The impact parameters are compared signed, as stored.
func SelectMuons(m *nano.Muons, v nano.View, cuts MuonCuts) nano.View {
	return v.Filter(func(i int) bool {
		return m.Pt[i] > cuts.MinPt &&
			math.Abs(m.Eta[i]) < cuts.MaxAbsEta &&
			m.Dxy[i] < cuts.MaxDxy &&
			m.Dz[i] < cuts.MaxDz &&
			m.PFRelIso04All[i] < cuts.MaxIso &&
			m.SIP3D[i] < cuts.MaxSIP3D &&
			(m.MediumID[i] || !cuts.MediumID)
	})
}

// SelectJets returns the jets of v passing the kinematic and jet-ID cuts.
func SelectJets(j *nano.Jets, v nano.View, cuts JetCuts) nano.View {
	return v.Filter(func(i int) bool {
		return j.Pt[i] >= cuts.MinPt &&
			math.Abs(j.Eta[i]) < cuts.MaxAbsEta &&
			j.JetID[i] == cuts.JetID
	})
}

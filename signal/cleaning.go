package signal

import (
	"go-hep.org/x/hep/fmom"

	"github.com/decibelcooper/hzzplot/nano"
)

// CleanJets drops the jets lying within maxDR of any selected muon of the
// same event. Events without muons keep all their jets.
func CleanJets(j *nano.Jets, jets nano.View, m *nano.Muons, muons nano.View, maxDR float64) nano.View {
	return jets.FilterEvents(func(evt, i int) bool {
		pj := j.P4(i)
		for _, k := range muons.Event(evt) {
			pm := m.P4(k)
			if fmom.DeltaR(&pj, &pm) <= maxDR {
				return false
			}
		}
		return true
	})
}

// TagJets returns one view per tagger holding the jets passing its working
// point. A jet may belong to any number of variants.
func TagJets(j *nano.Jets, jets nano.View, taggers []Tagger) map[string]nano.View {
	out := make(map[string]nano.View, len(taggers))
	for _, t := range taggers {
		t := t
		out[t.Name] = jets.Filter(func(i int) bool { return t.Pass(j, i) })
	}
	return out
}

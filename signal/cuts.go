package signal

import (
	"fmt"
	"sort"

	"github.com/decibelcooper/hzzplot/nano"
)

// ZMass is the nominal Z boson mass (GeV).
const ZMass = 91.118

// MuonCuts are the per-muon quality and kinematic requirements.
type MuonCuts struct {
	MinPt     float64 `koanf:"min_pt"`
	MaxAbsEta float64 `koanf:"max_abs_eta"`
	MaxDxy    float64 `koanf:"max_dxy"`
	MaxDz     float64 `koanf:"max_dz"`
	MaxIso    float64 `koanf:"max_iso"`
	MaxSIP3D  float64 `koanf:"max_sip3d"`
	MediumID  bool    `koanf:"medium_id"`
}

// PairCuts configure dimuon candidate building.
//
// A pair is accepted when it lies in the wide window with both muons passing
// the tight ID, or in the narrow window regardless of ID.
type PairCuts struct {
	MinDeltaR float64 `koanf:"min_delta_r"`
	WideLow   float64 `koanf:"wide_low"`
	WideHigh  float64 `koanf:"wide_high"`
	TightID   bool    `koanf:"tight_id"`

	NarrowLow  float64 `koanf:"narrow_low"`
	NarrowHigh float64 `koanf:"narrow_high"`
}

// JetCuts are the per-jet requirements, including the cleaning against
// selected muons.
type JetCuts struct {
	MinPt         float64 `koanf:"min_pt"`
	MaxAbsEta     float64 `koanf:"max_abs_eta"`
	JetID         int32   `koanf:"jet_id"`
	MuonDeltaRMax float64 `koanf:"muon_delta_r_max"`
}

// EventCuts are the thresholds used by the event-level predicates.
type EventCuts struct {
	LeadingMuonPt    float64 `koanf:"leading_muon_pt"`
	SubleadingMuonPt float64 `koanf:"subleading_muon_pt"`
	MinMuons         int     `koanf:"min_muons"`
	MinCandidates    int     `koanf:"min_candidates"`
}

// WorkingPoint is a tagger operating point: a jet passes when both its
// charm-vs-bottom and charm-vs-light scores exceed the thresholds.
type WorkingPoint struct {
	CvB float64 `koanf:"cvb"`
	CvL float64 `koanf:"cvl"`
}

// Tagger is a charm-jet identification algorithm at a working point.
type Tagger struct {
	Name string
	WP   WorkingPoint

	scores func(j *nano.Jets, i int) (cvb, cvl float64)
}

// Pass reports whether jet i passes the tagger working point.
func (t Tagger) Pass(j *nano.Jets, i int) bool {
	cvb, cvl := t.scores(j, i)
	return cvb > t.WP.CvB && cvl > t.WP.CvL
}

var taggerScores = map[string]func(j *nano.Jets, i int) (float64, float64){
	"deepjet": func(j *nano.Jets, i int) (float64, float64) { return j.DeepFlavCvB[i], j.DeepFlavCvL[i] },
	"pnet":    func(j *nano.Jets, i int) (float64, float64) { return j.PNetCvB[i], j.PNetCvL[i] },
	"part":    func(j *nano.Jets, i int) (float64, float64) { return j.ParTCvB[i], j.ParTCvL[i] },
}

// Taggers returns the known taggers configured with the given working
// points, sorted by name. Every working point must name a known tagger.
func Taggers(wps map[string]WorkingPoint) ([]Tagger, error) {
	taggers := make([]Tagger, 0, len(wps))
	for name, wp := range wps {
		scores, ok := taggerScores[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTagger, name)
		}
		taggers = append(taggers, Tagger{Name: name, WP: wp, scores: scores})
	}
	sort.Slice(taggers, func(i, j int) bool { return taggers[i].Name < taggers[j].Name })
	return taggers, nil
}

// DefaultWorkingPoints returns the charm-tagging working points of the
// three taggers.
func DefaultWorkingPoints() map[string]WorkingPoint {
	return map[string]WorkingPoint{
		"deepjet": {CvB: 0.241, CvL: 0.305},
		"pnet":    {CvB: 0.258, CvL: 0.491},
		"part":    {CvB: 0.095, CvL: 0.358},
	}
}

// DefaultMuonCuts returns the muon selection.
func DefaultMuonCuts() MuonCuts {
	return MuonCuts{
		MinPt:     5,
		MaxAbsEta: 2.4,
		MaxDxy:    0.5,
		MaxDz:     1,
		MaxIso:    0.35,
		MaxSIP3D:  4,
		MediumID:  true,
	}
}

// DefaultPairCuts returns the dimuon candidate selection.
func DefaultPairCuts() PairCuts {
	return PairCuts{
		MinDeltaR:  0.02,
		WideLow:    12,
		WideHigh:   120,
		TightID:    true,
		NarrowLow:  80,
		NarrowHigh: 100,
	}
}

// DefaultJetCuts returns the jet selection.
func DefaultJetCuts() JetCuts {
	return JetCuts{
		MinPt:         30,
		MaxAbsEta:     2.4,
		JetID:         6,
		MuonDeltaRMax: 0.4,
	}
}

// DefaultEventCuts returns the event-level thresholds.
func DefaultEventCuts() EventCuts {
	return EventCuts{
		LeadingMuonPt:    20,
		SubleadingMuonPt: 10,
		MinMuons:         4,
		MinCandidates:    2,
	}
}

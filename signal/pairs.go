package signal

import (
	"go-hep.org/x/hep/fmom"

	"github.com/decibelcooper/hzzplot/nano"
)

// Dimuons holds the accepted opposite-sign muon pairs of each event.
type Dimuons struct {
	Offsets []int

	// Mu1 and Mu2 are indices into the batch muon collection; Mu1 precedes
	// Mu2 in the selected order.
	Mu1, Mu2 []int

	P4   []fmom.PxPyPzE
	Mass []float64
}

// Events returns the number of events.
func (d *Dimuons) Events() int { return len(d.Offsets) - 1 }

// Len returns the total number of pairs.
func (d *Dimuons) Len() int { return len(d.Mass) }

// Count returns the number of pairs of event evt.
func (d *Dimuons) Count(evt int) int { return d.Offsets[evt+1] - d.Offsets[evt] }

// BuildDimuons enumerates the unordered pairs of the selected muons of each
// event and keeps those passing the separation, charge and mass cuts.
// Pairs keep the enumeration order (i<j over the selection).
func BuildDimuons(m *nano.Muons, sel nano.View, cuts PairCuts) *Dimuons {
	d := &Dimuons{Offsets: make([]int, 1, sel.Events()+1)}
	for evt := 0; evt < sel.Events(); evt++ {
		idx := sel.Event(evt)
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				i, j := idx[a], idx[b]
				if m.Charge[i]*m.Charge[j] >= 0 {
					continue
				}

				p1, p2 := m.P4(i), m.P4(j)
				if fmom.DeltaR(&p1, &p2) <= cuts.MinDeltaR {
					continue
				}

				sum := fmom.Add(&p1, &p2)
				mass := sum.M()
				wide := mass > cuts.WideLow && mass < cuts.WideHigh &&
					(!cuts.TightID || (m.TightID[i] && m.TightID[j]))
				narrow := mass > cuts.NarrowLow && mass < cuts.NarrowHigh
				if !wide && !narrow {
					continue
				}

				d.Mu1 = append(d.Mu1, i)
				d.Mu2 = append(d.Mu2, j)
				d.P4 = append(d.P4, fmom.NewPxPyPzE(sum.Px(), sum.Py(), sum.Pz(), sum.E()))
				d.Mass = append(d.Mass, mass)
			}
		}
		d.Offsets = append(d.Offsets, len(d.Mass))
	}
	return d
}

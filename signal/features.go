package signal

import (
	"math"

	"go-hep.org/x/hep/fmom"

	"github.com/decibelcooper/hzzplot/hist"
	"github.com/decibelcooper/hzzplot/nano"
)

// DefaultJetPtEdges are the jet transverse momentum bin edges (GeV).
var DefaultJetPtEdges = []float64{30, 60, 90, 120, 150, 180, 210, 240, 300, 500}

// regionObjects are the objects of the events selected by one region.
type regionObjects struct {
	objs   *Objects
	events []int
	jets   nano.View
}

// Feature is a histogrammed quantity computed from the events of a region.
type Feature struct {
	Axis hist.Axis
	eval func(r *regionObjects) hist.Jagged
}

// Features returns the histogrammed quantities. jetPtEdges sets the
// binning of the jet transverse momentum.
func Features(jetPtEdges []float64) []Feature {
	return []Feature{
		{
			Axis: hist.Regular("higgs_mass", "m(H) [GeV]", 50, 10, 150),
			eval: higgs(func(p fmom.P4) float64 { return p.M() }),
		},
		{
			Axis: hist.Regular("higgs_pt", "p_T(H) [GeV]", 50, 0, 300),
			eval: higgs(func(p fmom.P4) float64 { return p.Pt() }),
		},
		{
			Axis: hist.Regular("z1_mass", "m(Z) [GeV]", 50, 10, 150),
			eval: candidate(func(c Candidates) []int { return c.Z1 }, func(p fmom.P4) float64 { return p.M() }),
		},
		{
			Axis: hist.Regular("z2_mass", "m(Z*) [GeV]", 50, 10, 150),
			eval: candidate(func(c Candidates) []int { return c.Z2 }, func(p fmom.P4) float64 { return p.M() }),
		},
		{
			Axis: hist.Regular("z1_pt", "p_T(Z) [GeV]", 50, 0, 300),
			eval: candidate(func(c Candidates) []int { return c.Z1 }, func(p fmom.P4) float64 { return p.Pt() }),
		},
		{
			Axis: hist.Regular("z2_pt", "p_T(Z*) [GeV]", 50, 0, 300),
			eval: candidate(func(c Candidates) []int { return c.Z2 }, func(p fmom.P4) float64 { return p.Pt() }),
		},
		{
			Axis: hist.Variable("jet_pt", "Jet p_T [GeV]", jetPtEdges),
			eval: jets(func(j *nano.Jets) []float64 { return j.Pt }),
		},
		{
			Axis: hist.Regular("jet_eta", "Jet eta", 50, -2.5, 2.5),
			eval: jets(func(j *nano.Jets) []float64 { return j.Eta }),
		},
		{
			Axis: hist.Regular("jet_phi", "Jet phi", 50, -math.Pi, math.Pi),
			eval: jets(func(j *nano.Jets) []float64 { return j.Phi }),
		},
	}
}

// candidate evaluates f on one dimuon candidate per event; events without
// the candidate yield NaN.
func candidate(which func(Candidates) []int, f func(fmom.P4) float64) func(r *regionObjects) hist.Jagged {
	return func(r *regionObjects) hist.Jagged {
		idx := which(r.objs.Candidates)
		out := make([]float64, len(r.events))
		for i, evt := range r.events {
			k := idx[evt]
			if k < 0 {
				out[i] = math.NaN()
				continue
			}
			p := r.objs.Dimuons.P4[k]
			out[i] = f(&p)
		}
		return hist.Scalar(out)
	}
}

// higgs evaluates f on the Z1+Z2 system; events lacking either candidate
// yield NaN.
func higgs(f func(fmom.P4) float64) func(r *regionObjects) hist.Jagged {
	return func(r *regionObjects) hist.Jagged {
		c := r.objs.Candidates
		out := make([]float64, len(r.events))
		for i, evt := range r.events {
			k1, k2 := c.Z1[evt], c.Z2[evt]
			if k1 < 0 || k2 < 0 {
				out[i] = math.NaN()
				continue
			}
			z1, z2 := r.objs.Dimuons.P4[k1], r.objs.Dimuons.P4[k2]
			out[i] = f(fmom.Add(&z1, &z2))
		}
		return hist.Scalar(out)
	}
}

// jets gathers one attribute of the region's tagged jets, per event.
func jets(attr func(*nano.Jets) []float64) func(r *regionObjects) hist.Jagged {
	return func(r *regionObjects) hist.Jagged {
		col := attr(&r.objs.Batch.Jets)
		values := make([]float64, len(r.jets.Index))
		for i, k := range r.jets.Index {
			values[i] = col[k]
		}
		return hist.Jagged{Offsets: r.jets.Offsets, Values: values}
	}
}

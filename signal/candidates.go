package signal

import (
	"math"
	"sort"
)

// Candidates holds, per event, the index of the on-shell (Z1) and off-shell
// (Z2) dimuon candidates into a Dimuons, or -1 when absent.
type Candidates struct {
	Z1, Z2 []int
}

// BestCandidates ranks the pairs of each event by |m - mass| and picks the
// closest as Z1 and the next one as Z2. Ties keep enumeration order.
func BestCandidates(d *Dimuons, mass float64) Candidates {
	n := d.Events()
	c := Candidates{Z1: make([]int, n), Z2: make([]int, n)}

	var order []int
	for evt := 0; evt < n; evt++ {
		c.Z1[evt], c.Z2[evt] = -1, -1

		beg, end := d.Offsets[evt], d.Offsets[evt+1]
		order = order[:0]
		for k := beg; k < end; k++ {
			order = append(order, k)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return math.Abs(d.Mass[order[a]]-mass) < math.Abs(d.Mass[order[b]]-mass)
		})

		if len(order) > 0 {
			c.Z1[evt] = order[0]
		}
		if len(order) > 1 {
			c.Z2[evt] = order[1]
		}
	}
	return c
}

package nano

// View is an ordered, per-event selection of particles from a parent
// collection. Index holds parent indices, grouped by Offsets.
type View struct {
	Offsets []int
	Index   []int
}

func identity(offsets []int) View {
	v := View{Offsets: append([]int(nil), offsets...)}
	if n := len(offsets); n > 0 {
		v.Index = make([]int, offsets[n-1])
		for i := range v.Index {
			v.Index[i] = i
		}
	}
	return v
}

// Events returns the number of events in the view.
func (v View) Events() int { return nevents(v.Offsets) }

// Len returns the total number of selected particles.
func (v View) Len() int { return len(v.Index) }

// Event returns the parent indices selected in event evt.
func (v View) Event(evt int) []int {
	return v.Index[v.Offsets[evt]:v.Offsets[evt+1]]
}

// Count returns the number of particles selected in event evt.
func (v View) Count(evt int) int { return v.Offsets[evt+1] - v.Offsets[evt] }

// Counts returns the per-event multiplicities.
func (v View) Counts() []int {
	n := make([]int, v.Events())
	for evt := range n {
		n[evt] = v.Count(evt)
	}
	return n
}

// At returns the parent index of the k-th selected particle of event evt.
// ok is false when the event has fewer than k+1 particles.
func (v View) At(evt, k int) (idx int, ok bool) {
	if k < 0 || k >= v.Count(evt) {
		return -1, false
	}
	return v.Index[v.Offsets[evt]+k], true
}

// Filter returns the particles of v for which keep(parentIndex) holds,
// preserving per-event grouping and order.
func (v View) Filter(keep func(i int) bool) View {
	return v.FilterEvents(func(_, i int) bool { return keep(i) })
}

// FilterEvents is like Filter but also hands the event number to keep.
func (v View) FilterEvents(keep func(evt, i int) bool) View {
	out := View{
		Offsets: make([]int, 1, len(v.Offsets)+1),
		Index:   make([]int, 0, len(v.Index)),
	}
	for evt := 0; evt < v.Events(); evt++ {
		for _, i := range v.Event(evt) {
			if keep(evt, i) {
				out.Index = append(out.Index, i)
			}
		}
		out.Offsets = append(out.Offsets, len(out.Index))
	}
	return out
}

// Mask returns the events of v for which sel[evt] is true, dropping the
// others. The result spans only the selected events.
func (v View) Mask(sel []bool) View {
	out := View{Offsets: []int{0}}
	for evt := 0; evt < v.Events(); evt++ {
		if !sel[evt] {
			continue
		}
		out.Index = append(out.Index, v.Event(evt)...)
		out.Offsets = append(out.Offsets, len(out.Index))
	}
	return out
}

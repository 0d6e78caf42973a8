package hist

import "math"

// Jagged holds one variable-length list of values per event.
type Jagged struct {
	Offsets []int
	Values  []float64
}

// Scalar wraps one value per event as a Jagged of unit multiplicity.
func Scalar(values []float64) Jagged {
	offsets := make([]int, len(values)+1)
	for i := range values {
		offsets[i+1] = i + 1
	}
	return Jagged{Offsets: offsets, Values: values}
}

// Events returns the number of events.
func (j Jagged) Events() int {
	if len(j.Offsets) == 0 {
		return 0
	}
	return len(j.Offsets) - 1
}

// Flatten returns one value per (event, element) and the number of values
// each event contributed. An event without elements contributes a single
// NaN, so every event is represented at least once.
func Flatten(j Jagged) (values []float64, counts []int) {
	counts = make([]int, j.Events())
	values = make([]float64, 0, len(j.Values)+j.Events())
	for evt := range counts {
		beg, end := j.Offsets[evt], j.Offsets[evt+1]
		if beg == end {
			values = append(values, math.NaN())
			counts[evt] = 1
			continue
		}
		values = append(values, j.Values[beg:end]...)
		counts[evt] = end - beg
	}
	return values, counts
}

// RepeatByCount repeats weights[i] counts[i] times, aligning per-event
// weights with flattened per-element values.
func RepeatByCount(weights []float64, counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	out := make([]float64, 0, n)
	for i, c := range counts {
		for k := 0; k < c; k++ {
			out = append(out, weights[i])
		}
	}
	return out
}

package hzzplot

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks places labelled major ticks on round values and unlabelled
// minor ticks between them.
type PreciseTicks struct {
	NSuggestedTicks int
}

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if !(max > min) || math.IsInf(max-min, 0) {
		return nil
	}
	n := t.NSuggestedTicks
	if n < 2 {
		n = 4
	}

	major, mult := majorStep(max-min, n)

	var ticks []plot.Tick
	prec := labelPrecision(math.Max(math.Abs(min), math.Abs(max)), major)
	for val := math.Floor(min/major) * major; val <= max; val += major {
		if val < min {
			continue
		}
		v := round(val, prec)
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', -1, 64)})
	}

	minor := major / 2
	switch mult {
	case 3, 6:
		minor = major / 3
	case 5:
		minor = major / 5
	}
	for val := math.Floor(min/minor) * minor; val <= max; val += minor {
		if val < min || hasTick(ticks, val, minor/100) {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: val})
	}
	return ticks
}

// majorStep returns the spacing of about n major ticks over span, as
// mult times a power of ten.
func majorStep(span float64, n int) (step float64, mult int) {
	tens := math.Pow10(int(math.Floor(math.Log10(span))))
	for span/tens < float64(n-1) {
		tens /= 10
	}

	mult = int(span / tens / float64(n-1))
	switch mult {
	case 0:
		mult = 1
	case 7:
		mult = 6
	case 9:
		mult = 8
	}
	return float64(mult) * tens, mult
}

func labelPrecision(magnitude, step float64) int {
	if magnitude == 0 {
		return 0
	}
	return int(math.Ceil(math.Log10(magnitude)) - math.Floor(math.Log10(step)))
}

func hasTick(ticks []plot.Tick, v, tol float64) bool {
	for _, t := range ticks {
		if math.Abs(t.Value-v) <= tol {
			return true
		}
	}
	return false
}

// round rounds x to prec significant decimals relative to the major step.
func round(x float64, prec int) float64 {
	if x == 0 {
		return 0
	}
	if prec >= 0 && x == math.Trunc(x) {
		return x
	}
	pow := math.Pow10(prec)
	scaled := x * pow
	if math.IsInf(scaled, 0) {
		return x
	}
	if x < 0 {
		scaled = math.Ceil(scaled - 0.5)
	} else {
		scaled = math.Floor(scaled + 0.5)
	}
	if scaled == 0 {
		return 0
	}
	return scaled / pow
}

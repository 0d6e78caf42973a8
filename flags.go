// Package hzzplot holds the command-line and plotting helpers shared by the
// hzz_signal, hzz_plot and make_filesets commands.
package hzzplot

import (
	"fmt"
	"strconv"
	"strings"
)

// FloatArrayFlags is a flag.Value collecting floats. It can be repeated
// (-edge 30 -edge 60) or given a comma-separated list (-edges 30,60,90).
// The first Set replaces the default values.
type FloatArrayFlags struct {
	Array   []float64
	beenSet bool
}

func (f *FloatArrayFlags) Set(valueStr string) error {
	var values []float64
	for _, s := range strings.Split(valueStr, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return fmt.Errorf("no value in %q", valueStr)
	}

	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}
	f.Array = append(f.Array, values...)
	return nil
}

func (f *FloatArrayFlags) String() string {
	if f == nil {
		return ""
	}
	s := make([]string, len(f.Array))
	for i, v := range f.Array {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, ",")
}

// IsSet reports whether the flag was given on the command line.
func (f *FloatArrayFlags) IsSet() bool { return f.beenSet }

// Edges returns the values as histogram bin edges, checking that there are
// at least two and that they increase.
func (f *FloatArrayFlags) Edges() ([]float64, error) {
	if len(f.Array) < 2 {
		return nil, fmt.Errorf("need at least 2 bin edges, got %d", len(f.Array))
	}
	for i := 1; i < len(f.Array); i++ {
		if f.Array[i] <= f.Array[i-1] {
			return nil, fmt.Errorf("bin edges must increase: %v", f.Array)
		}
	}
	return append([]float64(nil), f.Array...), nil
}

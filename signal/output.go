package signal

import (
	"fmt"
	"maps"

	"github.com/decibelcooper/hzzplot/hist"
)

// Metadata summarizes a processed batch.
type Metadata struct {
	SumW    float64 `json:"sumw"`
	NEvents int64   `json:"nevents"`

	SelectedEvents map[string]int64   `json:"selected_events"`
	SelectedSumW   map[string]float64 `json:"selected_sumw"`
}

func (m *Metadata) merge(o Metadata) {
	m.SumW += o.SumW
	m.NEvents += o.NEvents
	if m.SelectedEvents == nil {
		m.SelectedEvents = make(map[string]int64)
	}
	if m.SelectedSumW == nil {
		m.SelectedSumW = make(map[string]float64)
	}
	for k, v := range o.SelectedEvents {
		m.SelectedEvents[k] += v
	}
	for k, v := range o.SelectedSumW {
		m.SelectedSumW[k] += v
	}
}

// Result is the output of one dataset.
type Result struct {
	Histograms *hist.Set
	Metadata   Metadata
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	return &Result{
		Histograms: r.Histograms.Clone(),
		Metadata: Metadata{
			SumW:           r.Metadata.SumW,
			NEvents:        r.Metadata.NEvents,
			SelectedEvents: maps.Clone(r.Metadata.SelectedEvents),
			SelectedSumW:   maps.Clone(r.Metadata.SelectedSumW),
		},
	}
}

// Merge adds o into r.
func (r *Result) Merge(o *Result) error {
	if err := r.Histograms.Merge(o.Histograms); err != nil {
		return err
	}
	r.Metadata.merge(o.Metadata)
	return nil
}

// Output maps dataset names to their results.
type Output map[string]*Result

// Merge adds o into out. Results only present in o are copied, so o stays
// usable. Merging is associative and commutative.
func (out Output) Merge(o Output) error {
	for ds, r := range o {
		cur, ok := out[ds]
		if !ok {
			out[ds] = r.Clone()
			continue
		}
		if err := cur.Merge(r); err != nil {
			return fmt.Errorf("signal: could not merge dataset %q: %w", ds, err)
		}
	}
	return nil
}

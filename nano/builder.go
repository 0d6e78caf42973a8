package nano

// Event is a row-oriented event, used to assemble batches.
type Event struct {
	GenWeight float64
	Muons     []Muon
	Jets      []Jet
}

// Builder assembles a Batch event by event.
type Builder struct {
	batch Batch
}

// NewBuilder returns a builder for a batch of the named dataset.
// Generator weights are recorded only when simulated is true.
func NewBuilder(dataset string, simulated bool) *Builder {
	b := &Builder{
		batch: Batch{
			Dataset: dataset,
			Muons:   Muons{Offsets: []int{0}},
			Jets:    Jets{Offsets: []int{0}},
		},
	}
	if simulated {
		b.batch.GenWeight = []float64{}
	}
	return b
}

// Add appends one event to the batch.
func (b *Builder) Add(evt Event) {
	for _, mu := range evt.Muons {
		b.batch.Muons.append(mu)
	}
	b.batch.Muons.Offsets = append(b.batch.Muons.Offsets, b.batch.Muons.Len())

	for _, jet := range evt.Jets {
		b.batch.Jets.append(jet)
	}
	b.batch.Jets.Offsets = append(b.batch.Jets.Offsets, b.batch.Jets.Len())

	if b.batch.GenWeight != nil {
		b.batch.GenWeight = append(b.batch.GenWeight, evt.GenWeight)
	}
}

// Len returns the number of events added so far.
func (b *Builder) Len() int { return b.batch.Len() }

// Batch returns the assembled batch. The builder must not be used afterwards.
func (b *Builder) Batch() *Batch {
	out := b.batch
	b.batch = Batch{}
	return &out
}

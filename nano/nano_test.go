package nano

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBatch(t *testing.T, simulated bool) *Batch {
	t.Helper()

	bld := NewBuilder("test", simulated)
	bld.Add(Event{
		GenWeight: 0.5,
		Muons: []Muon{
			{Pt: 30, Eta: 0.1, Charge: 1},
			{Pt: 12, Eta: -1.2, Charge: -1},
		},
		Jets: []Jet{{Pt: 45, JetID: 6}},
	})
	bld.Add(Event{GenWeight: 2})
	bld.Add(Event{
		GenWeight: -1,
		Muons:     []Muon{{Pt: 7, Charge: -1}},
	})
	batch := bld.Batch()
	require.NoError(t, batch.Validate())
	return batch
}

func TestBuilderLayout(t *testing.T) {
	batch := makeBatch(t, true)

	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, []int{0, 2, 2, 3}, batch.Muons.Offsets)
	assert.Equal(t, []int{0, 1, 1, 1}, batch.Jets.Offsets)
	assert.Equal(t, []float64{30, 12, 7}, batch.Muons.Pt)
	assert.True(t, batch.IsSimulated())
	assert.Equal(t, []float64{0.5, 2, -1}, batch.Weights())
}

func TestWeightsRealData(t *testing.T) {
	batch := makeBatch(t, false)

	assert.False(t, batch.IsSimulated())
	assert.Equal(t, []float64{1, 1, 1}, batch.Weights())
}

func TestViewFilterKeepsGrouping(t *testing.T) {
	batch := makeBatch(t, false)

	all := batch.Muons.All()
	assert.Equal(t, []int{2, 0, 1}, all.Counts())

	hard := all.Filter(func(i int) bool { return batch.Muons.Pt[i] > 10 })
	assert.Equal(t, []int{0, 2, 2, 2}, hard.Offsets)
	assert.Equal(t, []int{0, 1}, hard.Event(0))
	assert.Empty(t, hard.Event(2))

	again := hard.Filter(func(i int) bool { return batch.Muons.Pt[i] > 10 })
	assert.Equal(t, hard, again)
}

func TestViewAtOutOfRange(t *testing.T) {
	batch := makeBatch(t, false)
	all := batch.Muons.All()

	idx, ok := all.At(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = all.At(1, 0)
	assert.False(t, ok)
	_, ok = all.At(2, 1)
	assert.False(t, ok)
	_, ok = all.At(2, -1)
	assert.False(t, ok)
}

func TestViewMask(t *testing.T) {
	batch := makeBatch(t, false)

	v := batch.Muons.All().Mask([]bool{false, true, true})
	assert.Equal(t, 2, v.Events())
	assert.Equal(t, []int{0, 0, 1}, v.Offsets)
	assert.Equal(t, []int{2}, v.Index)
}

func TestP4(t *testing.T) {
	batch := makeBatch(t, false)

	p := batch.Muons.P4(0)
	assert.InDelta(t, 30, p.Pt(), 1e-12)
	assert.InDelta(t, 0.1, p.Eta(), 1e-12)
	assert.InDelta(t, 30*math.Sinh(0.1), p.Pz(), 1e-9)
}

func TestValidateSchema(t *testing.T) {
	batch := makeBatch(t, true)
	batch.Muons.TightID = batch.Muons.TightID[:1]
	err := batch.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	batch = makeBatch(t, true)
	batch.GenWeight = batch.GenWeight[:2]
	assert.ErrorIs(t, batch.Validate(), ErrSchema)

	batch = makeBatch(t, true)
	batch.Jets.Offsets = batch.Jets.Offsets[:2]
	assert.ErrorIs(t, batch.Validate(), ErrSchema)
}

func TestSlice(t *testing.T) {
	batch := makeBatch(t, true)

	tail := batch.Slice(1, 3)
	require.NoError(t, tail.Validate())
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, []float64{2, -1}, tail.GenWeight)
	assert.Equal(t, []int{0, 0, 1}, tail.Muons.Offsets)
	assert.Equal(t, batch.Muons.At(2), tail.Muons.At(0))

	empty := batch.Slice(1, 1)
	require.NoError(t, empty.Validate())
	assert.Equal(t, 0, empty.Len())

	assert.Panics(t, func() { batch.Slice(2, 4) })
}

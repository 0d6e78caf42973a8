package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/hzzplot/dataset"
	"github.com/decibelcooper/hzzplot/hist"
	"github.com/decibelcooper/hzzplot/logger"
	"github.com/decibelcooper/hzzplot/metrics"
	"github.com/decibelcooper/hzzplot/nano"
	"github.com/decibelcooper/hzzplot/signal"
)

func TestMain(m *testing.M) {
	if err := logger.InitWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func mu(pt, phi float64, charge int32) nano.Muon {
	return nano.Muon{
		Pt: pt, Phi: phi, Mass: 0.1057, Charge: charge,
		Dxy: 0.01, Dz: 0.01, PFRelIso04All: 0.1, SIP3D: 1,
		MediumID: true, TightID: true,
	}
}

// signalEvent passes the deepjet region.
func signalEvent(w float64) nano.Event {
	return nano.Event{
		GenWeight: w,
		Muons: []nano.Muon{
			mu(45, 0, +1), mu(45, math.Pi, -1), mu(20, math.Pi/2, +1), mu(20, -math.Pi/2, +1),
		},
		Jets: []nano.Jet{{Pt: 50, Eta: 1, Phi: 0.8, Mass: 5, JetID: 6, DeepFlavCvB: 0.5, DeepFlavCvL: 0.5}},
	}
}

func makeFile(n int, w float64) *nano.Batch {
	bld := nano.NewBuilder("", true)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			bld.Add(signalEvent(w))
		} else {
			bld.Add(nano.Event{GenWeight: w})
		}
	}
	return bld.Batch()
}

type memReader struct {
	batch   *nano.Batch
	dataset string
	fail    bool
}

func (r *memReader) Entries() int64 { return int64(r.batch.Len()) }

func (r *memReader) Read(beg, end int64) (*nano.Batch, error) {
	if r.fail {
		return nil, fmt.Errorf("%w: corrupted basket", nano.ErrSchema)
	}
	b := r.batch.Slice(int(beg), int(end))
	b.Dataset = r.dataset
	return b, nil
}

func (r *memReader) Close() error { return nil }

type memOpener struct {
	files  map[string]*nano.Batch
	broken map[string]bool
	reads  atomic.Int64
}

func (o *memOpener) Open(fname, key, ds string) (ChunkReader, error) {
	b, ok := o.files[fname]
	if !ok {
		return nil, fmt.Errorf("no such file %q", fname)
	}
	o.reads.Add(1)
	return &memReader{batch: b, dataset: ds, fail: o.broken[fname]}, nil
}

func newProcessor(t *testing.T) *signal.Processor {
	t.Helper()
	p, err := signal.NewProcessor(signal.DefaultOptions())
	require.NoError(t, err)
	return p
}

func TestChunks(t *testing.T) {
	op := &memOpener{files: map[string]*nano.Batch{
		"a.root": makeFile(25, 1),
		"b.root": makeFile(10, 1),
		"c.root": makeFile(0, 1),
	}}
	r := New(newProcessor(t), WithOpener(op), WithStepSize(10))

	chunks, err := r.Chunks(context.Background(), dataset.Fileset{
		"ZZ_2": {"b.root"},
		"ZZ_1": {"a.root", "c.root"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{Dataset: "ZZ_1", File: "a.root", Beg: 0, End: 10},
		{Dataset: "ZZ_1", File: "a.root", Beg: 10, End: 20},
		{Dataset: "ZZ_1", File: "a.root", Beg: 20, End: 25},
		{Dataset: "ZZ_2", File: "b.root", Beg: 0, End: 10},
	}, chunks)

	r = New(newProcessor(t), WithOpener(op), WithStepSize(100), WithMaxFiles(1))
	chunks, err = r.Chunks(context.Background(), dataset.Fileset{"ZZ": {"b.root", "a.root"}})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	_, err = r.Chunks(context.Background(), dataset.Fileset{"ZZ": {"missing.root"}})
	assert.Error(t, err)
}

func TestRunMatchesSingleBatch(t *testing.T) {
	files := map[string]*nano.Batch{
		"a.root": makeFile(37, 0.5),
		"b.root": makeFile(12, 2),
	}

	want := signal.Output{}
	p := newProcessor(t)
	for _, name := range []string{"a.root", "b.root"} {
		b := files[name].Slice(0, files[name].Len())
		b.Dataset = "ZZTo4L"
		out, err := p.Process(b)
		require.NoError(t, err)
		require.NoError(t, want.Merge(out))
	}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			m := metrics.NewManager()
			r := New(p,
				WithOpener(&memOpener{files: files}),
				WithWorkers(workers),
				WithStepSize(5),
				WithMetrics(m),
				WithProgress(io.Discard),
			)
			got, err := r.Run(context.Background(), dataset.Fileset{"ZZTo4L": {"a.root", "b.root"}})
			require.NoError(t, err)

			w, g := want["ZZTo4L"], got["ZZTo4L"]
			require.NotNil(t, g)
			assert.Equal(t, int64(49), g.Metadata.NEvents)
			assert.InDelta(t, 37*0.5+12*2, g.Metadata.SumW, 1e-9)
			assert.Equal(t, w.Metadata.SelectedEvents, g.Metadata.SelectedEvents)
			assert.InDelta(t, 19*0.5+6*2, g.Metadata.SelectedSumW["deepjet"], 1e-9)

			for _, name := range w.Histograms.Names() {
				for _, region := range w.Histograms.Get(name).Regions() {
					assert.Equal(t, w.Histograms.Get(name).Entries(region), g.Histograms.Get(name).Entries(region))
					assert.InDelta(t, w.Histograms.Get(name).SumW(region), g.Histograms.Get(name).SumW(region), 1e-9)
				}
			}

			chunks, err := testutil.GatherAndCount(m.Registry(), "hzz_signal_chunks_processed_total")
			require.NoError(t, err)
			assert.Equal(t, 1, chunks)
		})
	}
}

func TestRunEmptyFileset(t *testing.T) {
	r := New(newProcessor(t), WithOpener(&memOpener{files: map[string]*nano.Batch{"e.root": makeFile(0, 1)}}))
	out, err := r.Run(context.Background(), dataset.Fileset{"Empty": {"e.root"}})
	require.NoError(t, err)
	require.Contains(t, out, "Empty")
	assert.Zero(t, out["Empty"].Metadata.NEvents)
}

func TestRunFailingChunk(t *testing.T) {
	op := &memOpener{
		files:  map[string]*nano.Batch{"a.root": makeFile(40, 1), "bad.root": makeFile(40, 1)},
		broken: map[string]bool{"bad.root": true},
	}
	m := metrics.NewManager()
	r := New(newProcessor(t), WithOpener(op), WithWorkers(2), WithStepSize(10), WithMetrics(m))

	out, err := r.Run(context.Background(), dataset.Fileset{"ZZ": {"a.root", "bad.root"}})
	assert.ErrorIs(t, err, nano.ErrSchema)
	assert.Nil(t, out)

	failed, err := testutil.GatherAndCount(m.Registry(), "hzz_signal_chunks_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(newProcessor(t), WithOpener(&memOpener{files: map[string]*nano.Batch{"a.root": makeFile(4, 1)}}))
	_, err := r.Run(ctx, dataset.Fileset{"ZZ": {"a.root"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSink(t *testing.T) {
	p := newProcessor(t)
	b := makeFile(6, 1.5)
	b.Dataset = "ZZTo4L"
	out, err := p.Process(b)
	require.NoError(t, err)
	res := out["ZZTo4L"]

	meta := NewMetadata(res, []string{"a.root"}, 1500*time.Millisecond, 6.115, "run-1")
	assert.Equal(t, "1.5s", meta.Walltime)
	assert.Equal(t, int64(6), meta.NEvents)
	assert.InDelta(t, 9, meta.SumW, 1e-9)

	sink := FileSink{Dir: t.TempDir() + "/out"}
	require.NoError(t, sink.Save(context.Background(), "ZZTo4L", res, meta))

	yoda, metaPath := sink.Paths("ZZTo4L")
	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, []string{"a.root"}, got.Fileset)
	assert.InDelta(t, 6.115, got.XSec, 1e-12)
	assert.Equal(t, int64(3), got.SelectedEvents["deepjet"])

	f, err := os.Open(yoda)
	require.NoError(t, err)
	defer f.Close()
	hs, err := hist.ReadYODA(f)
	require.NoError(t, err)
	require.Contains(t, hs, "jet_pt")
	assert.InDelta(t, 4.5, hs["jet_pt"]["deepjet"].SumW(), 1e-9)
}

func TestNewMetadataNaN(t *testing.T) {
	set := hist.NewSet(hist.Regular("z2_mass", "m", 10, 0, 100))
	require.NoError(t, set.Fill("z2_mass", "r", []float64{math.NaN(), 50, math.NaN()}, []float64{1, 1, 1}))

	meta := NewMetadata(&signal.Result{Histograms: set}, nil, time.Second, 0, "id")
	assert.Equal(t, map[string]map[string]int64{"z2_mass": {"r": 2}}, meta.NaN)
}

func TestFileSinkError(t *testing.T) {
	dir := t.TempDir()
	blocker := dir + "/file"
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	sink := FileSink{Dir: blocker + "/sub"}
	err := sink.Save(context.Background(), "x", &signal.Result{Histograms: hist.NewSet()}, Metadata{})
	assert.Error(t, err)
}

// Package runner executes the signal processor over a fileset: files are
// split into chunks of events, chunks are processed by a bounded pool of
// workers and their outputs merged.
package runner

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/decibelcooper/hzzplot/dataset"
	"github.com/decibelcooper/hzzplot/logger"
	"github.com/decibelcooper/hzzplot/metrics"
	"github.com/decibelcooper/hzzplot/nano"
	"github.com/decibelcooper/hzzplot/signal"
)

// DefaultStepSize is the chunk size used when none is configured.
const DefaultStepSize = 100_000

// ChunkReader reads ranges of events from one file.
type ChunkReader interface {
	Entries() int64
	Read(beg, end int64) (*nano.Batch, error)
	Close() error
}

// Opener opens the event tree key of a file, labelling its batches with
// the dataset name.
type Opener interface {
	Open(fname, key, dataset string) (ChunkReader, error)
}

// NanoOpener opens NanoAOD files with nano.Open.
type NanoOpener struct{}

func (NanoOpener) Open(fname, key, dataset string) (ChunkReader, error) {
	r, err := nano.Open(fname, key, dataset)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Chunk is a range of events of one file.
type Chunk struct {
	Dataset  string
	File     string
	Beg, End int64
}

func (c Chunk) String() string { return fmt.Sprintf("%s[%d:%d]", c.File, c.Beg, c.End) }

// Runner processes filesets.
type Runner struct {
	proc     *signal.Processor
	open     Opener
	workers  int
	stepsize int64
	tree     string
	nfiles   int
	progress io.Writer

	log     logger.Logger
	metrics *metrics.Manager
}

// Option configures a Runner.
type Option func(*Runner)

// WithOpener sets how files are opened. It defaults to NanoOpener.
func WithOpener(o Opener) Option { return func(r *Runner) { r.open = o } }

// WithWorkers sets the number of chunks processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithStepSize sets the number of events per chunk.
func WithStepSize(n int64) Option {
	return func(r *Runner) {
		if n > 0 {
			r.stepsize = n
		}
	}
}

// WithTree sets the name of the event tree.
func WithTree(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.tree = name
		}
	}
}

// WithMaxFiles limits the number of files processed per fileset key.
// Non-positive values process every file.
func WithMaxFiles(n int) Option { return func(r *Runner) { r.nfiles = n } }

// WithProgress draws a progress bar of the processed chunks on w.
func WithProgress(w io.Writer) Option { return func(r *Runner) { r.progress = w } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithMetrics records chunk metrics on m.
func WithMetrics(m *metrics.Manager) Option { return func(r *Runner) { r.metrics = m } }

// New returns a runner of proc.
func New(proc *signal.Processor, opts ...Option) *Runner {
	r := &Runner{
		proc:     proc,
		open:     NanoOpener{},
		workers:  1,
		stepsize: DefaultStepSize,
		tree:     nano.DefaultTree,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("runner")
	}
	return r
}

// Chunks splits the files of a fileset into chunks of at most stepsize
// events, in key then file order. Empty files yield no chunk.
func (r *Runner) Chunks(ctx context.Context, fs dataset.Fileset) ([]Chunk, error) {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var chunks []Chunk
	for _, key := range keys {
		files := fs[key]
		if r.nfiles > 0 && len(files) > r.nfiles {
			files = files[:r.nfiles]
		}
		for _, fname := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := r.open.Open(fname, r.tree, key)
			if err != nil {
				return nil, err
			}
			n := f.Entries()
			if err := f.Close(); err != nil {
				return nil, fmt.Errorf("runner: could not close %q: %w", fname, err)
			}
			for beg := int64(0); beg < n; beg += r.stepsize {
				chunks = append(chunks, Chunk{
					Dataset: key,
					File:    fname,
					Beg:     beg,
					End:     min(beg+r.stepsize, n),
				})
			}
		}
	}
	return chunks, nil
}

// Run processes every chunk of the fileset and returns the merged output.
// The first failing chunk cancels the others and its error is returned.
func (r *Runner) Run(ctx context.Context, fs dataset.Fileset) (signal.Output, error) {
	chunks, err := r.Chunks(ctx, fs)
	if err != nil {
		return nil, err
	}
	r.log.Info(ctx, "starting run",
		logger.Int("filesets", len(fs)),
		logger.Int("chunks", len(chunks)),
		logger.Int("workers", r.workers),
		logger.Int64("stepsize", r.stepsize),
	)
	if r.metrics != nil {
		r.metrics.SetWorkers(r.workers)
	}

	var bar *progressbar.ProgressBar
	if r.progress != nil {
		bar = progressbar.NewOptions(len(chunks),
			progressbar.OptionSetWriter(r.progress),
			progressbar.OptionSetDescription("processing"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var (
		mu  sync.Mutex
		out = make(signal.Output)
	)
	// every key is present in the output, even without events
	for key := range fs {
		out[key] = &signal.Result{Histograms: r.proc.Histograms()}
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(r.workers)
	for _, c := range chunks {
		c := c
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.process(ctx, c)
			if err != nil {
				if r.metrics != nil {
					r.metrics.ChunkFailed(c.Dataset)
				}
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err := out.Merge(res); err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return out, nil
}

func (r *Runner) process(ctx context.Context, c Chunk) (signal.Output, error) {
	start := time.Now()

	f, err := r.open.Open(c.File, r.tree, c.Dataset)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	batch, err := f.Read(c.Beg, c.End)
	if err != nil {
		return nil, fmt.Errorf("runner: could not read %v: %w", c, err)
	}
	// batches are keyed by fileset key
	batch.Dataset = c.Dataset

	out, err := r.proc.Process(batch)
	if err != nil {
		return nil, fmt.Errorf("runner: could not process %v: %w", c, err)
	}

	elapsed := time.Since(start)
	res := out[c.Dataset]
	r.log.Debug(ctx, "chunk done",
		logger.String("chunk", c.String()),
		logger.Int64("events", res.Metadata.NEvents),
		logger.Duration("elapsed", elapsed),
	)
	if r.metrics != nil {
		r.metrics.ObserveChunk(c.Dataset, res.Metadata.NEvents, res.Metadata.SumW, elapsed)
		for region, n := range res.Metadata.SelectedEvents {
			r.metrics.ObserveSelection(c.Dataset, region, n)
		}
	}
	return out, nil
}

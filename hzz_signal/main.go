package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/decibelcooper/hzzplot"
	"github.com/decibelcooper/hzzplot/config"
	"github.com/decibelcooper/hzzplot/dataset"
	"github.com/decibelcooper/hzzplot/logger"
	"github.com/decibelcooper/hzzplot/metrics"
	"github.com/decibelcooper/hzzplot/runner"
	hzz "github.com/decibelcooper/hzzplot/signal"
)

func printUsage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), `Usage: `+fs.Name()+` [options] <fileset.json>

Runs the H->ZZ*->4mu plus charm-jet selection over a fileset and writes
<key>.yoda and <key>_metadata.json for every fileset key.

options:
`,
		)
		fs.PrintDefaults()
	}
}

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[0], os.Args[1:])
	stop()

	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		logger.Named("hzz_signal").Error(ctx, "run failed", logger.Error(err))
		os.Exit(1)
	}
}

// execute parses args and runs the analysis. Deferred cleanups, including
// flushing profiles, have run by the time it returns.
func execute(ctx context.Context, name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		cfgPath  = fs.String("config", "", "YAML run configuration (defaults to $HZZ_CONFIG)")
		catalog  = fs.String("catalog", "", "dataset catalog directory, used for stepsize, tree and cross section")
		year     = fs.String("year", "2022EE", "data-taking year of the fileset")
		executor = fs.String("executor", "", "executor {iterative, futures}")
		workers  = fs.Int("workers", 0, "number of workers of the futures executor")
		stepsize = fs.Int64("stepsize", 0, "events per chunk")
		nfiles   = fs.Int("nfiles", -1, "number of files processed per fileset key, -1 for all")
		output   = fs.String("output", "", "output directory")
		level    = fs.String("log-level", "", "log level {debug, info, warn, error}")
		promFile = fs.String("metrics", "", "Prometheus textfile written at the end of the run")
		prof     = fs.String("profile", "", "profile the run {cpu, mem}")
		progress = fs.Bool("progress", true, "draw a progress bar on stderr")
		edges    hzzplot.FloatArrayFlags
	)
	fs.Var(&edges, "jet-pt-edges", "jet pt bin edges, repeated or comma-separated")
	fs.Usage = printUsage(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return flag.ErrHelp
	}

	log := logger.Named("hzz_signal")

	cfg, err := config.Load(ctx, *cfgPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "executor":
			cfg.Executor = *executor
		case "workers":
			cfg.Workers = *workers
		case "stepsize":
			cfg.StepSize = *stepsize
		case "output":
			cfg.OutputDir = *output
		case "log-level":
			cfg.LogLevel = *level
		case "metrics":
			cfg.MetricsFile = *promFile
		case "jet-pt-edges":
			cfg.JetPtEdges = edges.Array
		}
	})
	if edges.IsSet() {
		if _, err := edges.Edges(); err != nil {
			return fmt.Errorf("invalid -jet-pt-edges: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.OutputDir), profile.Quiet, profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(cfg.OutputDir), profile.Quiet, profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *prof)
	}

	return run(ctx, log, cfg, fs.Arg(0), *catalog, *year, *nfiles, *progress)
}

func run(ctx context.Context, log logger.Logger, cfg *config.Config, fsPath, catalogDir, year string, nfiles int, progress bool) error {
	fs, err := dataset.ReadFileset(fsPath)
	if err != nil {
		return err
	}
	key := dataset.Key(fsPath)

	runID := uuid.New().String()
	log = log.With(logger.String("run_id", runID), logger.String("fileset", key))

	stepsize := int64(runner.DefaultStepSize)
	tree := ""
	xsec := 0.0
	if catalogDir != "" {
		cat, err := dataset.LoadCatalog(catalogDir)
		if err != nil {
			return err
		}
		ds, err := cat.Lookup(key, year)
		if err != nil {
			return err
		}
		stepsize, tree, xsec = ds.StepSize, ds.Key, ds.XSec
	}
	if cfg.StepSize > 0 {
		stepsize = cfg.StepSize
	}

	proc, err := hzz.NewProcessor(cfg.Options())
	if err != nil {
		return err
	}

	m := metrics.NewManager(metrics.WithConstLabels(prometheus.Labels{"run_id": runID}))
	opts := []runner.Option{
		runner.WithWorkers(cfg.Concurrency()),
		runner.WithStepSize(stepsize),
		runner.WithTree(tree),
		runner.WithMaxFiles(nfiles),
		runner.WithLogger(log),
		runner.WithMetrics(m),
	}
	if progress {
		opts = append(opts, runner.WithProgress(os.Stderr))
	}

	start := time.Now()
	out, err := runner.New(proc, opts...).Run(ctx, fs)
	if err != nil {
		return err
	}
	walltime := time.Since(start)

	files := runner.FileSink{Dir: cfg.OutputDir}
	sinks := []runner.Sink{files}
	if cfg.S3.Bucket != "" {
		s3, err := runner.NewS3Sink(ctx, cfg.S3)
		if err != nil {
			return err
		}
		sinks = append(sinks, s3)
	}

	for k, res := range out {
		meta := runner.NewMetadata(res, fs[k], walltime, xsec, runID)
		for _, sink := range sinks {
			if err := sink.Save(ctx, k, res, meta); err != nil {
				return err
			}
		}
		yoda, _ := files.Paths(k)
		log.Info(ctx, "output written",
			logger.String("key", k),
			logger.String("histograms", yoda),
			logger.Int64("nevents", res.Metadata.NEvents),
			logger.Float64("sumw", res.Metadata.SumW),
			logger.Duration("walltime", walltime),
		)
	}

	if cfg.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.MetricsFile), 0o755); err != nil {
			return err
		}
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

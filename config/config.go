// Package config holds the run configuration of the hzz_signal command.
//
// Values are layered from low to high precedence: the defaults of New, an
// optional YAML file, then HZZ_-prefixed environment variables. Command-line
// flags are applied last by the commands themselves.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/decibelcooper/hzzplot/runner"
	"github.com/decibelcooper/hzzplot/signal"
)

// Executors.
const (
	Iterative = "iterative"
	Futures   = "futures"
)

// Config is the configuration of an analysis run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Executor is "iterative" (one worker) or "futures" (Workers workers).
	Executor string `koanf:"executor"`
	Workers  int    `koanf:"workers"`

	// StepSize overrides the per-dataset chunk size when positive.
	StepSize int64 `koanf:"stepsize"`

	OutputDir string `koanf:"output_dir"`

	// MetricsFile is the Prometheus textfile written at the end of a run.
	// Empty disables it.
	MetricsFile string `koanf:"metrics_file"`

	// S3 additionally uploads the outputs when S3.Bucket is set.
	S3 runner.S3Config `koanf:"s3"`

	Muon  signal.MuonCuts  `koanf:"muon"`
	Pair  signal.PairCuts  `koanf:"pair"`
	Jet   signal.JetCuts   `koanf:"jet"`
	Event signal.EventCuts `koanf:"event"`

	WorkingPoints map[string]signal.WorkingPoint `koanf:"working_points"`
	Regions       []signal.Region                `koanf:"regions"`
	JetPtEdges    []float64                      `koanf:"jet_pt_edges"`
}

// New returns the default configuration.
func New() *Config {
	opts := signal.DefaultOptions()
	return &Config{
		LogLevel:      "info",
		Executor:      Futures,
		Workers:       runtime.NumCPU(),
		OutputDir:     "outputs",
		Muon:          opts.Muon,
		Pair:          opts.Pair,
		Jet:           opts.Jet,
		Event:         opts.Event,
		WorkingPoints: opts.WorkingPoints,
		JetPtEdges:    opts.JetPtEdges,
	}
}

// Validate checks the run parameters. Selection parameters are checked by
// signal.NewProcessor.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.Executor {
	case Iterative, Futures:
	default:
		return fmt.Errorf("%w: unknown executor %q", ErrInvalidConfig, c.Executor)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.StepSize < 0 {
		return fmt.Errorf("%w: negative stepsize %d", ErrInvalidConfig, c.StepSize)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	}
	if c.S3.Bucket == "" && (c.S3.Endpoint != "" || c.S3.Prefix != "") {
		return fmt.Errorf("%w: s3 settings without a bucket", ErrInvalidConfig)
	}
	return nil
}

// Concurrency returns the number of workers implied by the executor.
func (c *Config) Concurrency() int {
	if c.Executor == Iterative {
		return 1
	}
	return c.Workers
}

// Options returns the processor options.
func (c *Config) Options() signal.Options {
	wps := make(map[string]signal.WorkingPoint, len(c.WorkingPoints))
	for k, v := range c.WorkingPoints {
		wps[k] = v
	}
	return signal.Options{
		Muon:          c.Muon,
		Pair:          c.Pair,
		Jet:           c.Jet,
		Event:         c.Event,
		WorkingPoints: wps,
		Regions:       slices.Clone(c.Regions),
		JetPtEdges:    slices.Clone(c.JetPtEdges),
	}
}

// Package dataset describes the input samples of the analysis and builds
// the JSON filesets consumed by hzz_signal.
package dataset

import (
	"fmt"
	"strings"
)

// DefaultKey is the tree holding the events of a NanoAOD file.
const DefaultKey = "Events"

// Config describes one dataset: where its files live and how to process
// them.
type Config struct {
	Name string `koanf:"name"`

	// Path is the directory (or xrootd URL prefix) holding Filenames. It
	// must end with "/".
	Path string `koanf:"path"`

	Key        string   `koanf:"key"`
	Year       string   `koanf:"year"`
	IsMC       bool     `koanf:"is_mc"`
	XSec       float64  `koanf:"xsec"`
	Partitions int      `koanf:"partitions"`
	StepSize   int64    `koanf:"stepsize"`
	Filenames  []string `koanf:"filenames"`
}

// Validate checks the descriptor.
func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: missing dataset name", ErrInvalidConfig)
	case !strings.HasSuffix(c.Path, "/"):
		return fmt.Errorf("%w: dataset path has to end with '/', got %q", ErrInvalidConfig, c.Path)
	case c.Year == "":
		return fmt.Errorf("%w: dataset %q has no year", ErrInvalidConfig, c.Name)
	case c.Partitions < 1:
		return fmt.Errorf("%w: dataset %q: partitions must be positive, got %d", ErrInvalidConfig, c.Name, c.Partitions)
	case c.StepSize < 1:
		return fmt.Errorf("%w: dataset %q: stepsize must be positive, got %d", ErrInvalidConfig, c.Name, c.StepSize)
	case c.XSec < 0:
		return fmt.Errorf("%w: dataset %q: negative cross section", ErrInvalidConfig, c.Name)
	}
	return nil
}

// Files returns the full paths of the dataset files.
func (c Config) Files() []string {
	files := make([]string, len(c.Filenames))
	for i, f := range c.Filenames {
		files[i] = c.Path + f
	}
	return files
}

func (c Config) String() string {
	return fmt.Sprintf("Config(%s, %s, %d)", c.Name, c.Year, c.StepSize)
}

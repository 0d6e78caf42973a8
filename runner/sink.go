package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decibelcooper/hzzplot/signal"
)

// Metadata describes the output of one fileset key.
type Metadata struct {
	Walltime        string   `json:"walltime"`
	WalltimeSeconds float64  `json:"walltime_seconds"`
	Fileset         []string `json:"fileset"`
	SumW            float64  `json:"sumw"`
	NEvents         int64    `json:"nevents"`
	XSec            float64  `json:"xsec,omitempty"`
	RunID           string   `json:"run_id"`

	SelectedEvents map[string]int64   `json:"selected_events,omitempty"`
	SelectedSumW   map[string]float64 `json:"selected_sumw,omitempty"`

	// NaN counts, per histogram and region, the entries without a value.
	NaN map[string]map[string]int64 `json:"nan,omitempty"`
}

// NewMetadata summarizes res.
func NewMetadata(res *signal.Result, files []string, walltime time.Duration, xsec float64, runID string) Metadata {
	m := Metadata{
		Walltime:        walltime.Round(time.Millisecond).String(),
		WalltimeSeconds: walltime.Seconds(),
		Fileset:         files,
		SumW:            res.Metadata.SumW,
		NEvents:         res.Metadata.NEvents,
		XSec:            xsec,
		RunID:           runID,
		SelectedEvents:  res.Metadata.SelectedEvents,
		SelectedSumW:    res.Metadata.SelectedSumW,
	}
	for _, name := range res.Histograms.Names() {
		h := res.Histograms.Get(name)
		for _, region := range h.Regions() {
			n := h.NaN(region).Entries
			if n == 0 {
				continue
			}
			if m.NaN == nil {
				m.NaN = make(map[string]map[string]int64)
			}
			if m.NaN[name] == nil {
				m.NaN[name] = make(map[string]int64)
			}
			m.NaN[name][region] = n
		}
	}
	return m
}

// Sink persists the output of a fileset key.
type Sink interface {
	Save(ctx context.Context, key string, res *signal.Result, meta Metadata) error
}

// Encode returns the YODA histograms and the JSON metadata of a result.
func Encode(res *signal.Result, meta Metadata) (yoda, metadata []byte, err error) {
	yoda, err = res.Histograms.MarshalYODA()
	if err != nil {
		return nil, nil, err
	}
	metadata, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("runner: could not encode metadata: %w", err)
	}
	return yoda, metadata, nil
}

// FileSink writes <key>.yoda and <key>_metadata.json into Dir.
type FileSink struct {
	Dir string
}

// Paths returns the files written for key.
func (s FileSink) Paths(key string) (yoda, meta string) {
	return filepath.Join(s.Dir, key+".yoda"), filepath.Join(s.Dir, key+"_metadata.json")
}

func (s FileSink) Save(_ context.Context, key string, res *signal.Result, meta Metadata) error {
	yoda, metadata, err := Encode(res, meta)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("runner: could not create output directory: %w", err)
	}
	yodaPath, metaPath := s.Paths(key)
	if err := os.WriteFile(yodaPath, yoda, 0o644); err != nil {
		return fmt.Errorf("runner: could not write histograms: %w", err)
	}
	if err := os.WriteFile(metaPath, metadata, 0o644); err != nil {
		return fmt.Errorf("runner: could not write metadata: %w", err)
	}
	return nil
}

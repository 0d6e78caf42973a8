package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/plot/vg"

	"github.com/decibelcooper/hzzplot"
	"github.com/decibelcooper/hzzplot/hist"
	"github.com/decibelcooper/hzzplot/logger"
	"github.com/decibelcooper/hzzplot/runner"
)

func printUsage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), `Usage: `+fs.Name()+` [options] <output.yoda> [<output.yoda> ...]

Overlays the regions of one histogram, summed over all inputs.

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
	ctx := context.Background()

	err := execute(os.Args[0], os.Args[1:])
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		logger.Named("hzz_plot").Fatal(ctx, "plotting failed", logger.Error(err))
	}
}

func execute(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		hname   = fs.String("hist", "higgs_mass", "histogram to draw")
		output  = fs.String("output", "out.png", "output file")
		title   = fs.String("title", "", "plot title (defaults to the histogram name)")
		logY    = fs.Bool("log", false, "log scale in y")
		lumi    = fs.Float64("lumi", 0, "integrated luminosity in 1/pb, scales each input by xsec*lumi/sumw when positive")
		regions = fs.String("regions", "", "comma-separated regions to draw (defaults to all)")
		width   = fs.Float64("width", 6, "width in inches")
		height  = fs.Float64("height", 4, "height in inches")
	)
	fs.Usage = printUsage(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return flag.ErrHelp
	}

	summed := make(map[string]*hbook.H1D)
	xlabel := *hname
	for _, in := range fs.Args() {
		hs, err := readHist(in, *hname)
		if err != nil {
			return err
		}

		scale := 1.0
		if *lumi > 0 {
			if scale, err = lumiScale(in, *lumi); err != nil {
				return err
			}
		}

		for region, h := range hs {
			if scale != 1 {
				h.Scale(scale)
			}
			if label, ok := h.Annotation()["title"].(string); ok && label != "" {
				xlabel = label
			}
			if prev, ok := summed[region]; ok {
				summed[region] = hbook.AddH1D(prev, h)
			} else {
				summed[region] = h
			}
		}
	}

	if *regions != "" {
		keep := make(map[string]*hbook.H1D)
		for _, r := range strings.Split(*regions, ",") {
			h, ok := summed[r]
			if !ok {
				return fmt.Errorf("unknown region %q, have %v", r, sortedKeys(summed))
			}
			keep[r] = h
		}
		summed = keep
	}

	if *title == "" {
		*title = *hname
	}
	p, err := hzzplot.Overlay(*title, xlabel, summed, *logY)
	if err != nil {
		return err
	}
	return p.Save(vg.Length(*width)*vg.Inch, vg.Length(*height)*vg.Inch, *output)
}

func readHist(path, name string) (map[string]*hbook.H1D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := hist.ReadYODA(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	hs, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("%s: no histogram %q, have %v", path, name, sortedKeys(all))
	}
	return hs, nil
}

// lumiScale reads the metadata written next to a .yoda output.
func lumiScale(yodaPath string, lumi float64) (float64, error) {
	metaPath := strings.TrimSuffix(yodaPath, ".yoda") + "_metadata.json"
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return 0, err
	}
	var meta runner.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, fmt.Errorf("%s: %w", metaPath, err)
	}
	if meta.XSec <= 0 || meta.SumW == 0 {
		return 0, fmt.Errorf("%s: cannot normalize with xsec=%g and sumw=%g", metaPath, meta.XSec, meta.SumW)
	}
	return meta.XSec * lumi / meta.SumW, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

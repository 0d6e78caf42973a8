package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/decibelcooper/hzzplot/dataset"
	"github.com/decibelcooper/hzzplot/logger"
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options]

Builds the JSON filesets of the dataset catalog: one catalog fileset per
year, and one fileset per dataset partition.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	var (
		catalogDir = flag.String("catalog", "analysis/configs/dataset", "dataset catalog directory holding <year>/<dataset>.yaml")
		outputDir  = flag.String("output", "analysis/filesets", "fileset output directory")
		year       = flag.String("year", "", "only build filesets of this year")
		sample     = flag.String("dataset", "", "only build the partition filesets of this dataset")
	)
	flag.Usage = printUsage
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Named("make_filesets")
	ctx := context.Background()

	cat, err := dataset.LoadCatalog(*catalogDir)
	if err != nil {
		log.Fatal(ctx, "could not load catalog", logger.Error(err))
	}

	years := cat.Years()
	if *year != "" {
		years = []string{*year}
	}

	built := 0
	for _, y := range years {
		cfgs := cat.Datasets(y)
		if len(cfgs) == 0 {
			log.Fatal(ctx, "no dataset for year", logger.String("year", y))
		}

		path, err := dataset.WriteCatalogFileset(*outputDir, y, cfgs)
		if err != nil {
			log.Fatal(ctx, "could not write catalog fileset", logger.String("year", y), logger.Error(err))
		}
		log.Info(ctx, "catalog fileset written", logger.String("year", y), logger.String("path", path))

		for _, cfg := range cfgs {
			if *sample != "" && cfg.Name != *sample {
				continue
			}
			paths, err := dataset.BuildFilesets(*outputDir, cfg)
			if err != nil {
				log.Fatal(ctx, "could not build filesets", logger.String("dataset", cfg.String()), logger.Error(err))
			}

			keys := make([]string, 0, len(paths))
			for k := range paths {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				log.Debug(ctx, "fileset written", logger.String("key", k), logger.String("path", paths[k]))
			}
			log.Info(ctx, "dataset filesets written",
				logger.String("dataset", cfg.Name),
				logger.String("year", y),
				logger.Int("partitions", len(paths)),
			)
			built++
		}
	}

	if *sample != "" && built == 0 {
		log.Fatal(ctx, "dataset not found in catalog", logger.String("dataset", *sample))
	}
}

package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/decibelcooper/hzzplot/config"
	"github.com/decibelcooper/hzzplot/signal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hzz.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		t.Setenv("HZZ_CONFIG", "")

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then the analysis defaults are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Executor, convey.ShouldEqual, config.Futures)
				convey.So(cfg.Workers, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.Muon, convey.ShouldResemble, signal.DefaultMuonCuts())
				convey.So(cfg.WorkingPoints, convey.ShouldResemble, signal.DefaultWorkingPoints())
				convey.So(cfg.Regions, convey.ShouldBeEmpty)
				convey.So(cfg.JetPtEdges, convey.ShouldResemble, signal.DefaultJetPtEdges)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfig(t, `
executor: iterative
workers: 3
stepsize: 50000
output_dir: /tmp/hzz
muon:
  min_pt: 7
working_points:
  deepjet:
    cvb: 0.3
    cvl: 0.4
regions:
  - name: loose
    tagger: pnet
    predicates: [atleast4muons, onepnetjet]
jet_pt_edges: [30, 100, 500]
s3:
  bucket: hzz-outputs
  prefix: 2022EE
  endpoint: http://localhost:9000
`)
			cfg, err := config.Load(ctx, path)

			convey.Convey("Then file values override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Executor, convey.ShouldEqual, config.Iterative)
				convey.So(cfg.Concurrency(), convey.ShouldEqual, 1)
				convey.So(cfg.StepSize, convey.ShouldEqual, int64(50000))
				convey.So(cfg.OutputDir, convey.ShouldEqual, "/tmp/hzz")
				convey.So(cfg.Muon.MinPt, convey.ShouldEqual, 7.0)
				convey.So(cfg.Muon.MaxIso, convey.ShouldEqual, 0.35)
				convey.So(cfg.WorkingPoints["deepjet"], convey.ShouldResemble, signal.WorkingPoint{CvB: 0.3, CvL: 0.4})
				convey.So(cfg.WorkingPoints, convey.ShouldContainKey, "part")
				convey.So(cfg.Regions, convey.ShouldResemble, []signal.Region{
					{Name: "loose", Tagger: "pnet", Predicates: []string{"atleast4muons", "onepnetjet"}},
				})
				convey.So(cfg.JetPtEdges, convey.ShouldResemble, []float64{30, 100, 500})
				convey.So(cfg.S3.Bucket, convey.ShouldEqual, "hzz-outputs")
				convey.So(cfg.S3.Prefix, convey.ShouldEqual, "2022EE")
				convey.So(cfg.S3.Endpoint, convey.ShouldEqual, "http://localhost:9000")
			})

			convey.Convey("And the options build a processor", func() {
				p, err := signal.NewProcessor(cfg.Options())
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Regions(), convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When environment variables are set", func() {
			path := writeConfig(t, "workers: 3\n")
			t.Setenv("HZZ_CONFIG", path)
			t.Setenv("HZZ_WORKERS", "12")
			t.Setenv("HZZ_LOG_LEVEL", "debug")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then they take precedence over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Workers, convey.ShouldEqual, 12)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Concurrency(), convey.ShouldEqual, 12)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			path := writeConfig(t, "executor: dask\n")
			_, err := config.Load(ctx, path)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("When workers is zero", func() {
			cfg.Workers = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log level is unknown", func() {
			cfg.LogLevel = "trace"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the stepsize is negative", func() {
			cfg.StepSize = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an S3 endpoint has no bucket", func() {
			cfg.S3.Endpoint = "http://localhost:9000"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the options are modified", func() {
			opts := cfg.Options()
			opts.WorkingPoints["deepjet"] = signal.WorkingPoint{}
			opts.JetPtEdges[0] = 0

			convey.Convey("Then the config is unchanged", func() {
				convey.So(cfg.WorkingPoints["deepjet"].CvB, convey.ShouldEqual, 0.241)
				convey.So(cfg.JetPtEdges[0], convey.ShouldEqual, 30.0)
			})
		})
	})
}

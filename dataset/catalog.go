package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Catalog holds the dataset descriptors of every year.
type Catalog struct {
	byYear map[string]map[string]Config
}

// LoadCatalog reads every <dir>/<year>/<name>.yaml descriptor.
func LoadCatalog(dir string) (*Catalog, error) {
	years, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: could not read catalog: %w", err)
	}

	c := &Catalog{byYear: make(map[string]map[string]Config)}
	for _, y := range years {
		if !y.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(dir, y.Name(), "*.yaml"))
		if err != nil {
			return nil, err
		}
		for _, fname := range files {
			cfg, err := LoadConfig(fname)
			if err != nil {
				return nil, err
			}
			if cfg.Year != y.Name() {
				return nil, fmt.Errorf("%w: %s declares year %q", ErrInvalidConfig, fname, cfg.Year)
			}
			if err := c.Add(cfg); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// LoadConfig reads one YAML dataset descriptor. The tree key defaults to
// Events.
func LoadConfig(fname string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(fname), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("dataset: could not load %s: %w", fname, err)
	}

	cfg := Config{Key: DefaultKey}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("dataset: could not decode %s: %w", fname, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", fname, err)
	}
	return cfg, nil
}

// Add registers a dataset descriptor.
func (c *Catalog) Add(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.byYear == nil {
		c.byYear = make(map[string]map[string]Config)
	}
	year, ok := c.byYear[cfg.Year]
	if !ok {
		year = make(map[string]Config)
		c.byYear[cfg.Year] = year
	}
	if _, dup := year[cfg.Name]; dup {
		return fmt.Errorf("%w: duplicate dataset %q for %s", ErrInvalidConfig, cfg.Name, cfg.Year)
	}
	year[cfg.Name] = cfg
	return nil
}

// Years returns the sorted years of the catalog.
func (c *Catalog) Years() []string {
	years := make([]string, 0, len(c.byYear))
	for y := range c.byYear {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// Datasets returns the descriptors of a year, sorted by name.
func (c *Catalog) Datasets(year string) []Config {
	out := make([]Config, 0, len(c.byYear[year]))
	for _, cfg := range c.byYear[year] {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the descriptor of a dataset. Partition keys such as
// "ZZTo4L_3" resolve to their dataset.
func (c *Catalog) Lookup(name, year string) (Config, error) {
	if cfg, ok := c.byYear[year][name]; ok {
		return cfg, nil
	}
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		if cfg, ok := c.byYear[year][name[:i]]; ok && isPartition(name[i+1:]) {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("%w: %q for year %q", ErrNotFound, name, year)
}

func isPartition(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

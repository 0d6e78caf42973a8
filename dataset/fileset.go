package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Fileset maps a fileset key to the files it covers.
type Fileset map[string][]string

// DivideList splits lst into n consecutive parts whose sizes differ by at
// most one; the first len(lst)%n parts get the extra element.
func DivideList(lst []string, n int) [][]string {
	if n < 1 {
		panic(fmt.Errorf("dataset: cannot divide a list into %d parts", n))
	}
	size, rem := len(lst)/n, len(lst)%n

	out := make([][]string, n)
	beg := 0
	for i := range out {
		end := beg + size
		if i < rem {
			end++
		}
		out[i] = lst[beg:end:end]
		beg = end
	}
	return out
}

// CatalogFilesetName is the name of the per-year fileset of every dataset.
func CatalogFilesetName(year string) string {
	return fmt.Sprintf("fileset_%s_PFNANO.json", year)
}

// WriteCatalogFileset writes the fileset of every dataset of a year into
// dir and returns the file path.
func WriteCatalogFileset(dir string, year string, cfgs []Config) (string, error) {
	fs := make(Fileset, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Year != year {
			return "", fmt.Errorf("%w: dataset %q is for %s, not %s", ErrInvalidConfig, cfg.Name, cfg.Year, year)
		}
		fs[cfg.Name] = cfg.Files()
	}
	path := filepath.Join(dir, CatalogFilesetName(year))
	if err := fs.Write(path); err != nil {
		return "", err
	}
	return path, nil
}

// BuildFilesets splits the files of a dataset, as listed in the year
// fileset under dir, into cfg.Partitions fileset files written to
// <dir>/<year>/. A single partition is keyed by the dataset name, otherwise
// keys are <name>_1 ... <name>_N. Partition files left by a previous run
// are removed first. It returns the written paths by key.
func BuildFilesets(dir string, cfg Config) (map[string]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	all, err := ReadFileset(filepath.Join(dir, CatalogFilesetName(cfg.Year)))
	if err != nil {
		return nil, err
	}
	files, ok := all[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in the %s fileset", ErrNotFound, cfg.Name, cfg.Year)
	}

	out := filepath.Join(dir, cfg.Year)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: could not create fileset directory: %w", err)
	}
	if err := removePartitions(out, cfg.Name); err != nil {
		return nil, err
	}

	paths := make(map[string]string, cfg.Partitions)
	write := func(key string, files []string) error {
		path := filepath.Join(out, key+".json")
		paths[key] = path
		return Fileset{key: files}.Write(path)
	}

	if cfg.Partitions == 1 {
		if err := write(cfg.Name, files); err != nil {
			return nil, err
		}
		return paths, nil
	}
	for i, part := range DivideList(files, cfg.Partitions) {
		if err := write(fmt.Sprintf("%s_%d", cfg.Name, i+1), part); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// removePartitions deletes <name>.json and <name>_<i>.json under dir. Files
// of other datasets sharing the name as a prefix are kept.
func removePartitions(dir, name string) error {
	matches, err := filepath.Glob(filepath.Join(dir, name+"*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		key := strings.TrimSuffix(filepath.Base(m), ".json")
		if key != name {
			idx, ok := strings.CutPrefix(key, name+"_")
			if !ok {
				continue
			}
			if _, err := strconv.Atoi(idx); err != nil {
				continue
			}
		}
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("dataset: could not remove stale fileset: %w", err)
		}
	}
	return nil
}

// ReadFileset reads a JSON fileset.
func ReadFileset(path string) (Fileset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: could not read fileset: %w", err)
	}
	var fs Fileset
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("dataset: could not decode fileset %s: %w", path, err)
	}
	return fs, nil
}

// Write stores the fileset as indented JSON with sorted keys.
func (fs Fileset) Write(path string) error {
	raw, err := json.MarshalIndent(fs, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("dataset: could not write fileset: %w", err)
	}
	return nil
}

// Key returns the fileset key named by a fileset path: its base name
// without the .json extension.
func Key(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}

// Package dataset reads the static problem and corpus files the arena is
// configured with. Problems and sample cases are materialized eagerly; full
// test cases and reference solutions are loaded on demand and never cached.
package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codearena/arena/pkg/models"
)

// problemEntry mirrors one value of the problem dictionary JSON.
type problemEntry struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	ProblemLevel string        `json:"problem_level"`
	RuntimeLimit float64       `json:"runtime_limit"` // seconds
	MemoryLimit  int           `json:"memory_limit"`  // MB
	Samples      []sampleEntry `json:"samples"`
	Solution     string        `json:"solution"`
}

type sampleEntry struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Loader reads a problem dataset rooted at a directory. The dictionary lives
// at <root>/../<dataset>_dict.json and test cases under <root>/tests/<id>/.
type Loader struct {
	root    string
	dataset string
	dict    map[string]problemEntry
}

// NewLoader reads the problem dictionary and returns a ready loader. A
// missing dictionary yields an empty loader; callers decide whether zero
// problems is fatal.
func NewLoader(root, dataset string) *Loader {
	l := &Loader{root: root, dataset: dataset, dict: map[string]problemEntry{}}

	path := l.DictPath()
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Problem dictionary not found, loader is empty", "path", path, "error", err)
		return l
	}
	if err := json.Unmarshal(data, &l.dict); err != nil {
		slog.Warn("Problem dictionary is not valid JSON, loader is empty", "path", path, "error", err)
		l.dict = map[string]problemEntry{}
	}
	return l
}

// DictPath returns the problem dictionary location for this dataset.
func (l *Loader) DictPath() string {
	return filepath.Join(l.root, "..", l.dataset+"_dict.json")
}

// Len returns the number of problems in the dictionary.
func (l *Loader) Len() int {
	return len(l.dict)
}

// ProblemIDs returns all problem IDs, sorted, optionally filtered by level.
// Pass an empty level for no filter.
func (l *Loader) ProblemIDs(level models.Level) []string {
	ids := make([]string, 0, len(l.dict))
	for id, entry := range l.dict {
		if level != "" && models.ParseLevel(entry.ProblemLevel) != level {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether the dictionary contains the given problem.
func (l *Loader) Has(id string) bool {
	_, ok := l.dict[id]
	return ok
}

// LoadProblem materializes a problem with its sample cases. Unknown levels
// default to bronze.
func (l *Loader) LoadProblem(id string) (*models.Problem, error) {
	entry, ok := l.dict[id]
	if !ok {
		return nil, fmt.Errorf("problem %q not found in dataset %q", id, l.dataset)
	}

	samples := make([]models.Case, len(entry.Samples))
	for i, s := range entry.Samples {
		samples[i] = models.Case{
			ID:       fmt.Sprintf("%s-sample-%d", id, i+1),
			Input:    s.Input,
			Expected: s.Output,
		}
	}

	return &models.Problem{
		ID:            id,
		Title:         entry.Name,
		Description:   entry.Description,
		Level:         models.ParseLevel(entry.ProblemLevel),
		TimeLimitMs:   int(entry.RuntimeLimit * 1000),
		MemoryLimitMB: entry.MemoryLimit,
		Samples:       samples,
	}, nil
}

// LoadSolution returns the reference solution for a problem (used by hint
// level 3 solution snippets).
func (l *Loader) LoadSolution(id string) (string, error) {
	entry, ok := l.dict[id]
	if !ok {
		return "", fmt.Errorf("problem %q not found in dataset %q", id, l.dataset)
	}
	return entry.Solution, nil
}

// LoadTestCases pairs input/output files under <root>/tests/<id>/, sorted
// lexicographically. Both `.in`/`.out` and `I.*`/`O.*` naming are accepted;
// inputs without a matching output are skipped silently.
func (l *Loader) LoadTestCases(id string) ([]models.Case, error) {
	dir := filepath.Join(l.root, "tests", id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read test dir for problem %q: %w", id, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var cases []models.Case
	for _, name := range names {
		outName, ok := outputNameFor(name)
		if !ok {
			continue
		}
		input, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		expected, err := os.ReadFile(filepath.Join(dir, outName))
		if err != nil {
			// Unpaired input: skip.
			continue
		}
		cases = append(cases, models.Case{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Input:    string(input),
			Expected: string(expected),
		})
	}
	return cases, nil
}

// outputNameFor maps an input file name to its expected-output counterpart.
// Returns ok=false for files that are not inputs.
func outputNameFor(name string) (string, bool) {
	if strings.HasSuffix(name, ".in") {
		return strings.TrimSuffix(name, ".in") + ".out", true
	}
	if strings.HasPrefix(name, "I.") {
		return "O." + strings.TrimPrefix(name, "I."), true
	}
	return "", false
}

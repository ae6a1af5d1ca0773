// Package results collects permutation test outcomes across datasets,
// pre-treatments and classifiers, and persists them as JSON so runs can
// be compared without recomputing.
package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// NullDistributionSummary describes the empirical null distribution of
// permutation scores.
type NullDistributionSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// PermutationResult is the record of one permutation significance run.
type PermutationResult struct {
	Dataset    string `json:"dataset"`
	Treatment  string `json:"treatment"`
	Classifier string `json:"classifier"`

	BaselineScore     float64   `json:"baseline_score"`
	PermutationScores []float64 `json:"permutation_scores"`
	NPermutations     int       `json:"n_permutations"`
	PValue            float64   `json:"p_value"`

	NullDistribution NullDistributionSummary `json:"null_distribution"`
}

// NewPermutationResult builds a result record and summarizes the null
// distribution.
func NewPermutationResult(dataset, treatment, classifier string,
	baseline float64, permScores []float64, pValue float64) *PermutationResult {

	return &PermutationResult{
		Dataset:           dataset,
		Treatment:         treatment,
		Classifier:        classifier,
		BaselineScore:     baseline,
		PermutationScores: permScores,
		NPermutations:     len(permScores),
		PValue:            pValue,
		NullDistribution:  summarize(permScores),
	}
}

// Significant reports whether the baseline beats the null at level alpha.
func (r *PermutationResult) Significant(alpha float64) bool {
	return r.PValue <= alpha
}

// Key returns the store key "dataset/treatment/classifier".
func (r *PermutationResult) Key() string {
	return r.Dataset + "/" + r.Treatment + "/" + r.Classifier
}

func summarize(scores []float64) NullDistributionSummary {
	if len(scores) == 0 {
		return NullDistributionSummary{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	return NullDistributionSummary{
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.StdDev(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

// Store is a concurrency-safe collection of permutation results keyed by
// dataset/treatment/classifier.
type Store struct {
	mu      sync.RWMutex
	results map[string]*PermutationResult
}

// NewStore creates an empty result store.
func NewStore() *Store {
	return &Store{results: make(map[string]*PermutationResult)}
}

// Add inserts or replaces a result.
func (s *Store) Add(r *PermutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Key()] = r
}

// Get looks up a result by dataset, treatment and classifier.
func (s *Store) Get(dataset, treatment, classifier string) (*PermutationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[dataset+"/"+treatment+"/"+classifier]
	return r, ok
}

// Keys returns all stored keys in ascending order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.results))
	for k := range s.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Save writes the store to path as indented JSON. Map keys marshal in
// sorted order, so files from identical runs are byte-identical.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.results, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "results.Store.Save")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "results.Store.Save")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "results.Store.Save")
	}
	return nil
}

// Load reads a store previously written by Save.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "results.Load")
	}

	s := NewStore()
	if err := json.Unmarshal(data, &s.results); err != nil {
		return nil, errors.Wrap(err, "results.Load")
	}
	return s, nil
}

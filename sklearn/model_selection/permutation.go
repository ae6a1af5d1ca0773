package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/core/parallel"
	"github.com/aeferreira/binsim-paper/pkg/errors"
)

const (
	defaultNPermutations = 100
	defaultNSplits       = 5

	// Below this trial count the goroutine fan-out costs more than it
	// saves.
	parallelTrialThreshold = 4
)

type permutationConfig struct {
	nPermutations int
	nSplits       int
	randomState   int64
}

// PermutationOption configures a permutation test run.
type PermutationOption func(*permutationConfig)

// WithNPermutations sets the number of label permutations. The paper uses
// 100; the smallest attainable p-value is 1/(n+1).
func WithNPermutations(n int) PermutationOption {
	return func(cfg *permutationConfig) {
		cfg.nPermutations = n
	}
}

// WithNSplits sets the number of stratified cross-validation folds used
// for the baseline and for every permutation trial.
func WithNSplits(k int) PermutationOption {
	return func(cfg *permutationConfig) {
		cfg.nSplits = k
	}
}

// WithRandomState fixes the root random seed. Fold shuffles and trial
// permutations derive their own seeds from it, so a run is reproducible
// regardless of how trials are scheduled across goroutines.
func WithRandomState(seed int64) PermutationOption {
	return func(cfg *permutationConfig) {
		cfg.randomState = seed
	}
}

// PermutationTestScore assesses the significance of a cross-validated
// accuracy by the label-permutation test of Ojala and Garriga (JMLR 2010).
//
// It computes the baseline stratified k-fold accuracy on the true labels,
// then repeats the same cross-validation on n_permutations independent
// shuffles of the label vector. The returned p-value is
//
//	p = (C + 1) / (n_permutations + 1)
//
// where C counts permutation scores greater than or equal to the
// baseline. The +1 terms keep the estimate unbiased and strictly
// positive; p is never below 1/(n_permutations+1) and never above 1.
//
// Each trial trains fresh classifiers from the factory. Trials run in
// parallel with per-trial derived seeds.
func PermutationTestScore(X, y mat.Matrix, factory ClassifierFactory, opts ...PermutationOption) (float64, []float64, float64, error) {
	cfg := &permutationConfig{
		nPermutations: defaultNPermutations,
		nSplits:       defaultNSplits,
		randomState:   0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if factory == nil {
		return 0, nil, 0, errors.NewValueError("PermutationTestScore", "classifier factory must not be nil")
	}
	if cfg.nPermutations < 1 {
		return 0, nil, 0, errors.NewValidationError("n_permutations", "must be >= 1", cfg.nPermutations)
	}

	// Baseline on the true labels. Dimension and stratification problems
	// surface here, before any trial work is spent.
	baselineCV := NewStratifiedKFold(cfg.nSplits, true, cfg.randomState)
	foldScores, err := CrossValScore(factory, X, y, baselineCV)
	if err != nil {
		return 0, nil, 0, errors.Wrap(err, "baseline")
	}
	baseline := MeanScore(foldScores)

	nSamples, _ := y.Dims()
	labels := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = y.At(i, 0)
	}

	permScores := make([]float64, cfg.nPermutations)
	trialErrs := make([]error, cfg.nPermutations)

	parallel.ParallelizeWithThreshold(cfg.nPermutations, parallelTrialThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			trialSeed := cfg.randomState + int64(i) + 1

			yPerm := permuteLabels(labels, trialSeed)
			trialCV := NewStratifiedKFold(cfg.nSplits, true, trialSeed)

			scores, err := CrossValScore(factory, X, yPerm, trialCV)
			if err != nil {
				trialErrs[i] = errors.Wrapf(err, "permutation %d", i)
				continue
			}
			permScores[i] = MeanScore(scores)
		}
	})

	for _, err := range trialErrs {
		if err != nil {
			return 0, nil, 0, err
		}
	}

	// A NaN trial score would silently distort the p-value comparison.
	if err := errors.CheckNumericalStability("PermutationTestScore", permScores, 0); err != nil {
		return 0, nil, 0, err
	}

	return baseline, permScores, PValue(baseline, permScores), nil
}

// permuteLabels returns a Fisher-Yates shuffle of labels as an n x 1
// matrix, seeded per trial. Shuffling labels keeps the class proportions
// intact while destroying any feature-label association.
func permuteLabels(labels []float64, seed int64) *mat.Dense {
	perm := make([]float64, len(labels))
	copy(perm, labels)

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return mat.NewDense(len(perm), 1, perm)
}

// PValue computes the empirical p-value (C+1)/(n+1), where C counts
// permutation scores at or above the baseline.
func PValue(baseline float64, permScores []float64) float64 {
	count := 0
	for _, s := range permScores {
		if s >= baseline {
			count++
		}
	}
	return float64(count+1) / float64(len(permScores)+1)
}

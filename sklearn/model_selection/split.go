// Package model_selection provides stratified cross-validation and the
// label-permutation significance test the paper's conclusions rest on.
package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// Fold holds the train/test row indices of one cross-validation fold.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold splits samples into k folds preserving the class
// proportions of the label vector.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter. The fold
// count is validated by Split.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold. It is an
// explicit error when any class has fewer members than NSplits:
// stratification would silently skew the folds otherwise, which biases
// the permutation null distribution.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()

	if skf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be >= 2", skf.NSplits)
	}
	if nSamples == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "StratifiedKFold.Split")
	}
	if yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y must be a column vector (n×1 matrix)")
	}

	// Group indices by class.
	classIndices := make(map[int][]int)
	classOrder := []int{}
	for i := 0; i < nSamples; i++ {
		label := int(y.At(i, 0))
		if _, seen := classIndices[label]; !seen {
			classOrder = append(classOrder, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}

	for _, label := range classOrder {
		if len(classIndices[label]) < skf.NSplits {
			return nil, errors.NewStratificationError("StratifiedKFold.Split",
				label, len(classIndices[label]), skf.NSplits)
		}
	}

	// Shuffle indices within each class if requested.
	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, label := range classOrder {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.NSplits)

	// Distribute each class across folds in contiguous chunks, the first
	// remainder folds taking one extra sample.
	for _, label := range classOrder {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		currentIdx := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}

			for j := 0; j < testSize && currentIdx < nClass; j++ {
				folds[i].TestIndices = append(folds[i].TestIndices, indices[currentIdx])
				currentIdx++
			}
		}
	}

	// Build train sets (all samples not in test).
	for i := 0; i < skf.NSplits; i++ {
		testSet := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			testSet[idx] = true
		}

		for j := 0; j < nSamples; j++ {
			if !testSet[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}

	return folds, nil
}

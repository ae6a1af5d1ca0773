package model_selection

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aeferreira/binsim-paper/core/model"
	"github.com/aeferreira/binsim-paper/metrics"
	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// Classifier is the estimator contract the cross-validation and
// permutation layers rely on.
type Classifier = model.Classifier

// ClassifierFactory builds a fresh, unfitted classifier. Cross-validation
// and permutation trials each need their own instance so that fitted state
// never leaks between folds or trials.
type ClassifierFactory func() Classifier

// CrossValScore computes the per-fold test accuracy of the classifier
// under the given stratified splitter. Each fold trains a fresh instance
// from the factory.
func CrossValScore(factory ClassifierFactory, X, y mat.Matrix, cv *StratifiedKFold) ([]float64, error) {
	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	for i, fold := range folds {
		trainX, trainY := extractSubset(X, y, fold.TrainIndices)
		testX, testY := extractSubset(X, y, fold.TestIndices)

		clf := factory()
		err := errors.SafeExecute("CrossValScore.Fit", func() error {
			return clf.Fit(trainX, trainY)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}

		var pred mat.Matrix
		err = errors.SafeExecute("CrossValScore.Predict", func() error {
			var perr error
			pred, perr = clf.Predict(testX)
			return perr
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}

		acc, err := metrics.AccuracyMatrix(testY, pred)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		scores[i] = acc
	}

	return scores, nil
}

// MeanScore returns the mean of fold scores.
func MeanScore(scores []float64) float64 {
	return stat.Mean(scores, nil)
}

// extractSubset builds the sub-matrix and sub-labels for the given row
// indices.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, nFeatures := X.Dims()

	subX := mat.NewDense(len(indices), nFeatures, nil)
	subY := mat.NewDense(len(indices), 1, nil)

	for i, idx := range indices {
		for j := 0; j < nFeatures; j++ {
			subX.Set(i, j, X.At(idx, j))
		}
		subY.Set(i, 0, y.At(idx, 0))
	}
	return subX, subY
}

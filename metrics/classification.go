// Package metrics provides the classification metrics used to score
// cross-validation folds and permutation trials.
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// Accuracy computes the fraction of exactly matching labels.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// AccuracyMatrix computes accuracy for n x 1 matrix inputs, the shape
// estimator Predict methods return.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("AccuracyMatrix", "empty matrix")
	}

	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("AccuracyMatrix", rTrue, rPred, 0)
	}

	if cTrue != 1 {
		return 0, errors.NewValueError("AccuracyMatrix", "must be a column vector (n×1 matrix)")
	}

	correct := 0
	for i := 0; i < rTrue; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}

	return float64(correct) / float64(rTrue), nil
}

// ErrorRate is the complement of accuracy.
func ErrorRate(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix computes the confusion matrix for integer-encoded
// labels. classes fixes the row/column ordering; entry (i, j) counts
// samples of class classes[i] predicted as classes[j].
func ConfusionMatrix(yTrue, yPred *mat.VecDense, classes []int) (*mat.Dense, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}
	if len(classes) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "no classes given")
	}

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	cm := mat.NewDense(len(classes), len(classes), nil)
	for i := 0; i < n; i++ {
		ti, ok := index[int(yTrue.AtVec(i))]
		if !ok {
			return nil, errors.Newf("metrics: ConfusionMatrix: label %v not in classes", yTrue.AtVec(i))
		}
		pi, ok := index[int(yPred.AtVec(i))]
		if !ok {
			return nil, errors.Newf("metrics: ConfusionMatrix: prediction %v not in classes", yPred.AtVec(i))
		}
		cm.Set(ti, pi, cm.At(ti, pi)+1)
	}

	return cm, nil
}

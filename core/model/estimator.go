package model

import "gonum.org/v1/gonum/mat"

// Fitter is the interface for trainable models. y is an n x 1 matrix of
// integer-encoded class labels.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that can predict labels.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the contract the cross-validation and permutation layers
// rely on. Both RandomForestClassifier and PLSDAClassifier satisfy it.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns class membership scores, one column per class
	// in the order of Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Score returns the mean accuracy on the given test data and labels.
	Score(X, y mat.Matrix) float64

	// Classes returns the unique classes seen during fitting, ascending.
	Classes() []int
}

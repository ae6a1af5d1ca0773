package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// twoBlobs returns linearly separable two-class data.
func twoBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(12, 2, []float64{
		0.0, 0.1,
		0.2, 0.0,
		0.1, 0.3,
		0.3, 0.2,
		0.0, 0.0,
		0.2, 0.3,
		3.0, 3.1,
		3.2, 3.0,
		3.1, 3.3,
		3.3, 3.2,
		3.0, 3.0,
		3.2, 3.3,
	})
	y := mat.NewDense(12, 1, []float64{
		0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1,
	})
	return X, y
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := twoBlobs()

	rf := NewRandomForestClassifier(
		WithNEstimators(25),
		WithForestRandomState(42),
	)

	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score := rf.Score(X, y)
	if score != 1.0 {
		t.Errorf("forest should perfectly fit separable training data, got %v", score)
	}

	XTest := mat.NewDense(2, 2, []float64{
		0.1, 0.1, // class 0 blob
		3.1, 3.1, // class 1 blob
	})
	pred, err := rf.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
		t.Errorf("unexpected predictions: %v", mat.Formatted(pred))
	}
}

func TestRandomForestClassifier_PredictProba(t *testing.T) {
	X, y := twoBlobs()

	rf := NewRandomForestClassifier(
		WithNEstimators(15),
		WithForestRandomState(7),
	)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	probas, err := rf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	rows, cols := probas.Dims()
	if rows != 12 || cols != 2 {
		t.Fatalf("probas shape = (%d, %d), want (12, 2)", rows, cols)
	}

	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := probas.At(i, j)
			if p < 0 || p > 1 {
				t.Errorf("invalid probability at (%d, %d): %v", i, j, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("probabilities for sample %d sum to %v", i, sum)
		}
	}
}

func TestRandomForestClassifier_SeededReproducibility(t *testing.T) {
	X, y := twoBlobs()

	fitAndPredict := func() []float64 {
		rf := NewRandomForestClassifier(
			WithNEstimators(20),
			WithForestRandomState(1234),
		)
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		probas, err := rf.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba failed: %v", err)
		}
		rows, cols := probas.Dims()
		out := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out = append(out, probas.At(i, j))
			}
		}
		return out
	}

	first := fitAndPredict()
	second := fitAndPredict()

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("probas differ at %d despite fixed seed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRandomForestClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0, 1, 1, 0,
		3, 3, 3, 4, 4, 3,
		6, 6, 6, 7, 7, 6,
	})
	y := mat.NewDense(9, 1, []float64{
		0, 0, 0,
		1, 1, 1,
		2, 2, 2,
	})

	rf := NewRandomForestClassifier(
		WithNEstimators(30),
		WithForestRandomState(5),
	)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	classes := rf.Classes()
	if len(classes) != 3 {
		t.Fatalf("Classes() = %v, want 3 classes", classes)
	}

	if score := rf.Score(X, y); score != 1.0 {
		t.Errorf("expected perfect training accuracy, got %v", score)
	}
}

func TestRandomForestClassifier_InputValidation(t *testing.T) {
	rf := NewRandomForestClassifier(WithNEstimators(3))

	// Label count must match row count.
	err := rf.Fit(mat.NewDense(4, 2, nil), mat.NewDense(3, 1, nil))
	if err == nil {
		t.Error("expected error for mismatched sample counts")
	}

	// Predict before Fit.
	if _, err := rf.Predict(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
}

func TestRandomForestClassifier_FeatureImportances(t *testing.T) {
	// Feature 0 carries all the signal.
	X := mat.NewDense(8, 3, []float64{
		0, 5, 1,
		0, 1, 4,
		0, 3, 2,
		0, 2, 2,
		1, 4, 1,
		1, 1, 3,
		1, 3, 4,
		1, 2, 1,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	rf := NewRandomForestClassifier(
		WithNEstimators(40),
		WithForestMaxFeatures(2),
		WithForestRandomState(9),
	)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	imps := rf.GetFeatureImportances()
	if len(imps) != 3 {
		t.Fatalf("importances length = %d, want 3", len(imps))
	}
	if imps[0] <= imps[1] || imps[0] <= imps[2] {
		t.Errorf("feature 0 should dominate importances: %v", imps)
	}
}

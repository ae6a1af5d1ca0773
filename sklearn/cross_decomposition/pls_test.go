package cross_decomposition

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

func separableData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 3, []float64{
		0.0, 0.1, 1.0,
		0.2, 0.0, 0.9,
		0.1, 0.2, 1.1,
		0.3, 0.1, 1.0,
		0.1, 0.0, 0.8,
		5.0, 5.1, 1.0,
		5.2, 5.0, 0.9,
		5.1, 5.2, 1.1,
		5.3, 5.1, 1.0,
		5.1, 5.0, 0.8,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})
	return X, y
}

func TestPLSDAClassifier_FitPredict(t *testing.T) {
	X, y := separableData()

	pls := NewPLSDAClassifier(WithNComponents(2))
	if err := pls.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if score := pls.Score(X, y); score != 1.0 {
		t.Errorf("PLS-DA should separate the blobs, got score %v", score)
	}

	XTest := mat.NewDense(2, 3, []float64{
		0.1, 0.1, 1.0, // class 0 blob
		5.1, 5.1, 1.0, // class 1 blob
	})
	pred, err := pls.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
		t.Errorf("unexpected predictions: %v", mat.Formatted(pred))
	}
}

func TestPLSDAClassifier_Deterministic(t *testing.T) {
	X, y := separableData()

	run := func() *mat.Dense {
		pls := NewPLSDAClassifier(WithNComponents(2))
		if err := pls.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		scores, err := pls.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba failed: %v", err)
		}
		return scores.(*mat.Dense)
	}

	first := run()
	second := run()
	if !mat.Equal(first, second) {
		t.Error("PLS-DA must be bitwise deterministic across fits")
	}
}

func TestPLSDAClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(12, 2, []float64{
		0.0, 0.1, 0.2, 0.0, 0.1, 0.2, 0.2, 0.1,
		5.0, 5.1, 5.2, 5.0, 5.1, 5.2, 5.2, 5.1,
		0.0, 5.1, 0.2, 5.0, 0.1, 5.2, 0.2, 5.1,
	})
	y := mat.NewDense(12, 1, []float64{
		0, 0, 0, 0,
		1, 1, 1, 1,
		2, 2, 2, 2,
	})

	pls := NewPLSDAClassifier(WithNComponents(2))
	if err := pls.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	classes := pls.Classes()
	if len(classes) != 3 || classes[0] != 0 || classes[2] != 2 {
		t.Fatalf("Classes() = %v", classes)
	}

	scores, err := pls.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	if _, cols := scores.Dims(); cols != 3 {
		t.Errorf("expected one score column per class, got %d", cols)
	}

	if score := pls.Score(X, y); score < 0.9 {
		t.Errorf("expected near-perfect training accuracy, got %v", score)
	}
}

func TestPLSDAClassifier_ScoreWarnsWhenUndefined(t *testing.T) {
	var captured error
	errors.SetWarningHandler(func(w error) { captured = w })
	defer errors.SetWarningHandler(nil)

	// Scoring an unfitted model cannot produce an accuracy.
	pls := NewPLSDAClassifier(WithNComponents(2))
	if score := pls.Score(mat.NewDense(2, 3, nil), mat.NewDense(2, 1, nil)); score != 0 {
		t.Errorf("score = %v, want 0", score)
	}

	var umw *errors.UndefinedMetricWarning
	if !errors.As(captured, &umw) {
		t.Fatalf("expected UndefinedMetricWarning, got %v", captured)
	}
	if umw.Metric != "accuracy" {
		t.Errorf("warned metric = %q, want accuracy", umw.Metric)
	}
}

func TestPLSDAClassifier_ConvergenceWarning(t *testing.T) {
	var captured error
	errors.SetWarningHandler(func(w error) { captured = w })
	defer errors.SetWarningHandler(nil)

	// One NIPALS iteration can never pass the convergence check.
	X, y := separableData()
	pls := NewPLSDAClassifier(WithNComponents(1), WithPLSMaxIter(1))
	if err := pls.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var cw *errors.ConvergenceWarning
	if !errors.As(captured, &cw) {
		t.Fatalf("expected ConvergenceWarning, got %v", captured)
	}
	if cw.Algorithm != "PLSDA.NIPALS" {
		t.Errorf("warned algorithm = %q", cw.Algorithm)
	}
}

func TestPLSDAClassifier_Validation(t *testing.T) {
	pls := NewPLSDAClassifier(WithNComponents(2))

	// Mismatched label length.
	err := pls.Fit(mat.NewDense(4, 3, nil), mat.NewDense(3, 1, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	// Too many components for the data.
	big := NewPLSDAClassifier(WithNComponents(10))
	X, y := separableData()
	err = big.Fit(X, y)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for n_components, got %v", err)
	}

	// Single-class data cannot be discriminated.
	ones := mat.NewDense(5, 1, []float64{1, 1, 1, 1, 1})
	err = NewPLSDAClassifier(WithNComponents(1)).Fit(mat.NewDense(5, 3, nil), ones)
	if err == nil {
		t.Error("expected error for single-class fit")
	}

	// Predict before Fit.
	if _, err := pls.Predict(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
}

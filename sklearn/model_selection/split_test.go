package model_selection

import (
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// unbalancedData returns 20 samples with a 12/8 class split.
func unbalancedData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(20, 2, nil)
	labels := make([]float64, 20)
	for i := 0; i < 20; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i)*0.5)
		if i >= 12 {
			labels[i] = 1
		}
	}
	return X, mat.NewDense(20, 1, labels)
}

func TestStratifiedKFold_Partition(t *testing.T) {
	X, y := unbalancedData()

	skf := NewStratifiedKFold(4, true, 42)
	folds, err := skf.Split(X, y)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(folds) != 4 {
		t.Fatalf("got %d folds, want 4", len(folds))
	}

	seen := make(map[int]int)
	for _, fold := range folds {
		for _, idx := range fold.TestIndices {
			seen[idx]++
		}
	}
	if len(seen) != 20 {
		t.Errorf("test folds cover %d samples, want 20", len(seen))
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("sample %d appears in %d test folds", idx, n)
		}
	}

	// Train and test of each fold must partition the samples.
	for i, fold := range folds {
		if len(fold.TrainIndices)+len(fold.TestIndices) != 20 {
			t.Errorf("fold %d: train+test = %d, want 20",
				i, len(fold.TrainIndices)+len(fold.TestIndices))
		}
	}
}

func TestStratifiedKFold_ClassProportions(t *testing.T) {
	X, y := unbalancedData()

	skf := NewStratifiedKFold(4, true, 7)
	folds, err := skf.Split(X, y)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// 12/8 over 4 folds: every test fold gets exactly 3 of class 0 and
	// 2 of class 1.
	for i, fold := range folds {
		counts := map[int]int{}
		for _, idx := range fold.TestIndices {
			counts[int(y.At(idx, 0))]++
		}
		if counts[0] != 3 || counts[1] != 2 {
			t.Errorf("fold %d class counts = %v, want map[0:3 1:2]", i, counts)
		}
	}
}

func TestStratifiedKFold_SeedReproducible(t *testing.T) {
	X, y := unbalancedData()

	split := func() []Fold {
		folds, err := NewStratifiedKFold(5, true, 99).Split(X, y)
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		return folds
	}

	first := split()
	second := split()
	for i := range first {
		a := append([]int(nil), first[i].TestIndices...)
		b := append([]int(nil), second[i].TestIndices...)
		sort.Ints(a)
		sort.Ints(b)
		if len(a) != len(b) {
			t.Fatalf("fold %d sizes differ", i)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("fold %d differs despite fixed seed", i)
			}
		}
	}
}

func TestStratifiedKFold_StratificationError(t *testing.T) {
	// Class 1 has only 2 members; 3 folds cannot be stratified.
	X := mat.NewDense(8, 2, nil)
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 0, 0, 1, 1})

	_, err := NewStratifiedKFold(3, false, 0).Split(X, y)
	var stratErr *errors.StratificationError
	if !errors.As(err, &stratErr) {
		t.Fatalf("expected StratificationError, got %v", err)
	}
	if stratErr.Class != 1 || stratErr.ClassCount != 2 || stratErr.NSplits != 3 {
		t.Errorf("unexpected error details: %+v", stratErr)
	}
}

func TestStratifiedKFold_InvalidNSplits(t *testing.T) {
	X, y := unbalancedData()

	for _, k := range []int{0, 1, -3} {
		_, err := NewStratifiedKFold(k, false, 0).Split(X, y)
		var valErr *errors.ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("n_splits=%d: expected ValidationError, got %v", k, err)
		}
	}
}

func TestStratifiedKFold_DimensionMismatch(t *testing.T) {
	_, err := NewStratifiedKFold(2, false, 0).Split(
		mat.NewDense(5, 2, nil), mat.NewDense(4, 1, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

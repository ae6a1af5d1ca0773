// Package cross_decomposition implements PLS-DA, the second classifier
// family of the paper: NIPALS partial least squares regression onto a
// one-hot class indicator matrix, with argmax decoding of the predicted
// indicator scores.
package cross_decomposition

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/core/model"
	"github.com/aeferreira/binsim-paper/metrics"
	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// PLSDAClassifier implements Partial Least Squares Discriminant Analysis.
// Unlike the forest it is fully deterministic: no random state is needed
// for reproducible permutation runs.
type PLSDAClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nComponents int
	maxIter     int
	tol         float64

	// Fitted attributes
	classes_   []int
	nClasses_  int
	nFeatures_ int
	xMeans     []float64
	yMeans     []float64
	coef_      *mat.Dense // p x q regression coefficients
}

// PLSDAOption is a functional option for PLSDAClassifier.
type PLSDAOption func(*PLSDAClassifier)

// NewPLSDAClassifier creates a new PLS-DA classifier.
func NewPLSDAClassifier(opts ...PLSDAOption) *PLSDAClassifier {
	pls := &PLSDAClassifier{
		state:       model.NewStateManager(),
		nComponents: 2,
		maxIter:     500,
		tol:         1e-6,
	}

	for _, opt := range opts {
		opt(pls)
	}
	return pls
}

// WithNComponents sets the number of latent components.
func WithNComponents(n int) PLSDAOption {
	return func(pls *PLSDAClassifier) {
		pls.nComponents = n
	}
}

// WithPLSMaxIter sets the NIPALS iteration cap per component.
func WithPLSMaxIter(n int) PLSDAOption {
	return func(pls *PLSDAClassifier) {
		pls.maxIter = n
	}
}

// WithPLSTol sets the NIPALS convergence tolerance on the score vector.
func WithPLSTol(tol float64) PLSDAOption {
	return func(pls *PLSDAClassifier) {
		pls.tol = tol
	}
}

// Fit trains the PLS-DA model on matrix X and n x 1 label matrix y.
func (pls *PLSDAClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "PLSDAClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("PLSDAClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("PLSDAClassifier.Fit", "y must be a column vector (n×1 matrix)")
	}
	if pls.nComponents < 1 {
		return errors.NewValidationError("n_components", "must be >= 1", pls.nComponents)
	}
	maxRank := nSamples - 1
	if nFeatures < maxRank {
		maxRank = nFeatures
	}
	if pls.nComponents > maxRank {
		return errors.NewValidationError("n_components",
			"must be <= min(n_samples-1, n_features)", pls.nComponents)
	}

	classSet := make(map[int]bool)
	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = int(y.At(i, 0))
		classSet[labels[i]] = true
	}
	pls.classes_ = make([]int, 0, len(classSet))
	for c := range classSet {
		pls.classes_ = append(pls.classes_, c)
	}
	sort.Ints(pls.classes_)
	pls.nClasses_ = len(pls.classes_)
	pls.nFeatures_ = nFeatures

	if pls.nClasses_ < 2 {
		return errors.NewValueError("PLSDAClassifier.Fit", "need at least 2 classes")
	}

	classIndex := make(map[int]int, pls.nClasses_)
	for i, c := range pls.classes_ {
		classIndex[c] = i
	}

	// One-hot indicator matrix.
	Y := mat.NewDense(nSamples, pls.nClasses_, nil)
	for i, label := range labels {
		Y.Set(i, classIndex[label], 1)
	}

	// Center X and Y.
	Xc := mat.DenseCopyOf(X)
	pls.xMeans = centerColumns(Xc)
	Yc := mat.DenseCopyOf(Y)
	pls.yMeans = centerColumns(Yc)

	// NIPALS with deflation of both blocks.
	A := pls.nComponents
	W := mat.NewDense(nFeatures, A, nil)
	P := mat.NewDense(nFeatures, A, nil)
	Q := mat.NewDense(pls.nClasses_, A, nil)

	w := mat.NewVecDense(nFeatures, nil)
	t := mat.NewVecDense(nSamples, nil)
	tOld := mat.NewVecDense(nSamples, nil)
	q := mat.NewVecDense(pls.nClasses_, nil)
	u := mat.NewVecDense(nSamples, nil)
	p := mat.NewVecDense(nFeatures, nil)

	for a := 0; a < A; a++ {
		// Start u from the indicator column with the largest remaining
		// variance.
		u.CopyVec(Yc.ColView(dominantColumn(Yc)))

		didConverge := false
		for iter := 0; iter < pls.maxIter; iter++ {
			// w = Xcᵀu / (uᵀu), normalized
			w.MulVec(Xc.T(), u)
			nw := mat.Norm(w, 2)
			if nw == 0 {
				return errors.NewNumericalInstabilityError("PLSDA.NIPALS", []float64{nw}, a)
			}
			w.ScaleVec(1/nw, w)

			// t = Xc w
			tOld.CopyVec(t)
			t.MulVec(Xc, w)

			// q = Ycᵀt / (tᵀt)
			tt := mat.Dot(t, t)
			if err := errors.CheckScalar("PLSDA.NIPALS", tt, iter); err != nil {
				return err
			}
			if tt == 0 {
				return errors.NewNumericalInstabilityError("PLSDA.NIPALS", []float64{tt}, a)
			}
			q.MulVec(Yc.T(), t)
			q.ScaleVec(1/tt, q)

			// u = Yc q / (qᵀq)
			qq := mat.Dot(q, q)
			u.MulVec(Yc, q)
			u.ScaleVec(errors.SafeDivide(1, qq), u)

			if iter > 0 && converged(t, tOld, pls.tol) {
				didConverge = true
				break
			}
		}
		if !didConverge {
			errors.Warn(errors.NewConvergenceWarning("PLSDA.NIPALS", pls.maxIter,
				fmt.Sprintf("component %d score vector still moving", a+1)))
		}

		// p = Xcᵀt / (tᵀt)
		tt := mat.Dot(t, t)
		p.MulVec(Xc.T(), t)
		p.ScaleVec(1/tt, p)

		// Deflate both blocks.
		deflate(Xc, t, p)
		deflate(Yc, t, q)

		if err := errors.CheckMatrix("PLSDA.deflation", Xc, nSamples, nFeatures, a); err != nil {
			return err
		}

		W.SetCol(a, rawVec(w))
		P.SetCol(a, rawVec(p))
		Q.SetCol(a, rawVec(q))
	}

	// B = W (PᵀW)⁻¹ Qᵀ
	var ptw mat.Dense
	ptw.Mul(P.T(), W)
	var z mat.Dense
	if err := z.Solve(&ptw, Q.T()); err != nil {
		return errors.Wrap(err, "PLSDAClassifier.Fit: singular PᵀW")
	}
	pls.coef_ = &mat.Dense{}
	pls.coef_.Mul(W, &z)

	pls.state.SetDimensions(nFeatures, nSamples)
	pls.state.SetFitted()
	return nil
}

// centerColumns removes the column means in place and returns them.
func centerColumns(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		means[j] = sum / float64(rows)
		for i := 0; i < rows; i++ {
			m.Set(i, j, m.At(i, j)-means[j])
		}
	}
	return means
}

// dominantColumn returns the index of the column with the largest sum of
// squares.
func dominantColumn(m *mat.Dense) int {
	rows, cols := m.Dims()
	best, bestSS := 0, -1.0
	for j := 0; j < cols; j++ {
		ss := 0.0
		for i := 0; i < rows; i++ {
			v := m.At(i, j)
			ss += v * v
		}
		if ss > bestSS {
			best, bestSS = j, ss
		}
	}
	return best
}

// deflate subtracts the rank-one component t·loadᵀ from m in place.
func deflate(m *mat.Dense, t, load *mat.VecDense) {
	var outer mat.Dense
	outer.Outer(1, t, load)
	m.Sub(m, &outer)
}

func converged(t, tOld *mat.VecDense, tol float64) bool {
	diff := 0.0
	norm := 0.0
	for i := 0; i < t.Len(); i++ {
		d := t.AtVec(i) - tOld.AtVec(i)
		diff += d * d
		v := t.AtVec(i)
		norm += v * v
	}
	if norm == 0 {
		return true
	}
	return math.Sqrt(diff/norm) < tol
}

func rawVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// Predict returns the predicted class labels as an n x 1 matrix.
func (pls *PLSDAClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := pls.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := scores.Dims()
	pred := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for j := 1; j < pls.nClasses_; j++ {
			if scores.At(i, j) > scores.At(i, best) {
				best = j
			}
		}
		pred.Set(i, 0, float64(pls.classes_[best]))
	}
	return pred, nil
}

// PredictProba returns the predicted indicator scores, one column per
// class in the order of Classes(). These are regression outputs, not
// calibrated probabilities; they can fall outside [0, 1] but their
// argmax is the predicted class.
func (pls *PLSDAClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !pls.state.IsFitted() {
		return nil, errors.NewNotFittedError("PLSDAClassifier", "PredictProba")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != pls.nFeatures_ {
		return nil, errors.NewDimensionError("PLSDAClassifier.PredictProba", pls.nFeatures_, nFeatures, 1)
	}

	// Ŷ = (X - x̄) B + ȳ
	Xc := mat.DenseCopyOf(X)
	for j := 0; j < nFeatures; j++ {
		for i := 0; i < nSamples; i++ {
			Xc.Set(i, j, Xc.At(i, j)-pls.xMeans[j])
		}
	}

	scores := mat.NewDense(nSamples, pls.nClasses_, nil)
	scores.Mul(Xc, pls.coef_)
	for j := 0; j < pls.nClasses_; j++ {
		for i := 0; i < nSamples; i++ {
			scores.Set(i, j, scores.At(i, j)+pls.yMeans[j])
		}
	}
	return scores, nil
}

// Score returns the mean accuracy on the given test data and labels.
// When prediction fails the accuracy is undefined; a warning is emitted
// and 0 returned.
func (pls *PLSDAClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := pls.Predict(X)
	if err != nil {
		errors.Warn(errors.NewUndefinedMetricWarning("accuracy", err.Error(), 0))
		return 0
	}
	acc, err := metrics.AccuracyMatrix(y, pred)
	if err != nil {
		errors.Warn(errors.NewUndefinedMetricWarning("accuracy", err.Error(), 0))
		return 0
	}
	return acc
}

// Classes returns the class labels seen during fitting, ascending.
func (pls *PLSDAClassifier) Classes() []int {
	return pls.classes_
}

// NComponents returns the configured latent component count.
func (pls *PLSDAClassifier) NComponents() int {
	return pls.nComponents
}

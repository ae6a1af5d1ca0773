// Package ensemble implements the Random Forest classifier used in the
// paper's permutation significance runs: bootstrap-aggregated CART trees
// with sqrt-feature subsampling and soft voting.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/core/model"
	"github.com/aeferreira/binsim-paper/core/parallel"
	"github.com/aeferreira/binsim-paper/metrics"
	"github.com/aeferreira/binsim-paper/pkg/errors"
	"github.com/aeferreira/binsim-paper/sklearn/tree"
)

// RandomForestClassifier implements a random forest of CART trees.
// Compatible with scikit-learn's RandomForestClassifier defaults where
// they matter for the paper (200 trees, sqrt feature subsampling).
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators    int
	maxDepth       int // 0 means unlimited
	minSamplesLeaf int
	maxFeatures    int // per-split candidate features; 0 means sqrt(n_features)
	bootstrap      bool
	randomState    int64

	// Fitted attributes
	trees      []*tree.DecisionTreeClassifier
	classes_   []int
	nClasses_  int
	nFeatures_ int
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a new random forest classifier.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:          model.NewStateManager(),
		nEstimators:    100,
		maxDepth:       0,
		minSamplesLeaf: 1,
		maxFeatures:    0,
		bootstrap:      true,
		randomState:    -1,
	}

	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithForestMaxDepth sets the maximum depth of each tree. Zero means
// unlimited.
func WithForestMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithForestMinSamplesLeaf sets the minimum samples per leaf of each tree.
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithForestMaxFeatures sets the per-split candidate feature count.
// Zero picks sqrt(n_features), the usual choice for classification.
func WithForestMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = n
	}
}

// WithBootstrap toggles bootstrap resampling of the training rows.
func WithBootstrap(bootstrap bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithForestRandomState fixes the root random seed. Per-tree seeds are
// derived from it, so results are reproducible regardless of how the
// trees are scheduled across goroutines.
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// Fit trains the forest on matrix X and n x 1 label matrix y.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("RandomForestClassifier.Fit", "y must be a column vector (n×1 matrix)")
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}

	classSet := make(map[int]bool)
	for i := 0; i < nSamples; i++ {
		classSet[int(y.At(i, 0))] = true
	}
	rf.classes_ = make([]int, 0, len(classSet))
	for c := range classSet {
		rf.classes_ = append(rf.classes_, c)
	}
	sort.Ints(rf.classes_)
	rf.nClasses_ = len(rf.classes_)
	rf.nFeatures_ = nFeatures

	maxFeatures := rf.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	rootSeed := rf.randomState
	if rootSeed < 0 {
		rootSeed = int64(rand.Uint64() >> 1)
	}

	rf.trees = make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	treeErrs := make([]error, rf.nEstimators)

	parallel.Parallelize(rf.nEstimators, func(start, end int) {
		for t := start; t < end; t++ {
			treeSeed := rootSeed + int64(t)

			trainX, trainY := X, y
			if rf.bootstrap {
				trainX, trainY = bootstrapSample(X, y, nSamples, treeSeed)
			}

			dt := tree.NewDecisionTreeClassifier(
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithTreeRandomState(treeSeed),
			)
			if err := dt.Fit(trainX, trainY); err != nil {
				treeErrs[t] = errors.Wrapf(err, "tree %d", t)
				continue
			}
			rf.trees[t] = dt
		}
	})

	for _, err := range treeErrs {
		if err != nil {
			return err
		}
	}

	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// bootstrapSample draws n rows with replacement under a seed of its own,
// keeping tree training independent of goroutine scheduling.
func bootstrapSample(X, y mat.Matrix, nSamples int, seed int64) (mat.Matrix, mat.Matrix) {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))

	_, nFeatures := X.Dims()
	sampleX := mat.NewDense(nSamples, nFeatures, nil)
	sampleY := mat.NewDense(nSamples, 1, nil)

	for i := 0; i < nSamples; i++ {
		idx := rng.IntN(nSamples)
		for j := 0; j < nFeatures; j++ {
			sampleX.Set(i, j, X.At(idx, j))
		}
		sampleY.Set(i, 0, y.At(idx, 0))
	}
	return sampleX, sampleY
}

// Predict returns the soft-voted class labels as an n x 1 matrix.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := probas.Dims()
	pred := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for j := 1; j < rf.nClasses_; j++ {
			if probas.At(i, j) > probas.At(i, best) {
				best = j
			}
		}
		pred.Set(i, 0, float64(rf.classes_[best]))
	}
	return pred, nil
}

// PredictProba averages the per-tree class probabilities. Trees fitted on
// bootstrap samples may have seen only a subset of the classes, so each
// tree's columns are mapped onto the forest's class ordering.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.state.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.nFeatures_ {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures_, nFeatures, 1)
	}

	classIndex := make(map[int]int, rf.nClasses_)
	for i, c := range rf.classes_ {
		classIndex[c] = i
	}

	probas := mat.NewDense(nSamples, rf.nClasses_, nil)
	for _, dt := range rf.trees {
		treeProbas, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for j, c := range dt.Classes() {
			col := classIndex[c]
			for i := 0; i < nSamples; i++ {
				probas.Set(i, col, probas.At(i, col)+treeProbas.At(i, j))
			}
		}
	}

	probas.Scale(1/float64(len(rf.trees)), probas)
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels.
// When prediction fails the accuracy is undefined; a warning is emitted
// and 0 returned.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
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
func (rf *RandomForestClassifier) Classes() []int {
	return rf.classes_
}

// GetFeatureImportances averages the normalized importances of the trees.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	if !rf.state.IsFitted() {
		return nil
	}

	importances := make([]float64, rf.nFeatures_)
	for _, dt := range rf.trees {
		for i, imp := range dt.GetFeatureImportances() {
			importances[i] += imp
		}
	}
	for i := range importances {
		importances[i] /= float64(len(rf.trees))
	}
	return importances
}

// Package tree implements CART decision tree classifiers.
// Compatible with scikit-learn's DecisionTreeClassifier, it is the base
// learner for the ensemble package's Random Forest.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/core/model"
	"github.com/aeferreira/binsim-paper/metrics"
	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// DecisionTreeClassifier implements classification with a CART tree.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features examined per split; 0 means all
	randomState     int64

	// Fitted attributes
	root         *treeNode
	classes_     []int
	nClasses_    int
	nFeatures_   int
	importances_ []float64

	rng *rand.Rand
}

type treeNode struct {
	// Internal node fields
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode

	// Leaf fields
	isLeaf bool
	probs  []float64 // class distribution, indexed like classes_
	class  int       // argmax of probs, as index into classes_
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier.
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new decision tree classifier.
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(dt)
	}

	dt.resetRNG()
	return dt
}

func (dt *DecisionTreeClassifier) resetRNG() {
	if dt.randomState >= 0 {
		dt.rng = rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState)))
	} else {
		dt.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// WithCriterion sets the split quality criterion ("gini" or "entropy").
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth. Zero means unlimited.
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures limits how many randomly chosen features are examined
// at each split. Zero examines all features. Random Forest sets this to
// sqrt(n_features).
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithTreeRandomState fixes the random seed for feature subsampling.
func WithTreeRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// Fit builds the tree from the training matrix X and n x 1 label matrix y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "y must be a column vector (n×1 matrix)")
	}
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}

	dt.resetRNG()

	labels := make([]int, nSamples)
	classSet := make(map[int]bool)
	for i := 0; i < nSamples; i++ {
		labels[i] = int(y.At(i, 0))
		classSet[labels[i]] = true
	}

	dt.classes_ = make([]int, 0, len(classSet))
	for c := range classSet {
		dt.classes_ = append(dt.classes_, c)
	}
	sort.Ints(dt.classes_)
	dt.nClasses_ = len(dt.classes_)
	dt.nFeatures_ = nFeatures

	classIndex := make(map[int]int, dt.nClasses_)
	for i, c := range dt.classes_ {
		classIndex[c] = i
	}
	encoded := make([]int, nSamples)
	for i, label := range labels {
		encoded[i] = classIndex[label]
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	dt.importances_ = make([]float64, nFeatures)
	dt.root = dt.buildNode(X, encoded, indices, 1, nSamples)
	dt.normalizeImportances()

	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()
	return nil
}

// buildNode grows the tree recursively. depth counts from 1 at the root
// so a fitted stump (root split plus leaves) has GetDepth() == 1.
func (dt *DecisionTreeClassifier) buildNode(X mat.Matrix, encoded []int, indices []int, depth, nTotal int) *treeNode {
	counts := make([]float64, dt.nClasses_)
	for _, idx := range indices {
		counts[encoded[idx]]++
	}
	total := float64(len(indices))

	leaf := func() *treeNode {
		probs := make([]float64, dt.nClasses_)
		best := 0
		for i, c := range counts {
			probs[i] = c / total
			if c > counts[best] {
				best = i
			}
		}
		return &treeNode{isLeaf: true, probs: probs, class: best}
	}

	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	if nonZero <= 1 ||
		len(indices) < dt.minSamplesSplit ||
		len(indices) < 2*dt.minSamplesLeaf ||
		(dt.maxDepth > 0 && depth > dt.maxDepth) {
		return leaf()
	}

	bestFeature, bestThreshold, bestDecrease := dt.findBestSplit(X, encoded, indices, counts)
	if bestFeature < 0 {
		return leaf()
	}

	// Weighted impurity decrease, accumulated for feature importances.
	dt.importances_[bestFeature] += total / float64(nTotal) * bestDecrease

	var leftIdx, rightIdx []int
	for _, idx := range indices {
		if X.At(idx, bestFeature) <= bestThreshold {
			leftIdx = append(leftIdx, idx)
		} else {
			rightIdx = append(rightIdx, idx)
		}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      dt.buildNode(X, encoded, leftIdx, depth+1, nTotal),
		right:     dt.buildNode(X, encoded, rightIdx, depth+1, nTotal),
	}
}

// findBestSplit scans candidate features for the threshold with the
// largest impurity decrease. Returns feature -1 when no valid split
// exists.
func (dt *DecisionTreeClassifier) findBestSplit(X mat.Matrix, encoded []int, indices []int, counts []float64) (int, float64, float64) {
	total := float64(len(indices))
	nodeImpurity := dt.impurity(counts, total)

	_, nFeatures := X.Dims()
	features := dt.candidateFeatures(nFeatures)

	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := 1e-12

	type sample struct {
		value float64
		class int
	}
	samples := make([]sample, len(indices))

	for _, f := range features {
		for i, idx := range indices {
			samples[i] = sample{value: X.At(idx, f), class: encoded[idx]}
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

		leftCounts := make([]float64, dt.nClasses_)
		rightCounts := make([]float64, dt.nClasses_)
		copy(rightCounts, counts)

		for i := 1; i < len(samples); i++ {
			c := samples[i-1].class
			leftCounts[c]++
			rightCounts[c]--

			if samples[i].value == samples[i-1].value {
				continue
			}

			nLeft := float64(i)
			nRight := total - nLeft
			if i < dt.minSamplesLeaf || len(samples)-i < dt.minSamplesLeaf {
				continue
			}

			childImpurity := (nLeft*dt.impurity(leftCounts, nLeft) +
				nRight*dt.impurity(rightCounts, nRight)) / total
			decrease := nodeImpurity - childImpurity

			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = f
				bestThreshold = (samples[i-1].value + samples[i].value) / 2
			}
		}
	}

	if bestFeature < 0 {
		return -1, 0, 0
	}
	return bestFeature, bestThreshold, bestDecrease
}

// candidateFeatures returns the features examined at one split: all of
// them, or a random subset of size maxFeatures.
func (dt *DecisionTreeClassifier) candidateFeatures(nFeatures int) []int {
	if dt.maxFeatures <= 0 || dt.maxFeatures >= nFeatures {
		features := make([]int, nFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return dt.rng.Perm(nFeatures)[:dt.maxFeatures]
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	switch dt.criterion {
	case "entropy":
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}
		return h
	default: // gini
		g := 1.0
		for _, c := range counts {
			p := c / total
			g -= p * p
		}
		return g
	}
}

func (dt *DecisionTreeClassifier) normalizeImportances() {
	sum := 0.0
	for _, imp := range dt.importances_ {
		sum += imp
	}
	if sum == 0 {
		return
	}
	for i := range dt.importances_ {
		dt.importances_[i] /= sum
	}
}

// Predict returns the predicted class labels as an n x 1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "Predict")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.Predict", dt.nFeatures_, nFeatures, 1)
	}

	pred := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		node := dt.traverse(X, i)
		pred.Set(i, 0, float64(dt.classes_[node.class]))
	}
	return pred, nil
}

// PredictProba returns class probabilities, one column per class in the
// order of Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures_, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, dt.nClasses_, nil)
	for i := 0; i < nSamples; i++ {
		node := dt.traverse(X, i)
		for j, p := range node.probs {
			probas.Set(i, j, p)
		}
	}
	return probas, nil
}

func (dt *DecisionTreeClassifier) traverse(X mat.Matrix, row int) *treeNode {
	node := dt.root
	for !node.isLeaf {
		if X.At(row, node.feature) <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node
}

// Score returns the mean accuracy on the given test data and labels.
// When prediction fails the accuracy is undefined; a warning is emitted
// and 0 returned.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
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
func (dt *DecisionTreeClassifier) Classes() []int {
	return dt.classes_
}

// GetFeatureImportances returns the normalized impurity-decrease feature
// importances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return dt.importances_
}

// GetDepth returns the depth of the fitted tree. A lone leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return nodeDepth(dt.root)
}

func nodeDepth(n *treeNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	left := nodeDepth(n.left)
	right := nodeDepth(n.right)
	if left > right {
		return left + 1
	}
	return right + 1
}

// GetNLeaves returns the number of leaves in the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return nodeLeaves(dt.root)
}

func nodeLeaves(n *treeNode) int {
	if n == nil {
		return 0
	}
	if n.isLeaf {
		return 1
	}
	return nodeLeaves(n.left) + nodeLeaves(n.right)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters from a map.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = v
		case "max_depth":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.maxDepth = v
		case "min_samples_split":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesSplit = v
		case "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesLeaf = v
		case "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.maxFeatures = v
		case "random_state":
			v, ok := value.(int64)
			if !ok {
				vi, oki := value.(int)
				if !oki {
					return errors.NewValidationError(key, "must be an int64", value)
				}
				v = int64(vi)
			}
			dt.randomState = v
			dt.resetRNG()
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

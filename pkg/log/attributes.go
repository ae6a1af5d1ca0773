// Standard attribute keys for analysis logging.
//
// Using these keys consistently keeps the permutation-run logs filterable:
// every record of a run carries the dataset, treatment and classifier it
// belongs to, so a single jq expression can slice a batch log by any of
// the paper's experimental axes.

package log

// Experiment context
const (
	// DatasetKey identifies the dataset being analysed.
	DatasetKey = "dataset"

	// TreatmentKey identifies the pre-treatment variant of the data matrix
	// (e.g. "pareto", "glog", "norm", "binsim").
	TreatmentKey = "treatment"

	// ClassifierKey identifies the classifier family ("random_forest",
	// "plsda").
	ClassifierKey = "classifier"

	// OperationKey specifies the operation being performed
	// (e.g. "cross_val", "permutation_test").
	OperationKey = "operation"
)

// Data shape
const (
	// SamplesKey indicates the number of samples (rows) in the matrix.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the matrix.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct target classes.
	ClassesKey = "data.classes"
)

// Test configuration and outcomes
const (
	// FoldsKey records the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// PermutationsKey records the number of permutation trials.
	PermutationsKey = "cv.permutations"

	// SeedKey records the root random seed of a run.
	SeedKey = "cv.seed"

	// AccuracyKey records a cross-validated accuracy.
	AccuracyKey = "metrics.accuracy"

	// PValueKey records the empirical permutation p-value.
	PValueKey = "metrics.p_value"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

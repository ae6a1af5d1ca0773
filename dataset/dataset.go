// Package dataset defines the labeled data records the analysis runs on.
//
// A Dataset bundles one metabolomics data matrix (samples x features)
// with its integer-encoded class labels and any number of pre-treated
// variants of the matrix (Pareto scaled, normalized, glog transformed,
// binary simplified). The transforms themselves happen outside this
// module; here a treatment is just a named matrix that must agree with
// the target vector in sample count and ordering.
package dataset

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

// Dataset is one experimental dataset of the study.
type Dataset struct {
	Name             string
	BiologicalSource string
	AcquisitionMode  string // "positive" or "negative" ionization
	Alignment        string // peak alignment method used upstream

	x          *mat.Dense
	target     []int
	treatments map[string]*mat.Dense
}

// Option configures optional Dataset metadata.
type Option func(*Dataset)

// WithBiologicalSource sets the biological source annotation.
func WithBiologicalSource(source string) Option {
	return func(d *Dataset) {
		d.BiologicalSource = source
	}
}

// WithAcquisitionMode sets the MS acquisition mode annotation.
func WithAcquisitionMode(mode string) Option {
	return func(d *Dataset) {
		d.AcquisitionMode = mode
	}
}

// WithAlignment sets the peak alignment annotation.
func WithAlignment(alignment string) Option {
	return func(d *Dataset) {
		d.Alignment = alignment
	}
}

// New creates a Dataset from the untreated data matrix and its labels.
// The label slice length must equal the matrix row count.
func New(name string, x *mat.Dense, target []int, opts ...Option) (*Dataset, error) {
	if x == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	rows, _ := x.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	if len(target) != rows {
		return nil, errors.NewDimensionError("dataset.New", rows, len(target), 0)
	}

	d := &Dataset{
		Name:       name,
		x:          x,
		target:     target,
		treatments: make(map[string]*mat.Dense),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// AddTreatment registers a pre-treated variant of the data matrix.
// The variant must have the same sample count and ordering as the target
// vector; the feature count may differ (BinSim drops constant features).
func (d *Dataset) AddTreatment(name string, x *mat.Dense) error {
	if x == nil {
		return errors.Wrap(errors.ErrEmptyData, "dataset.AddTreatment")
	}
	rows, _ := x.Dims()
	if rows != len(d.target) {
		return errors.NewDimensionError("dataset.AddTreatment", len(d.target), rows, 0)
	}
	d.treatments[name] = x
	return nil
}

// Treatment returns the named treated matrix.
func (d *Dataset) Treatment(name string) (*mat.Dense, error) {
	x, ok := d.treatments[name]
	if !ok {
		return nil, errors.Newf("dataset %q has no treatment %q", d.Name, name)
	}
	return x, nil
}

// TreatmentNames returns the registered treatment names in sorted order,
// so batch runs iterate deterministically.
func (d *Dataset) TreatmentNames() []string {
	names := make([]string, 0, len(d.treatments))
	for name := range d.treatments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// X returns the untreated data matrix.
func (d *Dataset) X() *mat.Dense {
	return d.x
}

// Target returns the class labels, one per sample row.
func (d *Dataset) Target() []int {
	return d.target
}

// TargetMatrix returns the labels as an n x 1 matrix, the shape the
// estimators consume.
func (d *Dataset) TargetMatrix() *mat.Dense {
	y := mat.NewDense(len(d.target), 1, nil)
	for i, label := range d.target {
		y.Set(i, 0, float64(label))
	}
	return y
}

// NSamples returns the number of samples.
func (d *Dataset) NSamples() int {
	return len(d.target)
}

// NFeatures returns the feature count of the untreated matrix.
func (d *Dataset) NFeatures() int {
	_, cols := d.x.Dims()
	return cols
}

// Classes returns the distinct class labels in ascending order.
func (d *Dataset) Classes() []int {
	seen := make(map[int]bool)
	for _, label := range d.target {
		seen[label] = true
	}
	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)
	return classes
}

// ClassCounts returns the number of samples per class, keyed by label.
func (d *Dataset) ClassCounts() map[int]int {
	counts := make(map[int]int)
	for _, label := range d.target {
		counts[label]++
	}
	return counts
}

// Validate re-checks the shared-sample-count invariant across every
// registered treatment. Useful after matrices arrive from external I/O.
func (d *Dataset) Validate() error {
	rows, _ := d.x.Dims()
	if rows != len(d.target) {
		return errors.NewDimensionError("dataset.Validate", len(d.target), rows, 0)
	}
	for name, x := range d.treatments {
		r, _ := x.Dims()
		if r != len(d.target) {
			return errors.Wrapf(
				errors.NewDimensionError("dataset.Validate", len(d.target), r, 0),
				"treatment %q", name)
		}
	}
	return nil
}

// Package binsim holds the computation layer behind the Binary
// Simplification (BinSim) metabolomics paper: permutation significance
// testing of classifier accuracy across datasets and pre-treatments.
//
// The paper compares BinSim against standard scaling and normalization
// pipelines (Pareto scaling, normalization, glog transform) by asking,
// for every dataset and every pre-treatment, whether the cross-validated
// accuracy of a Random Forest or PLS-DA classifier is significantly
// better than chance. Significance is assessed with label-permutation
// tests following Ojala and Garriga (JMLR 2010).
//
// The transforms themselves and all figure generation live outside this
// module; callers supply already-transformed matrices and labels.
//
// # Layout
//
//   - dataset: labeled data matrices and their treatment variants
//   - sklearn/tree, sklearn/ensemble: CART trees and Random Forest
//   - sklearn/cross_decomposition: PLS-DA
//   - sklearn/model_selection: stratified k-fold CV and the permutation
//     significance tester
//   - results: result records and their JSON persistence
//   - metrics: classification metrics
//
// # Quick start
//
//	X := ... // samples x features matrix for one treatment
//	y := ... // integer class labels, one per row of X
//
//	baseline, perms, p, err := model_selection.PermutationTestScore(
//	    X, y,
//	    func() model_selection.Classifier {
//	        return ensemble.NewRandomForestClassifier(
//	            ensemble.WithNEstimators(200),
//	            ensemble.WithForestRandomState(1),
//	        )
//	    },
//	    model_selection.WithNPermutations(100),
//	    model_selection.WithNSplits(5),
//	    model_selection.WithRandomState(1),
//	)
package binsim

// Package ml holds the supervised-learning pieces behind model-based
// strategies: a classifier capability, a deterministic logistic-regression
// implementation, feature scaling, and rolling-origin evaluation.
//
// Training is an offline step; the fitted classifier is an immutable
// artefact owned by the strategy that uses it.
package ml

import (
	"github.com/rustyeddy/quantlab/quanterr"
)

// Classifier is the capability a model-based strategy needs: fit once on a
// feature matrix and binary target, then emit positive-class probabilities.
type Classifier interface {
	Fit(X [][]float64, y []float64) error
	PredictProba(X [][]float64) ([]float64, error)
	Trained() bool
}

// Factory builds a fresh, unfitted classifier. Evaluation fits one per fold
// so no state leaks across fold boundaries.
type Factory func() Classifier

// Metrics summarises a held-out evaluation.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	CVScores  []float64
}

// Fold is one rolling-origin split: train on [0, TrainEnd), test on
// [TrainEnd, TestEnd).
type Fold struct {
	TrainEnd int
	TestEnd  int
}

// TimeSeriesSplit produces rolling-origin folds in the sklearn style: equal
// test blocks, each fold training on everything before its test block.
// Random shuffling would leak future information and is deliberately not
// offered.
func TimeSeriesSplit(n, folds int) ([]Fold, error) {
	if folds < 2 {
		return nil, quanterr.Contractf("ml", folds, "need at least 2 folds")
	}
	testSize := n / (folds + 1)
	if testSize < 1 {
		return nil, quanterr.Contractf("ml", n, "not enough samples for %d folds", folds)
	}

	out := make([]Fold, 0, folds)
	for i := 1; i <= folds; i++ {
		trainEnd := n - (folds-i+1)*testSize
		if trainEnd < 1 {
			continue
		}
		out = append(out, Fold{TrainEnd: trainEnd, TestEnd: trainEnd + testSize})
	}
	if len(out) < 2 {
		return nil, quanterr.Contractf("ml", n, "not enough samples for %d folds", folds)
	}
	return out, nil
}

// Evaluate fits a fresh classifier on the chronological head of (X, y) and
// scores it on the tail, then runs rolling-origin cross-validation inside
// the training portion. testFraction is the tail share held out.
func Evaluate(newClf Factory, X [][]float64, y []float64, testFraction float64, cvFolds int) (Metrics, error) {
	if len(X) == 0 || len(X) != len(y) {
		return Metrics{}, quanterr.Contractf("ml", len(X), "X and y must be non-empty and aligned (len(y)=%d)", len(y))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return Metrics{}, quanterr.Contractf("ml", testFraction, "test fraction must be in (0, 1)")
	}

	split := int(float64(len(X)) * (1 - testFraction))
	if split < 1 || split >= len(X) {
		return Metrics{}, quanterr.Contractf("ml", split, "split leaves an empty train or test set")
	}

	clf := newClf()
	if err := clf.Fit(X[:split], y[:split]); err != nil {
		return Metrics{}, err
	}
	proba, err := clf.PredictProba(X[split:])
	if err != nil {
		return Metrics{}, err
	}
	m := classificationMetrics(proba, y[split:])

	// Rolling-origin CV on the training slice only, one fresh classifier
	// (and therefore one fresh scaler fit) per fold.
	if cvFolds > 1 && split >= cvFolds*10 {
		folds, err := TimeSeriesSplit(split, cvFolds)
		if err == nil {
			for _, f := range folds {
				cvClf := newClf()
				if err := cvClf.Fit(X[:f.TrainEnd], y[:f.TrainEnd]); err != nil {
					continue
				}
				p, err := cvClf.PredictProba(X[f.TrainEnd:f.TestEnd])
				if err != nil {
					continue
				}
				fm := classificationMetrics(p, y[f.TrainEnd:f.TestEnd])
				m.CVScores = append(m.CVScores, fm.Accuracy)
			}
		}
	}

	return m, nil
}

func classificationMetrics(proba, y []float64) Metrics {
	var tp, tn, fp, fn float64
	for i, p := range proba {
		pred := 0.0
		if p > 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && y[i] == 1:
			tp++
		case pred == 0 && y[i] == 0:
			tn++
		case pred == 1 && y[i] == 0:
			fp++
		default:
			fn++
		}
	}

	m := Metrics{}
	total := tp + tn + fp + fn
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

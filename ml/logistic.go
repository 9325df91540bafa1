package ml

import (
	"math"

	"github.com/rustyeddy/quantlab/quanterr"
)

// LogisticConfig holds the training hyperparameters of the logistic
// classifier. Zero values are replaced with the defaults at construction.
type LogisticConfig struct {
	LearningRate float64 // default 0.1
	Epochs       int     // default 300
	L2           float64 // default 1e-4
}

// Logistic is a full-batch gradient-descent logistic regression with an
// embedded standard scaler. Weights start at zero and the descent has no
// stochastic component, so training is deterministic for identical input.
type Logistic struct {
	cfg     LogisticConfig
	scaler  Scaler
	weights []float64
	bias    float64
	trained bool
}

func NewLogistic(cfg LogisticConfig) *Logistic {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 300
	}
	if cfg.L2 <= 0 {
		cfg.L2 = 1e-4
	}
	return &Logistic{cfg: cfg}
}

func (l *Logistic) Trained() bool { return l.trained }

func (l *Logistic) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return quanterr.Contractf("ml", len(X), "X and y must be non-empty and aligned (len(y)=%d)", len(y))
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return quanterr.Contractf("ml", v, "target must be binary")
		}
	}

	if err := l.scaler.Fit(X); err != nil {
		return err
	}
	scaled := l.scaler.Transform(X)

	n := float64(len(scaled))
	cols := len(scaled[0])
	l.weights = make([]float64, cols)
	l.bias = 0

	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		gradW := make([]float64, cols)
		gradB := 0.0
		for i, row := range scaled {
			err := sigmoid(dot(l.weights, row)+l.bias) - y[i]
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range l.weights {
			l.weights[j] -= l.cfg.LearningRate * (gradW[j]/n + l.cfg.L2*l.weights[j])
		}
		l.bias -= l.cfg.LearningRate * gradB / n
	}

	l.trained = true
	return nil
}

// PredictProba returns the positive-class probability for each row.
func (l *Logistic) PredictProba(X [][]float64) ([]float64, error) {
	if !l.trained {
		return nil, quanterr.Contractf("ml", nil, "classifier is not fitted")
	}

	scaled := l.scaler.Transform(X)
	out := make([]float64, len(scaled))
	for i, row := range scaled {
		if len(row) != len(l.weights) {
			return nil, quanterr.Contractf("ml", len(row),
				"feature vector width mismatch (trained on %d)", len(l.weights))
		}
		out[i] = sigmoid(dot(l.weights, row) + l.bias)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

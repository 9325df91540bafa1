package strategies

import (
	"fmt"

	"github.com/rustyeddy/quantlab/features"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/ml"
	"github.com/rustyeddy/quantlab/quanterr"
)

// MLStrategyConfig holds the probability thresholds. The gap between entry
// and exit produces hysteresis: the position is held while the probability
// sits between the two, which damps oscillation near a single boundary.
type MLStrategyConfig struct {
	EntryThreshold float64
	ExitThreshold  float64
}

func MLStrategyDefaults() MLStrategyConfig {
	return MLStrategyConfig{EntryThreshold: 0.6, ExitThreshold: 0.4}
}

// MLStrategy owns a fitted classifier and the feature builder that produced
// its training matrix. It does not retrain; training is an offline step.
type MLStrategy struct {
	clf     ml.Classifier
	builder *features.Builder
	cfg     MLStrategyConfig
}

func NewMLStrategy(clf ml.Classifier, builder *features.Builder, cfg MLStrategyConfig) (*MLStrategy, error) {
	if clf == nil {
		return nil, quanterr.Contractf("strategies", nil, "classifier is required")
	}
	if builder == nil {
		return nil, quanterr.Contractf("strategies", nil, "feature builder is required")
	}
	if cfg.EntryThreshold <= 0 || cfg.EntryThreshold >= 1 {
		return nil, quanterr.Contractf("strategies", cfg.EntryThreshold, "entry_threshold must be in (0, 1)")
	}
	if cfg.ExitThreshold >= cfg.EntryThreshold {
		return nil, quanterr.Contractf("strategies", cfg.ExitThreshold,
			"exit_threshold must be < entry_threshold (%v)", cfg.EntryThreshold)
	}
	if cfg.ExitThreshold < 0 {
		return nil, quanterr.Contractf("strategies", cfg.ExitThreshold, "exit_threshold must be >= 0")
	}
	return &MLStrategy{clf: clf, builder: builder, cfg: cfg}, nil
}

func (s *MLStrategy) Name() string {
	return fmt.Sprintf("ml_thresh_%.2f_%.2f", s.cfg.EntryThreshold, s.cfg.ExitThreshold)
}

func (s *MLStrategy) Params() map[string]float64 {
	return map[string]float64{
		"entry_threshold": s.cfg.EntryThreshold,
		"exit_threshold":  s.cfg.ExitThreshold,
	}
}

// GenerateSignals thresholds the classifier's positive-class probability.
// Bars whose feature row is incomplete emit no signal; an unfitted
// classifier is an error.
func (s *MLStrategy) GenerateSignals(prices *market.Series) (*SignalFrame, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("strategies", nil, "prices is empty")
	}
	if !s.clf.Trained() {
		return nil, quanterr.Contractf("strategies", nil, "classifier is not fitted")
	}

	feats, err := s.builder.Features(prices)
	if err != nil {
		return nil, err
	}

	valid := make([]int, 0, feats.Len())
	rows := make([][]float64, 0, feats.Len())
	for i := 0; i < feats.Len(); i++ {
		if !feats.RowHasNaN(i) {
			valid = append(valid, i)
			rows = append(rows, feats.Row(i))
		}
	}

	entries := make([]bool, prices.Len())
	exits := make([]bool, prices.Len())

	if len(rows) > 0 {
		proba, err := s.clf.PredictProba(rows)
		if err != nil {
			return nil, err
		}
		for k, i := range valid {
			entries[i] = proba[k] > s.cfg.EntryThreshold
			exits[i] = proba[k] < s.cfg.ExitThreshold
		}
	}

	return NewSignalFrame(prices.Times(), entries, exits)
}

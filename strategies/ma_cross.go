package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/quanterr"
)

type MAType string

const (
	Simple      MAType = "simple"
	Exponential MAType = "exponential"
)

// MACrossConfig parameterises the moving-average cross strategy.
type MACrossConfig struct {
	FastPeriod int
	SlowPeriod int
	MAType     MAType
}

func MACrossDefaults() MACrossConfig {
	return MACrossConfig{FastPeriod: 10, SlowPeriod: 50, MAType: Simple}
}

// MACross enters on the bar where the fast MA crosses strictly above the
// slow MA and exits on the symmetric downward cross. Pre-warmup bars
// produce no signals.
type MACross struct {
	cfg MACrossConfig
}

func NewMACross(cfg MACrossConfig) (*MACross, error) {
	if cfg.FastPeriod < 1 {
		return nil, quanterr.Contractf("strategies", cfg.FastPeriod, "fast_period must be >= 1")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, quanterr.Contractf("strategies", cfg.FastPeriod,
			"fast_period must be < slow_period (%d)", cfg.SlowPeriod)
	}
	if cfg.MAType != Simple && cfg.MAType != Exponential {
		return nil, quanterr.Contractf("strategies", string(cfg.MAType), "ma_type must be simple or exponential")
	}
	return &MACross{cfg: cfg}, nil
}

func (s *MACross) Name() string {
	return fmt.Sprintf("ma_cross_%s_%d_%d", s.cfg.MAType, s.cfg.FastPeriod, s.cfg.SlowPeriod)
}

func (s *MACross) Params() map[string]float64 {
	return map[string]float64{
		"fast_period": float64(s.cfg.FastPeriod),
		"slow_period": float64(s.cfg.SlowPeriod),
	}
}

func (s *MACross) GenerateSignals(prices *market.Series) (*SignalFrame, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("strategies", nil, "prices is empty")
	}

	close := prices.Closes()

	ma := indicators.SMA
	if s.cfg.MAType == Exponential {
		ma = indicators.EMA
	}
	fast, err := ma(close, s.cfg.FastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := ma(close, s.cfg.SlowPeriod)
	if err != nil {
		return nil, err
	}

	entries := make([]bool, len(close))
	exits := make([]bool, len(close))
	for i := 1; i < len(close); i++ {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) ||
			math.IsNaN(fast[i-1]) || math.IsNaN(slow[i-1]) {
			continue
		}
		entries[i] = fast[i] > slow[i] && fast[i-1] <= slow[i-1]
		exits[i] = fast[i] < slow[i] && fast[i-1] >= slow[i-1]
	}

	return NewSignalFrame(prices.Times(), entries, exits)
}

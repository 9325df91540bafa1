// Package market holds the OHLCV bar series that every other component
// consumes. A Series is an immutable, validated, time-ordered slice of bars.
package market

import "time"

// Bar is one OHLCV observation at the series' sampling period.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundTo rounds half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 rounds a USD amount to cents.
func Round2(v float64) float64 {
	return RoundTo(v, 2)
}

// RoundWhole rounds a local currency amount to whole units.
func RoundWhole(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

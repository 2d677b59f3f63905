package domain

import "time"

// FxSnapshot freezes an exchange rate for a bounded validity window.
// A snapshot is superseded by a new one, never mutated.
type FxSnapshot struct {
	ID                 string    `json:"id"`
	Rate               float64   `json:"rate"`
	Timestamp          time.Time `json:"timestamp"`
	FromCurrency       string    `json:"from_currency"`
	ToCurrency         string    `json:"to_currency"`
	ExpiresAt          time.Time `json:"expires_at"`
	VariationThreshold float64   `json:"variation_threshold"`
}

// FxQuote is a single observation from a rate source.
type FxQuote struct {
	FromCurrency string    `json:"from"`
	ToCurrency   string    `json:"to"`
	Rate         float64   `json:"rate"`
	ObservedAt   time.Time `json:"observed_at"`
}

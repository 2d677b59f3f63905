package pricing

import (
	"errors"
	"math"
	"time"

	"vehicle-risk-backend/internal/domain"

	"github.com/google/uuid"
)

const (
	// DefaultFxValidity is how long a frozen rate may be used.
	DefaultFxValidity = 7 * 24 * time.Hour
	// DefaultVariationThreshold is the relative drift that forces revalidation.
	DefaultVariationThreshold = 0.10
)

var ErrInvalidFxRate = errors.New("fx rate must be a positive finite number")

// ValidateFxRate rejects zero, negative, NaN and infinite rates.
func ValidateFxRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 1) {
		return ErrInvalidFxRate
	}
	return nil
}

// NewFxSnapshot freezes a rate observed at ts.
func NewFxSnapshot(from, to string, rate float64, ts time.Time, validity time.Duration, threshold float64) (*domain.FxSnapshot, error) {
	if err := ValidateFxRate(rate); err != nil {
		return nil, err
	}
	if validity <= 0 {
		validity = DefaultFxValidity
	}
	if threshold <= 0 {
		threshold = DefaultVariationThreshold
	}
	return &domain.FxSnapshot{
		ID:                 uuid.NewString(),
		Rate:               rate,
		Timestamp:          ts,
		FromCurrency:       from,
		ToCurrency:         to,
		ExpiresAt:          ts.Add(validity),
		VariationThreshold: threshold,
	}, nil
}

// IsFxExpired reports whether the snapshot left its validity window. Expiry is one-way.
func IsFxExpired(s *domain.FxSnapshot, now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// FxVariation is the relative drift between two rates.
func FxVariation(oldRate, newRate float64) float64 {
	if oldRate == 0 {
		return math.Inf(1)
	}
	return math.Abs(newRate-oldRate) / oldRate
}

// NeedsRevalidation reports whether old can no longer be used given a fresh rate.
func NeedsRevalidation(old *domain.FxSnapshot, newRate float64, now time.Time) bool {
	if old == nil {
		return false
	}
	if IsFxExpired(old, now) {
		return true
	}
	threshold := old.VariationThreshold
	if threshold <= 0 {
		threshold = DefaultVariationThreshold
	}
	return FxVariation(old.Rate, newRate) > threshold
}

// Revalidate returns a new snapshot when old is stale, or old itself otherwise.
// old is never modified.
func Revalidate(old *domain.FxSnapshot, quote domain.FxQuote, now time.Time) (*domain.FxSnapshot, bool, error) {
	if old != nil && !NeedsRevalidation(old, quote.Rate, now) {
		return old, false, nil
	}
	validity := DefaultFxValidity
	threshold := DefaultVariationThreshold
	if old != nil {
		validity = old.ExpiresAt.Sub(old.Timestamp)
		threshold = old.VariationThreshold
	}
	ts := quote.ObservedAt
	if ts.IsZero() {
		ts = now
	}
	next, err := NewFxSnapshot(quote.FromCurrency, quote.ToCurrency, quote.Rate, ts, validity, threshold)
	if err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// Convert turns a source-currency amount into the target currency.
func Convert(amount float64, s *domain.FxSnapshot) float64 {
	return amount * s.Rate
}

// ConvertReverse turns a target-currency amount back into the source currency.
func ConvertReverse(amount float64, s *domain.FxSnapshot) float64 {
	return amount / s.Rate
}

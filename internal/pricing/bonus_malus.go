package pricing

import (
	"fmt"
	"math"
	"time"

	"vehicle-risk-backend/internal/domain"
)

// DefaultRecalculationInterval is how long a computed factor stays valid.
const DefaultRecalculationInterval = 7 * 24 * time.Hour

const (
	experienceTarget  = 10
	verifiedDiscount  = -0.03
	excellenceRating  = 4.8
	excellenceCancels = 0.05
	excellenceTrips   = 20
)

// RatingFactor rewards high ratings and penalizes low ones. Users without a rating get 0.
func RatingFactor(rating float64) float64 {
	switch {
	case rating <= 0:
		return 0
	case rating >= 4.8:
		return -0.05
	case rating >= 4.5:
		return -0.03
	case rating >= 4.0:
		return 0
	case rating >= 3.5:
		return 0.05
	case rating >= 3.0:
		return 0.10
	default:
		return 0.20
	}
}

func CancellationFactor(rate float64) float64 {
	switch {
	case rate < 0.05:
		return -0.02
	case rate < 0.10:
		return 0
	case rate < 0.20:
		return 0.05
	case rate < 0.30:
		return 0.10
	default:
		return 0.20
	}
}

func CompletionFactor(completed int) float64 {
	switch {
	case completed >= 50:
		return -0.05
	case completed >= 20:
		return -0.03
	case completed >= 10:
		return -0.01
	default:
		return 0
	}
}

func VerificationFactor(verified bool) float64 {
	if verified {
		return verifiedDiscount
	}
	return 0
}

// ComputeFactor derives a full factor record from behavioral metrics.
// The result is deterministic for a given (metrics, now, interval).
func ComputeFactor(m domain.BehavioralMetrics, now time.Time, interval time.Duration) *domain.BonusMalusFactor {
	if interval <= 0 {
		interval = DefaultRecalculationInterval
	}
	f := &domain.BonusMalusFactor{
		UserID:              m.UserID,
		RatingFactor:        RatingFactor(m.AverageRating),
		CancellationFactor:  CancellationFactor(m.CancellationRate),
		CompletionFactor:    CompletionFactor(m.CompletedRentals),
		VerificationFactor:  VerificationFactor(m.IsVerified),
		Metrics:             m,
		LastCalculatedAt:    now,
		NextRecalculationAt: now.Add(interval),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	f.TotalFactor = RoundTo(f.RatingFactor+f.CancellationFactor+f.CompletionFactor+f.VerificationFactor, 4)
	return f
}

// NeedsRecalculation reports whether the factor lease has run out.
func NeedsRecalculation(f *domain.BonusMalusFactor, now time.Time) bool {
	if f == nil {
		return true
	}
	return now.After(f.NextRecalculationAt)
}

// ClassifyFactor converts a factor into its display record.
func ClassifyFactor(factor float64) domain.BonusMalusDisplay {
	pct := RoundTo(math.Abs(factor*100), 0)

	switch {
	case factor < -0.05:
		return domain.BonusMalusDisplay{
			Type:       domain.BonusMalusTypeBonus,
			Percentage: pct,
			Message:    fmt.Sprintf("You have a %.0f%% discount!", pct),
			Icon:       "🎉",
			Tips:       []string{"Keep up your excellent reputation to keep earning discounts."},
		}
	case factor < 0:
		return domain.BonusMalusDisplay{
			Type:       domain.BonusMalusTypeBonus,
			Percentage: pct,
			Message:    fmt.Sprintf("You have a %.0f%% discount", pct),
			Icon:       "✨",
			Tips:       []string{"Complete more bookings and keep a good rating to grow your discount."},
		}
	case factor == 0:
		return domain.BonusMalusDisplay{
			Type:       domain.BonusMalusTypeNeutral,
			Percentage: 0,
			Message:    "Standard price, no adjustments",
			Icon:       "➖",
			Tips: []string{
				"Complete bookings and earn good ratings to unlock discounts.",
				"Avoid cancellations so you are not surcharged.",
			},
		}
	case factor <= 0.05:
		return domain.BonusMalusDisplay{
			Type:       domain.BonusMalusTypeMalus,
			Percentage: pct,
			Message:    fmt.Sprintf("You have a %.0f%% surcharge", pct),
			Icon:       "⚠️",
			Tips: []string{
				"Improve your rating by completing successful bookings.",
				"Avoid cancellations to reduce the surcharge.",
			},
		}
	default:
		return domain.BonusMalusDisplay{
			Type:       domain.BonusMalusTypeMalus,
			Percentage: pct,
			Message:    fmt.Sprintf("You have a %.0f%% surcharge", pct),
			Icon:       "⛔",
			Tips: []string{
				"Your history needs to improve to reduce the surcharge.",
				"Complete bookings without incidents and earn better ratings.",
				"Verify your identity to reduce the surcharge.",
			},
		}
	}
}

// CalculateMonetaryImpact applies a factor to a base price.
func CalculateMonetaryImpact(basePrice, factor float64) domain.MonetaryImpact {
	adjusted := Round2(basePrice * (1 + factor))
	return domain.MonetaryImpact{
		AdjustedPrice:    adjusted,
		Difference:       Round2(adjusted - basePrice),
		PercentageChange: RoundTo(factor*100, 1),
	}
}

// ImprovementTips lists independent, additive suggestions in a stable order.
func ImprovementTips(m domain.BehavioralMetrics) []string {
	tips := []string{}

	if m.AverageRating < 4.0 && m.AverageRating > 0 {
		tips = append(tips, fmt.Sprintf(
			"📊 Improve your rating: you currently have %.1f/5.0. Focus on communication and punctuality.",
			m.AverageRating))
	}
	if m.CancellationRate > 0.10 {
		tips = append(tips, fmt.Sprintf(
			"🚫 Reduce cancellations: your current rate is %.0f%%. Avoid cancelling confirmed bookings.",
			m.CancellationRate*100))
	}
	if m.CompletedRentals < experienceTarget {
		tips = append(tips, fmt.Sprintf(
			"🚗 Gain experience: complete %d more bookings to unlock better discounts.",
			experienceTarget-m.CompletedRentals))
	}
	if !m.IsVerified {
		tips = append(tips, "✅ Verify your identity: verified users get up to 3% extra discount.")
	}
	if m.AverageRating >= excellenceRating &&
		m.CancellationRate < excellenceCancels &&
		m.IsVerified &&
		m.CompletedRentals >= excellenceTrips {
		tips = append(tips, "🏆 Excellent! You have the maximum discount available. Keep up this level of service.")
	}

	return tips
}

// TierFor derives the renter tier from a factor and verification status.
func TierFor(factor float64, verified bool) domain.UserTier {
	switch {
	case verified && factor <= -0.05:
		return domain.UserTierElite
	case verified && factor <= 0:
		return domain.UserTierTrusted
	default:
		return domain.UserTierStandard
	}
}

// DepositDiscount is the share of the deposit waived for a tier.
func DepositDiscount(tier domain.UserTier) float64 {
	switch tier {
	case domain.UserTierElite:
		return 1.0
	case domain.UserTierTrusted:
		return 0.5
	default:
		return 0
	}
}

// ShouldWaiveDeposit reports whether the tier pays no deposit at all.
func ShouldWaiveDeposit(tier domain.UserTier) bool {
	return DepositDiscount(tier) >= 1.0
}

// AdjustDeposit applies a tier discount to a base deposit.
func AdjustDeposit(baseCents int64, tier domain.UserTier) domain.DepositAdjustment {
	discount := DepositDiscount(tier)
	adjusted := RoundWhole(float64(baseCents) * (1 - discount))
	return domain.DepositAdjustment{
		BaseDepositCents:     baseCents,
		AdjustedDepositCents: adjusted,
		SavingsCents:         baseCents - adjusted,
		Factor:               -discount,
		Tier:                 tier,
	}
}

// RiskLevelFor buckets a factor into a coarse risk label.
func RiskLevelFor(factor float64) domain.RiskLevel {
	switch {
	case factor <= -0.10:
		return domain.RiskLevelLow
	case factor >= 0.10:
		return domain.RiskLevelHigh
	default:
		return domain.RiskLevelMedium
	}
}

// Stats aggregates factors for the admin overview.
func Stats(factors []float64) domain.BonusMalusStats {
	stats := domain.BonusMalusStats{TotalUsers: len(factors)}
	if len(factors) == 0 {
		return stats
	}
	var sum float64
	for _, f := range factors {
		switch {
		case f < 0:
			stats.UsersWithBonus++
		case f > 0:
			stats.UsersWithMalus++
		default:
			stats.UsersNeutral++
		}
		sum += f
	}
	stats.AverageFactor = RoundTo(sum/float64(len(factors)), 4)
	return stats
}

package domain

import "time"

// BehavioralMetrics is the renter history the bonus-malus engine reads.
// Owned by the metrics source; never written by this service.
type BehavioralMetrics struct {
	UserID             string    `json:"user_id"`
	AverageRating      float64   `json:"average_rating"`
	OwnerRating        float64   `json:"owner_rating"`
	RenterRating       float64   `json:"renter_rating"`
	CancellationRate   float64   `json:"cancellation_rate"`
	TotalRentals       int       `json:"total_rentals"`
	CompletedRentals   int       `json:"completed_rentals"`
	IsVerified         bool      `json:"is_verified"`
	OwnerReviewsCount  int       `json:"owner_reviews_count"`
	RenterReviewsCount int       `json:"renter_reviews_count"`
	UpdatedOn          time.Time `json:"updated_on"`
}

// ReviewsCount is the number of reviews the average rating is based on.
func (m BehavioralMetrics) ReviewsCount() int {
	return m.OwnerReviewsCount + m.RenterReviewsCount
}

// BonusMalusFactor is the persisted per-user pricing adjustment.
// Negative totals are discounts, positive totals are surcharges.
type BonusMalusFactor struct {
	UserID              string            `json:"user_id"`
	TotalFactor         float64           `json:"total_factor"`
	RatingFactor        float64           `json:"rating_factor"`
	CancellationFactor  float64           `json:"cancellation_factor"`
	CompletionFactor    float64           `json:"completion_factor"`
	VerificationFactor  float64           `json:"verification_factor"`
	Metrics             BehavioralMetrics `json:"metrics"`
	LastCalculatedAt    time.Time         `json:"last_calculated_at"`
	NextRecalculationAt time.Time         `json:"next_recalculation_at"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

type BonusMalusType string

const (
	BonusMalusTypeBonus   BonusMalusType = "BONUS"
	BonusMalusTypeMalus   BonusMalusType = "MALUS"
	BonusMalusTypeNeutral BonusMalusType = "NEUTRAL"
)

// BonusMalusDisplay is the user-facing classification of a factor.
type BonusMalusDisplay struct {
	Type       BonusMalusType `json:"type"`
	Percentage float64        `json:"percentage"`
	Message    string         `json:"message"`
	Icon       string         `json:"icon"`
	Tips       []string       `json:"tips"`
}

type MonetaryImpact struct {
	AdjustedPrice    float64 `json:"adjusted_price"`
	Difference       float64 `json:"difference"`
	PercentageChange float64 `json:"percentage_change"`
}

type UserTier string

const (
	UserTierElite    UserTier = "elite"
	UserTierTrusted  UserTier = "trusted"
	UserTierStandard UserTier = "standard"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// DepositAdjustment is the result of applying a renter's tier to a base deposit.
type DepositAdjustment struct {
	BaseDepositCents     int64    `json:"base_deposit_cents"`
	AdjustedDepositCents int64    `json:"adjusted_deposit_cents"`
	SavingsCents         int64    `json:"savings_cents"`
	Factor               float64  `json:"factor"`
	Tier                 UserTier `json:"tier"`
}

// BonusMalusStats aggregates all stored factors.
type BonusMalusStats struct {
	TotalUsers     int     `json:"total_users"`
	UsersWithBonus int     `json:"users_with_bonus"`
	UsersWithMalus int     `json:"users_with_malus"`
	UsersNeutral   int     `json:"users_neutral"`
	AverageFactor  float64 `json:"average_factor"`
}

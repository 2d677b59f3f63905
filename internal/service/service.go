package service

import (
	"context"
	"errors"
	"time"

	"vehicle-risk-backend/internal/domain"
)

// ErrInvalidInput marks caller mistakes that should surface as 400s.
var ErrInvalidInput = errors.New("invalid input")

type BonusMalusService interface {
	// GetOrCompute returns the stored factor, computing and persisting it when it is
	// missing or past its lease. It returns nil when no data is available.
	GetOrCompute(ctx context.Context, userID string) *domain.BonusMalusFactor
	FactorFor(ctx context.Context, userID string) float64
	Recalculate(ctx context.Context, userID string) (*domain.BonusMalusFactor, error)
	RecalculateDue(ctx context.Context) (int, error)
	ImprovementTips(ctx context.Context, userID string) ([]string, error)
	Stats(ctx context.Context) (domain.BonusMalusStats, error)
	ApplyToDeposit(ctx context.Context, userID string, baseCents int64) domain.DepositAdjustment
}

type RiskCalculatorService interface {
	CalculateRisk(ctx context.Context, in domain.RiskInput) (*domain.RiskCalculation, error)
}

type RiskSnapshotService interface {
	CalculateRiskSnapshot(ctx context.Context, params domain.RiskSnapshotParams) (*domain.RiskSnapshot, error)
	RecalculateWithUpgrade(ctx context.Context, s *domain.RiskSnapshot, upgrade domain.CoverageUpgrade) (*domain.RiskSnapshot, error)
	RecalculateWithNewFxRate(ctx context.Context, s *domain.RiskSnapshot, fxRate float64) (*domain.RiskSnapshot, error)
	// Persist stores s for the booking, recording the guarantee path of method.
	Persist(ctx context.Context, bookingID string, s *domain.RiskSnapshot, method domain.PaymentMethod) error
	GetByBookingID(ctx context.Context, bookingID string) *domain.RiskSnapshot
	Validate(s *domain.RiskSnapshot) domain.ValidationResult
}

type FxService interface {
	CurrentSnapshot(ctx context.Context, from, to string) (*domain.FxSnapshot, error)
	Revalidate(ctx context.Context, old *domain.FxSnapshot) (*domain.FxSnapshot, bool, error)
	// Refresh revalidates the latest stored snapshot of the pair, or freezes the
	// current rate when none is stored.
	Refresh(ctx context.Context, from, to string) (*domain.FxSnapshot, bool, error)
	// Freeze wraps a rate agreed at ts in a snapshot with the configured window. Nothing is stored.
	Freeze(from, to string, rate float64, ts time.Time) (*domain.FxSnapshot, error)
}

type CheckoutService interface {
	Quote(ctx context.Context, req domain.CheckoutRequest, basePrice float64) (*domain.CheckoutQuote, error)
	CanAfford(ctx context.Context, userID string, requiredCents int64, method domain.PaymentMethod) bool
}

// NotificationService delivers user notifications. Delivery is best effort.
type NotificationService interface {
	Notify(ctx context.Context, note *domain.Notification) error
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
}

type EmailService interface {
	SendEmail(ctx context.Context, to, toName, subject, plainText, htmlContent string) error
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"

	"github.com/google/uuid"
)

type riskSnapshotService struct {
	calculator RiskCalculatorService
	repo       repository.RiskSnapshotRepository
	rules      pricing.SnapshotRules
	now        Clock
}

func NewRiskSnapshotService(calculator RiskCalculatorService, repo repository.RiskSnapshotRepository, rules pricing.SnapshotRules, clock Clock) RiskSnapshotService {
	if clock == nil {
		clock = systemClock
	}
	return &riskSnapshotService{calculator: calculator, repo: repo, rules: rules, now: clock}
}

// CalculateRiskSnapshot prices both guarantee paths: the card run gives the hold
// estimate and the no-card run gives the security credit.
func (s *riskSnapshotService) CalculateRiskSnapshot(ctx context.Context, params domain.RiskSnapshotParams) (*domain.RiskSnapshot, error) {
	country := strings.ToUpper(strings.TrimSpace(params.Country))
	if country == "" {
		return nil, fmt.Errorf("%w: country is required", ErrInvalidInput)
	}

	in := domain.RiskInput{
		VehicleValueUsd: params.VehicleValueUsd,
		FxRate:          params.FxRate,
		UserID:          params.UserID,
		Existing:        params.Existing,
		Coverage:        params.CoverageUpgrade,
	}

	in.HasCard = true
	withCard, err := s.calculator.CalculateRisk(ctx, in)
	if err != nil {
		return nil, err
	}
	in.HasCard = false
	withoutCard, err := s.calculator.CalculateRisk(ctx, in)
	if err != nil {
		return nil, err
	}

	return &domain.RiskSnapshot{
		ID:                    uuid.NewString(),
		Country:               country,
		Bucket:                withoutCard.Bucket,
		VehicleValueUsd:       params.VehicleValueUsd,
		FxRate:                params.FxRate,
		DeductibleUsd:         withoutCard.Franchise.StandardUsd,
		RolloverDeductibleUsd: withoutCard.Franchise.RolloverUsd,
		HoldEstimatedArs:      withCard.GuaranteeAmountArs,
		HoldEstimatedUsd:      withCard.GuaranteeAmountUsd,
		CreditSecurityUsd:     withoutCard.GuaranteeAmountUsd,
		CreditSecurityArs:     withoutCard.GuaranteeAmountArs,
		CoverageUpgrade:       withoutCard.CoverageUpgrade,
		DriverClass:           withCard.DriverClass,
		GuaranteeMultiplier:   withCard.GuaranteeMultiplier,
		GuaranteeDiscountPct:  withCard.GuaranteeDiscountPct,
		RequiresRevalidation:  withCard.RequiresRevalidation || withoutCard.RequiresRevalidation,
		UserID:                params.UserID,
		CalculatedAt:          s.now(),
	}, nil
}

// RecalculateWithUpgrade prices prev again with a different coverage. prev is left untouched.
func (s *riskSnapshotService) RecalculateWithUpgrade(ctx context.Context, prev *domain.RiskSnapshot, upgrade domain.CoverageUpgrade) (*domain.RiskSnapshot, error) {
	params := paramsFrom(prev)
	params.CoverageUpgrade = upgrade
	return s.recalculate(ctx, prev, params)
}

// RecalculateWithNewFxRate prices prev again at a fresh rate. prev is left untouched.
func (s *riskSnapshotService) RecalculateWithNewFxRate(ctx context.Context, prev *domain.RiskSnapshot, fxRate float64) (*domain.RiskSnapshot, error) {
	params := paramsFrom(prev)
	params.FxRate = fxRate
	return s.recalculate(ctx, prev, params)
}

func (s *riskSnapshotService) recalculate(ctx context.Context, prev *domain.RiskSnapshot, params domain.RiskSnapshotParams) (*domain.RiskSnapshot, error) {
	next, err := s.CalculateRiskSnapshot(ctx, params)
	if err != nil {
		return nil, err
	}
	next.BookingID = prev.BookingID
	return next, nil
}

func paramsFrom(s *domain.RiskSnapshot) domain.RiskSnapshotParams {
	return domain.RiskSnapshotParams{
		VehicleValueUsd: s.VehicleValueUsd,
		Country:         s.Country,
		FxRate:          s.FxRate,
		UserID:          s.UserID,
		CoverageUpgrade: s.CoverageUpgrade,
	}
}

func (s *riskSnapshotService) Persist(ctx context.Context, bookingID string, snap *domain.RiskSnapshot, method domain.PaymentMethod) error {
	if bookingID == "" {
		return fmt.Errorf("%w: booking id is required", ErrInvalidInput)
	}
	if _, err := pricing.ParsePaymentMethod(string(method)); err != nil {
		return err
	}
	log := logger.WithBooking(bookingID)

	snap.BookingID = bookingID
	snap.GuaranteeType = pricing.GuaranteeTypeFor(method)
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CalculatedAt.IsZero() {
		snap.CalculatedAt = s.now()
	}

	if err := s.repo.Save(ctx, snap); err != nil {
		log.Error("Failed to persist risk snapshot", "snapshotID", snap.ID, "error", err)
		return fmt.Errorf("failed to persist risk snapshot: %w", err)
	}
	log.Info("Risk snapshot persisted", "snapshotID", snap.ID, "bucket", snap.Bucket, "guaranteeType", snap.GuaranteeType)
	return nil
}

// GetByBookingID returns the latest snapshot for a booking, or nil when there is
// none or the store cannot be read.
func (s *riskSnapshotService) GetByBookingID(ctx context.Context, bookingID string) *domain.RiskSnapshot {
	if bookingID == "" {
		return nil
	}
	snap, err := s.repo.GetLatestByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Risk snapshot read failed", "bookingID", bookingID, "error", err)
		}
		return nil
	}
	return snap
}

func (s *riskSnapshotService) Validate(snap *domain.RiskSnapshot) domain.ValidationResult {
	res := pricing.ValidateRiskSnapshot(snap, s.rules)
	if !res.Valid {
		metrics.SnapshotValidationFailures.Inc()
		logger.Warn("Risk snapshot failed validation", "snapshotID", snap.ID, "errors", res.Errors)
	}
	return res
}

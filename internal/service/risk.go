package service

import (
	"context"
	"errors"
	"fmt"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"
)

type riskCalculatorService struct {
	profiles repository.DriverProfileRepository
	now      Clock
}

// NewRiskCalculatorService builds the calculator. profiles may be nil, in which
// case every renter gets the neutral multiplier.
func NewRiskCalculatorService(profiles repository.DriverProfileRepository, clock Clock) RiskCalculatorService {
	if clock == nil {
		clock = systemClock
	}
	return &riskCalculatorService{profiles: profiles, now: clock}
}

func (s *riskCalculatorService) CalculateRisk(ctx context.Context, in domain.RiskInput) (*domain.RiskCalculation, error) {
	if err := pricing.ValidateFxRate(in.FxRate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	coverage := pricing.ParseCoverageUpgrade(string(in.Coverage))
	bucket := pricing.ClassifyBucket(in.VehicleValueUsd)
	franchise := pricing.CoverageFranchise(pricing.FranchiseFor(in.VehicleValueUsd, bucket, in.FxRate), coverage)

	multiplier, class := s.driverMultiplier(ctx, in.UserID)
	g := pricing.ComputeGuarantee(franchise, in.HasCard, multiplier, in.FxRate)

	calc := &domain.RiskCalculation{
		VehicleValueUsd:        in.VehicleValueUsd,
		Bucket:                 bucket,
		Franchise:              franchise,
		GuaranteeType:          g.Type,
		GuaranteeAmountArs:     g.Ars,
		GuaranteeAmountUsd:     g.Usd,
		BaseGuaranteeAmountUsd: g.BaseUsd,
		FxRate:                 in.FxRate,
		FxSnapshotDate:         now,
		HasCard:                in.HasCard,
		RequiresRevalidation:   pricing.NeedsRevalidation(in.Existing, in.FxRate, now),
		DriverClass:            class,
		GuaranteeMultiplier:    multiplier,
		GuaranteeDiscountPct:   pricing.GuaranteeDiscountPct(multiplier),
		CoverageUpgrade:        coverage,
	}

	metrics.RiskCalculations.WithLabelValues(string(calc.GuaranteeType)).Inc()
	return calc, nil
}

// driverMultiplier never fails: unknown renters and lookup errors get the neutral multiplier.
func (s *riskCalculatorService) driverMultiplier(ctx context.Context, userID string) (float64, *int) {
	if userID == "" || s.profiles == nil {
		return pricing.NeutralMultiplier, nil
	}

	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Driver profile lookup failed, using neutral multiplier", "userID", userID, "error", err)
			metrics.DriverProfileFallbacks.Inc()
		}
		return pricing.NeutralMultiplier, nil
	}
	if !(p.GuaranteeMultiplier > 0) {
		logger.Warn("Driver profile has no usable multiplier", "userID", userID, "multiplier", p.GuaranteeMultiplier)
		return pricing.NeutralMultiplier, nil
	}

	class := p.DriverClass
	return p.GuaranteeMultiplier, &class
}

package service

import (
	"context"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"
)

var checkoutMethods = []domain.PaymentMethod{
	domain.PaymentMethodCreditCard,
	domain.PaymentMethodWallet,
	domain.PaymentMethodPartialWallet,
}

type checkoutService struct {
	snapshots  RiskSnapshotService
	bonusMalus BonusMalusService
	wallets    repository.WalletRepository
}

func NewCheckoutService(snapshots RiskSnapshotService, bonusMalus BonusMalusService, wallets repository.WalletRepository) CheckoutService {
	return &checkoutService{snapshots: snapshots, bonusMalus: bonusMalus, wallets: wallets}
}

// Quote prices a booking for every payment method. The wallet security credit is
// discounted by the renter's tier. basePrice is the rental price the bonus-malus
// adjustment is shown against; zero skips the impact.
func (s *checkoutService) Quote(ctx context.Context, req domain.CheckoutRequest, basePrice float64) (*domain.CheckoutQuote, error) {
	snap, err := s.snapshots.CalculateRiskSnapshot(ctx, domain.RiskSnapshotParams{
		VehicleValueUsd: req.VehicleValueUsd,
		Country:         req.Country,
		FxRate:          req.FxRate,
		UserID:          req.UserID,
		CoverageUpgrade: req.CoverageUpgrade,
	})
	if err != nil {
		return nil, err
	}
	snap.BookingID = req.BookingID

	q := &domain.CheckoutQuote{
		Snapshot:   snap,
		Deposits:   make(map[domain.PaymentMethod]int64, len(checkoutMethods)),
		Affordable: make(map[domain.PaymentMethod]bool, len(checkoutMethods)),
	}

	guaranteeUsd := snap.CreditSecurityUsd
	if s.bonusMalus != nil {
		if f := s.bonusMalus.GetOrCompute(ctx, req.UserID); f != nil {
			display := pricing.ClassifyFactor(f.TotalFactor)
			q.BonusMalus = &display
			if basePrice > 0 {
				impact := pricing.CalculateMonetaryImpact(basePrice, f.TotalFactor)
				q.Impact = &impact
			}
		}

		adj := s.bonusMalus.ApplyToDeposit(ctx, req.UserID, pricing.RoundWhole(snap.CreditSecurityUsd*100))
		q.GuaranteeAdjustment = &adj
		q.DepositWaived = pricing.ShouldWaiveDeposit(adj.Tier)
		guaranteeUsd = float64(adj.AdjustedDepositCents) / 100
	}

	balance := s.balance(ctx, req.UserID)
	for _, m := range checkoutMethods {
		deposit := pricing.CalculateDepositCents(req.TotalCents, m, guaranteeUsd)
		q.Deposits[m] = deposit
		q.Affordable[m] = pricing.CanAffordPaymentMethod(balance, deposit, m)
	}

	hold, credit := calculationView(snap, true), calculationView(snap, false)
	q.HoldCopy = pricing.GuaranteeCopyFor(hold)
	q.CreditCopy = pricing.GuaranteeCopyFor(credit)
	q.FranchiseTable = pricing.FranchiseTableFor(hold)
	return q, nil
}

func (s *checkoutService) CanAfford(ctx context.Context, userID string, requiredCents int64, method domain.PaymentMethod) bool {
	if method == domain.PaymentMethodCreditCard {
		return true
	}
	return pricing.CanAffordPaymentMethod(s.balance(ctx, userID), requiredCents, method)
}

// balance reads the wallet. A missing wallet or a failed read counts as empty.
func (s *checkoutService) balance(ctx context.Context, userID string) int64 {
	if userID == "" || s.wallets == nil {
		return 0
	}
	cents, err := s.wallets.GetBalance(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Wallet balance read failed, assuming empty wallet", "userID", userID, "error", err)
		}
		return 0
	}
	return cents
}

// calculationView re-expresses one guarantee path of a snapshot for the copy helpers.
func calculationView(s *domain.RiskSnapshot, hasCard bool) *domain.RiskCalculation {
	c := &domain.RiskCalculation{
		VehicleValueUsd: s.VehicleValueUsd,
		Bucket:          s.Bucket,
		Franchise: domain.FranchiseInfo{
			StandardUsd: s.DeductibleUsd,
			RolloverUsd: s.RolloverDeductibleUsd,
		},
		FxRate:               s.FxRate,
		FxSnapshotDate:       s.CalculatedAt,
		HasCard:              hasCard,
		RequiresRevalidation: s.RequiresRevalidation,
		DriverClass:          s.DriverClass,
		GuaranteeMultiplier:  s.GuaranteeMultiplier,
		GuaranteeDiscountPct: s.GuaranteeDiscountPct,
		CoverageUpgrade:      s.CoverageUpgrade,
	}
	if hasCard {
		c.GuaranteeType = domain.GuaranteeTypeHold
		c.GuaranteeAmountArs = s.HoldEstimatedArs
		c.GuaranteeAmountUsd = s.HoldEstimatedUsd
	} else {
		c.GuaranteeType = domain.GuaranteeTypeSecurityCredit
		c.GuaranteeAmountArs = s.CreditSecurityArs
		c.GuaranteeAmountUsd = s.CreditSecurityUsd
	}
	return c
}

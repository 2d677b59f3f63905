package pricing

import (
	"errors"
	"fmt"
	"strings"

	"vehicle-risk-backend/internal/domain"
)

// PartialWalletShare is the share of the booking total paid from the wallet on partial_wallet.
const PartialWalletShare = 0.30

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// ParsePaymentMethod is the strict parser used at API boundaries.
func ParsePaymentMethod(s string) (domain.PaymentMethod, error) {
	switch m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case domain.PaymentMethodWallet, domain.PaymentMethodCreditCard, domain.PaymentMethodPartialWallet:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
	}
}

// CalculateDepositCents is the amount charged up front for a payment method.
// Unknown methods charge the booking total only.
func CalculateDepositCents(totalCents int64, method domain.PaymentMethod, guaranteeUsd float64) int64 {
	guaranteeCents := RoundWhole(guaranteeUsd * 100)
	switch method {
	case domain.PaymentMethodWallet:
		return totalCents + guaranteeCents
	case domain.PaymentMethodPartialWallet:
		return RoundWhole(float64(totalCents)*PartialWalletShare) + guaranteeCents
	default:
		return totalCents
	}
}

// CanAffordPaymentMethod reports whether a wallet balance covers the required amount.
// Card payments never draw on the wallet.
func CanAffordPaymentMethod(balanceCents, requiredCents int64, method domain.PaymentMethod) bool {
	if method == domain.PaymentMethodCreditCard {
		return true
	}
	return balanceCents >= requiredCents
}

package pricing

import "vehicle-risk-backend/internal/domain"

// NeutralMultiplier applies to drivers without a class record.
const NeutralMultiplier = 1.0

// GuaranteeDiscountPct converts a driver multiplier into a whole discount percentage.
// Multipliers above 1 produce negative values (a surcharge).
func GuaranteeDiscountPct(multiplier float64) int {
	return int(RoundWhole((1 - multiplier) * 100))
}

// Guarantee is the amount requested from the renter on either path.
type Guarantee struct {
	Type    domain.GuaranteeType
	Ars     int64
	Usd     float64
	BaseUsd float64
}

// ComputeGuarantee picks the card hold or the wallet security credit and scales it
// by the driver multiplier. fxRate must already be validated.
func ComputeGuarantee(franchise domain.FranchiseInfo, hasCard bool, multiplier, fxRate float64) Guarantee {
	if hasCard {
		ars := RoundWhole(float64(franchise.HoldArs) * multiplier)
		return Guarantee{
			Type:    domain.GuaranteeTypeHold,
			Ars:     ars,
			Usd:     Round2(float64(ars) / fxRate),
			BaseUsd: Round2(float64(franchise.HoldArs) / fxRate),
		}
	}
	usd := Round2(franchise.StandardUsd * multiplier)
	return Guarantee{
		Type:    domain.GuaranteeTypeSecurityCredit,
		Ars:     RoundWhole(usd * fxRate),
		Usd:     usd,
		BaseUsd: franchise.StandardUsd,
	}
}

// GuaranteeTypeFor is the guarantee path a payment method takes: a card hold for
// credit cards, the wallet security credit for everything else.
func GuaranteeTypeFor(method domain.PaymentMethod) domain.GuaranteeType {
	if method == domain.PaymentMethodCreditCard {
		return domain.GuaranteeTypeHold
	}
	return domain.GuaranteeTypeSecurityCredit
}

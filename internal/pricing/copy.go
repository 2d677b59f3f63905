package pricing

import (
	"fmt"

	"vehicle-risk-backend/internal/domain"
)

// GuaranteeCopyFor renders the checkout text for a calculation.
func GuaranteeCopyFor(c *domain.RiskCalculation) domain.GuaranteeCopy {
	var cp domain.GuaranteeCopy
	if c.GuaranteeType == domain.GuaranteeTypeHold {
		cp.Title = "Card pre-authorization"
		cp.Body = fmt.Sprintf(
			"We will pre-authorize ARS %s (≈ USD %.2f) on your card. The hold is released after the car is returned without damage.",
			formatArs(c.GuaranteeAmountArs), c.GuaranteeAmountUsd)
	} else {
		cp.Title = "Security credit"
		cp.Body = fmt.Sprintf(
			"USD %.2f (≈ ARS %s) stays locked in your wallet as a non-refundable security credit that covers damages up to your deductible.",
			c.GuaranteeAmountUsd, formatArs(c.GuaranteeAmountArs))
	}
	cp.Badge = discountBadge(c.GuaranteeDiscountPct)
	return cp
}

func discountBadge(pct int) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("%d%% off your guarantee for your driver class", pct)
	case pct < 0:
		return fmt.Sprintf("%d%% guarantee surcharge for your driver class", -pct)
	default:
		return ""
	}
}

// FranchiseTableFor lists the deductible amounts shown under the guarantee.
func FranchiseTableFor(c *domain.RiskCalculation) []domain.FranchiseRow {
	rate := c.FxRate
	rows := []domain.FranchiseRow{
		{Label: "Damage / theft deductible", AmountUsd: c.Franchise.StandardUsd, AmountArs: RoundWhole(c.Franchise.StandardUsd * rate)},
		{Label: "Rollover deductible", AmountUsd: c.Franchise.RolloverUsd, AmountArs: RoundWhole(c.Franchise.RolloverUsd * rate)},
	}
	label := "Security credit"
	if c.GuaranteeType == domain.GuaranteeTypeHold {
		label = "Card hold"
	}
	rows = append(rows, domain.FranchiseRow{Label: label, AmountUsd: c.GuaranteeAmountUsd, AmountArs: c.GuaranteeAmountArs})
	return rows
}

// formatArs groups thousands with dots, as ARS amounts are usually written.
func formatArs(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

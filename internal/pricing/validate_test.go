package pricing

import (
	"strings"
	"testing"

	"vehicle-risk-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func validSnapshot() *domain.RiskSnapshot {
	return &domain.RiskSnapshot{
		Country:               "AR",
		Bucket:                domain.BucketStandard,
		VehicleValueUsd:       15000,
		FxRate:                1000,
		DeductibleUsd:         800,
		RolloverDeductibleUsd: 1200,
		HoldEstimatedArs:      750000,
		HoldEstimatedUsd:      750,
		CreditSecurityUsd:     600,
		CoverageUpgrade:       domain.CoverageStandard,
	}
}

func countMentions(errs []string, word string) int {
	n := 0
	for _, e := range errs {
		if strings.Contains(e, word) {
			n++
		}
	}
	return n
}

func TestValidateRiskSnapshot(t *testing.T) {
	rules := DefaultSnapshotRules()

	t.Run("Valid", func(t *testing.T) {
		res := ValidateRiskSnapshot(validSnapshot(), rules)
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
	})

	t.Run("Zero coverage allows zero deductible", func(t *testing.T) {
		s := validSnapshot()
		s.CoverageUpgrade = domain.CoverageZero
		s.DeductibleUsd = 0
		res := ValidateRiskSnapshot(s, rules)
		assert.Zero(t, countMentions(res.Errors, "franchise"))
		assert.Zero(t, countMentions(res.Errors, "deductible"))
	})

	t.Run("Standard coverage with zero deductible", func(t *testing.T) {
		s := validSnapshot()
		s.DeductibleUsd = 0
		res := ValidateRiskSnapshot(s, rules)
		assert.False(t, res.Valid)
		assert.Equal(t, 1, countMentions(res.Errors, "franchise"))
	})

	t.Run("Hold outside band", func(t *testing.T) {
		s := validSnapshot()
		s.HoldEstimatedUsd = 5000
		res := ValidateRiskSnapshot(s, rules)
		assert.False(t, res.Valid)
		assert.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "hold estimate")
	})

	t.Run("Credit security literal check", func(t *testing.T) {
		s := validSnapshot()
		s.CreditSecurityUsd = 800
		res := ValidateRiskSnapshot(s, rules)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "credit security must be one of 300, 600 USD")

		s.CreditSecurityUsd = 300
		assert.True(t, ValidateRiskSnapshot(s, rules).Valid)
	})

	t.Run("Stale AR rate", func(t *testing.T) {
		s := validSnapshot()
		s.FxRate = 50
		res := ValidateRiskSnapshot(s, rules)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "out of range for AR")
	})

	t.Run("Unknown country only needs a positive rate", func(t *testing.T) {
		s := validSnapshot()
		s.Country = "UY"
		s.FxRate = 40
		assert.True(t, ValidateRiskSnapshot(s, rules).Valid)

		s.FxRate = 0
		assert.False(t, ValidateRiskSnapshot(s, rules).Valid)
	})

	t.Run("Collects every violation", func(t *testing.T) {
		s := validSnapshot()
		s.DeductibleUsd = 0
		s.CreditSecurityUsd = 10
		s.FxRate = 20000
		res := ValidateRiskSnapshot(s, rules)
		assert.Len(t, res.Errors, 3)
	})
}

func TestGuaranteeCopy(t *testing.T) {
	calc := &domain.RiskCalculation{
		GuaranteeType:      domain.GuaranteeTypeHold,
		GuaranteeAmountArs: 1234567,
		GuaranteeAmountUsd: 1234.57,
		FxRate:             1000,
		Franchise:          domain.FranchiseInfo{StandardUsd: 800, RolloverUsd: 1200},
	}

	t.Run("Hold phrasing without badge", func(t *testing.T) {
		cp := GuaranteeCopyFor(calc)
		assert.Equal(t, "Card pre-authorization", cp.Title)
		assert.Contains(t, cp.Body, "ARS 1.234.567")
		assert.Empty(t, cp.Badge)
	})

	t.Run("Credit phrasing with discount badge", func(t *testing.T) {
		c := *calc
		c.GuaranteeType = domain.GuaranteeTypeSecurityCredit
		c.GuaranteeDiscountPct = 15
		cp := GuaranteeCopyFor(&c)
		assert.Equal(t, "Security credit", cp.Title)
		assert.Contains(t, cp.Body, "non-refundable")
		assert.Equal(t, "15% off your guarantee for your driver class", cp.Badge)
	})

	t.Run("Surcharge badge", func(t *testing.T) {
		c := *calc
		c.GuaranteeDiscountPct = -20
		assert.Equal(t, "20% guarantee surcharge for your driver class", GuaranteeCopyFor(&c).Badge)
	})

	t.Run("Franchise table", func(t *testing.T) {
		rows := FranchiseTableFor(calc)
		assert.Len(t, rows, 3)
		assert.Equal(t, int64(800000), rows[0].AmountArs)
		assert.Equal(t, int64(1200000), rows[1].AmountArs)
		assert.Equal(t, "Card hold", rows[2].Label)
	})
}

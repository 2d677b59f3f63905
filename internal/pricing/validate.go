package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"vehicle-risk-backend/internal/domain"
)

// FxBand is the plausible range of a local-currency rate per USD.
type FxBand struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SnapshotRules configures risk snapshot integrity checks.
type SnapshotRules struct {
	AllowedCreditSecurityUsd []float64
	HoldMinRatio             float64
	HoldMaxRatio             float64
	FxBands                  map[string]FxBand
}

func DefaultSnapshotRules() SnapshotRules {
	return SnapshotRules{
		// Literal values enforced by the booking flow. They do not follow the
		// bucket table; see DESIGN.md before changing.
		AllowedCreditSecurityUsd: []float64{300, 600},
		HoldMinRatio:             0.5,
		HoldMaxRatio:             5,
		FxBands: map[string]FxBand{
			"AR": {Min: 100, Max: 10000},
			"CO": {Min: 1000, Max: 10000},
			"MX": {Min: 5, Max: 50},
		},
	}
}

// ValidateRiskSnapshot checks every integrity rule and collects all violations.
func ValidateRiskSnapshot(s *domain.RiskSnapshot, rules SnapshotRules) domain.ValidationResult {
	errs := []string{}

	if s.CoverageUpgrade != domain.CoverageZero && !(s.DeductibleUsd > 0) {
		errs = append(errs, "deductible (franchise) must be greater than 0")
	}

	if rules.HoldMaxRatio > 0 && s.DeductibleUsd > 0 {
		lo, hi := s.DeductibleUsd*rules.HoldMinRatio, s.DeductibleUsd*rules.HoldMaxRatio
		if s.HoldEstimatedUsd < lo || s.HoldEstimatedUsd > hi {
			errs = append(errs, fmt.Sprintf("hold estimate %.2f USD outside allowed range [%.2f, %.2f] USD", s.HoldEstimatedUsd, lo, hi))
		}
	}

	if len(rules.AllowedCreditSecurityUsd) > 0 && !containsAmount(rules.AllowedCreditSecurityUsd, s.CreditSecurityUsd) {
		errs = append(errs, fmt.Sprintf("credit security must be one of %s USD, got %.2f", joinAmounts(rules.AllowedCreditSecurityUsd), s.CreditSecurityUsd))
	}

	country := strings.ToUpper(s.Country)
	if band, ok := rules.FxBands[country]; ok {
		if s.FxRate < band.Min || s.FxRate > band.Max {
			errs = append(errs, fmt.Sprintf("fx rate %.4f out of range for %s [%.2f, %.2f]", s.FxRate, country, band.Min, band.Max))
		}
	} else if !(s.FxRate > 0) {
		errs = append(errs, "fx rate must be greater than 0")
	}

	return domain.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func containsAmount(set []float64, v float64) bool {
	for _, a := range set {
		if Round2(a) == Round2(v) {
			return true
		}
	}
	return false
}

func joinAmounts(set []float64) string {
	parts := make([]string, len(set))
	for i, a := range set {
		parts[i] = strconv.FormatFloat(a, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

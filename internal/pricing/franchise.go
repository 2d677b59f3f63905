package pricing

import (
	"math"

	"vehicle-risk-backend/internal/domain"
)

const (
	// RolloverMultiplier scales the standard deductible for rollover incidents.
	RolloverMultiplier = 1.5
	// HoldValueRatio is the share of the vehicle value pre-authorized on a card.
	HoldValueRatio = 0.05
)

type franchiseTier struct {
	maxValueUsd float64
	bucket      domain.Bucket
	standardUsd float64
	minHoldUsd  float64
	maxHoldUsd  float64
}

// Inclusive upper bounds, ordered.
var franchiseTiers = []franchiseTier{
	{maxValueUsd: 10000, bucket: domain.BucketEconomy, standardUsd: 500, minHoldUsd: 300, maxHoldUsd: 600},
	{maxValueUsd: 20000, bucket: domain.BucketStandard, standardUsd: 800, minHoldUsd: 500, maxHoldUsd: 1000},
	{maxValueUsd: 40000, bucket: domain.BucketPremium, standardUsd: 1200, minHoldUsd: 800, maxHoldUsd: 2000},
	{maxValueUsd: 80000, bucket: domain.BucketLuxury, standardUsd: 1800, minHoldUsd: 1200, maxHoldUsd: 4000},
	{maxValueUsd: math.Inf(1), bucket: domain.BucketUltraLuxury, standardUsd: 2500, minHoldUsd: 2000, maxHoldUsd: 8000},
}

// ClassifyBucket maps a vehicle value to its tier. Non-positive and NaN values are economy.
func ClassifyBucket(vehicleValueUsd float64) domain.Bucket {
	if math.IsNaN(vehicleValueUsd) {
		return domain.BucketEconomy
	}
	for _, t := range franchiseTiers {
		if vehicleValueUsd <= t.maxValueUsd {
			return t.bucket
		}
	}
	return domain.BucketUltraLuxury
}

func tierFor(bucket domain.Bucket) franchiseTier {
	for _, t := range franchiseTiers {
		if t.bucket == bucket {
			return t
		}
	}
	return franchiseTiers[0]
}

// StandardDeductibleUsd returns the base deductible of a bucket.
func StandardDeductibleUsd(bucket domain.Bucket) float64 {
	return tierFor(bucket).standardUsd
}

// HoldUsd is the card hold for a vehicle, clamped to its bucket band.
func HoldUsd(vehicleValueUsd float64, bucket domain.Bucket) float64 {
	t := tierFor(bucket)
	hold := vehicleValueUsd * HoldValueRatio
	if hold < t.minHoldUsd || math.IsNaN(hold) {
		hold = t.minHoldUsd
	}
	if hold > t.maxHoldUsd {
		hold = t.maxHoldUsd
	}
	return Round2(hold)
}

// FranchiseFor looks up the deductible amounts for a vehicle at a given rate.
// fxRate must be positive; callers validate it first.
func FranchiseFor(vehicleValueUsd float64, bucket domain.Bucket, fxRate float64) domain.FranchiseInfo {
	standard := StandardDeductibleUsd(bucket)
	return domain.FranchiseInfo{
		StandardUsd: standard,
		RolloverUsd: Round2(standard * RolloverMultiplier),
		HoldArs:     RoundWhole(HoldUsd(vehicleValueUsd, bucket) * fxRate),
	}
}

// ApplyCoverage adjusts a deductible for the purchased coverage upgrade.
func ApplyCoverage(deductibleUsd float64, upgrade domain.CoverageUpgrade) float64 {
	switch upgrade {
	case domain.CoverageZero:
		return 0
	case domain.CoveragePremium50:
		return Round2(deductibleUsd * 0.5)
	default:
		return deductibleUsd
	}
}

// CoverageFranchise scales every franchise amount by the coverage upgrade.
// The rollover ratio holds for the adjusted amounts too.
func CoverageFranchise(f domain.FranchiseInfo, upgrade domain.CoverageUpgrade) domain.FranchiseInfo {
	switch upgrade {
	case domain.CoverageZero:
		return domain.FranchiseInfo{}
	case domain.CoveragePremium50:
		standard := ApplyCoverage(f.StandardUsd, upgrade)
		return domain.FranchiseInfo{
			StandardUsd: standard,
			RolloverUsd: Round2(standard * RolloverMultiplier),
			HoldArs:     RoundWhole(float64(f.HoldArs) * 0.5),
		}
	default:
		return f
	}
}

// ParseCoverageUpgrade normalizes a coverage string; empty and unknown values are standard.
func ParseCoverageUpgrade(s string) domain.CoverageUpgrade {
	switch domain.CoverageUpgrade(s) {
	case domain.CoverageZero:
		return domain.CoverageZero
	case domain.CoveragePremium50:
		return domain.CoveragePremium50
	default:
		return domain.CoverageStandard
	}
}

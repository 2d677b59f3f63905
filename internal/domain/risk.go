package domain

import "time"

// Bucket is the value tier of a vehicle.
type Bucket string

const (
	BucketEconomy     Bucket = "economy"
	BucketStandard    Bucket = "standard"
	BucketPremium     Bucket = "premium"
	BucketLuxury      Bucket = "luxury"
	BucketUltraLuxury Bucket = "ultra-luxury"
)

type GuaranteeType string

const (
	GuaranteeTypeHold           GuaranteeType = "hold"
	GuaranteeTypeSecurityCredit GuaranteeType = "security_credit"
)

type PaymentMethod string

const (
	PaymentMethodWallet        PaymentMethod = "wallet"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodPartialWallet PaymentMethod = "partial_wallet"
)

// CoverageUpgrade is the optional insurance upgrade bought on top of the base franchise.
type CoverageUpgrade string

const (
	CoverageStandard  CoverageUpgrade = "standard"
	CoveragePremium50 CoverageUpgrade = "premium50"
	CoverageZero      CoverageUpgrade = "zero"
)

// FranchiseInfo holds the deductible amounts for a vehicle. Derived, never persisted.
type FranchiseInfo struct {
	StandardUsd float64 `json:"standard_usd"`
	RolloverUsd float64 `json:"rollover_usd"`
	HoldArs     int64   `json:"hold_ars"`
}

// DriverProfile is the driver class record used to scale the guarantee.
type DriverProfile struct {
	UserID              string  `json:"user_id"`
	DriverClass         int     `json:"driver_class"`
	GuaranteeMultiplier float64 `json:"guarantee_multiplier"`
}

// RiskInput is the input of a single risk calculation.
type RiskInput struct {
	VehicleValueUsd float64
	FxRate          float64
	HasCard         bool
	UserID          string
	Existing        *FxSnapshot
	Coverage        CoverageUpgrade
}

// RiskCalculation is the full output of the risk & guarantee calculator.
type RiskCalculation struct {
	VehicleValueUsd        float64         `json:"vehicle_value_usd"`
	Bucket                 Bucket          `json:"bucket"`
	Franchise              FranchiseInfo   `json:"franchise"`
	GuaranteeType          GuaranteeType   `json:"guarantee_type"`
	GuaranteeAmountArs     int64           `json:"guarantee_amount_ars"`
	GuaranteeAmountUsd     float64         `json:"guarantee_amount_usd"`
	BaseGuaranteeAmountUsd float64         `json:"base_guarantee_amount_usd"`
	FxRate                 float64         `json:"fx_rate"`
	FxSnapshotDate         time.Time       `json:"fx_snapshot_date"`
	HasCard                bool            `json:"has_card"`
	RequiresRevalidation   bool            `json:"requires_revalidation"`
	DriverClass            *int            `json:"driver_class,omitempty"`
	GuaranteeMultiplier    float64         `json:"guarantee_multiplier"`
	GuaranteeDiscountPct   int             `json:"guarantee_discount_pct"`
	CoverageUpgrade        CoverageUpgrade `json:"coverage_upgrade"`
}

// RiskSnapshotParams is the input of a booking-level snapshot calculation.
type RiskSnapshotParams struct {
	VehicleValueUsd float64         `json:"vehicle_value_usd"`
	Country         string          `json:"country"`
	FxRate          float64         `json:"fx_rate"`
	UserID          string          `json:"user_id,omitempty"`
	CoverageUpgrade CoverageUpgrade `json:"coverage_upgrade,omitempty"`
	Existing        *FxSnapshot     `json:"existing_fx_snapshot,omitempty"`
}

// RiskSnapshot is the risk calculation frozen for a booking. Immutable once captured.
type RiskSnapshot struct {
	ID                    string          `json:"id"`
	BookingID             string          `json:"booking_id,omitempty"`
	Country               string          `json:"country"`
	Bucket                Bucket          `json:"bucket"`
	VehicleValueUsd       float64         `json:"vehicle_value_usd"`
	FxRate                float64         `json:"fx_rate"`
	DeductibleUsd         float64         `json:"deductible_usd"`
	RolloverDeductibleUsd float64         `json:"rollover_deductible_usd"`
	HoldEstimatedArs      int64           `json:"hold_estimated_ars"`
	HoldEstimatedUsd      float64         `json:"hold_estimated_usd"`
	CreditSecurityUsd     float64         `json:"credit_security_usd"`
	CreditSecurityArs     int64           `json:"credit_security_ars"`
	CoverageUpgrade       CoverageUpgrade `json:"coverage_upgrade"`
	GuaranteeType         GuaranteeType   `json:"guarantee_type,omitempty"`
	DriverClass           *int            `json:"driver_class,omitempty"`
	GuaranteeMultiplier   float64         `json:"guarantee_multiplier"`
	GuaranteeDiscountPct  int             `json:"guarantee_discount_pct"`
	RequiresRevalidation  bool            `json:"requires_revalidation"`
	UserID                string          `json:"user_id,omitempty"`
	CalculatedAt          time.Time       `json:"calculated_at"`
}

// ValidationResult lists every violated integrity rule of a snapshot.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// GuaranteeCopy is the narrative text shown next to a guarantee.
type GuaranteeCopy struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Badge string `json:"badge,omitempty"`
}

// FranchiseRow is one line of the deductible summary table.
type FranchiseRow struct {
	Label     string  `json:"label"`
	AmountUsd float64 `json:"amount_usd"`
	AmountArs int64   `json:"amount_ars"`
}

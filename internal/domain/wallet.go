package domain

// WalletBalance is the spendable wallet balance of a renter.
type WalletBalance struct {
	UserID       string `json:"user_id"`
	BalanceCents int64  `json:"balance_cents"`
}

// CheckoutQuote bundles everything a renter needs to pick a payment method.
type CheckoutQuote struct {
	Snapshot       *RiskSnapshot           `json:"snapshot"`
	Deposits       map[PaymentMethod]int64 `json:"deposits_cents"`
	Affordable     map[PaymentMethod]bool  `json:"affordable"`
	// GuaranteeAdjustment is the renter's tier applied to the wallet security credit.
	GuaranteeAdjustment *DepositAdjustment `json:"guarantee_adjustment,omitempty"`
	DepositWaived       bool               `json:"deposit_waived"`
	BonusMalus     *BonusMalusDisplay      `json:"bonus_malus,omitempty"`
	Impact         *MonetaryImpact         `json:"impact,omitempty"`
	HoldCopy       GuaranteeCopy           `json:"hold_copy"`
	CreditCopy     GuaranteeCopy           `json:"credit_copy"`
	FranchiseTable []FranchiseRow          `json:"franchise_table"`
}

// CheckoutRequest is the input of a checkout quote.
type CheckoutRequest struct {
	BookingID       string          `json:"booking_id"`
	UserID          string          `json:"user_id"`
	VehicleValueUsd float64         `json:"vehicle_value_usd"`
	Country         string          `json:"country"`
	FxRate          float64         `json:"fx_rate"`
	TotalCents      int64           `json:"total_cents"`
	CoverageUpgrade CoverageUpgrade `json:"coverage_upgrade,omitempty"`
}

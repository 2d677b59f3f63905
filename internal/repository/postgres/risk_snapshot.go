package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"
)

type riskSnapshotRepository struct {
	db *sql.DB
}

func NewRiskSnapshotRepository(db *sql.DB) repository.RiskSnapshotRepository {
	return &riskSnapshotRepository{db: db}
}

const riskSnapshotColumns = `id, booking_id, user_id, country, bucket, vehicle_value_usd, fx_rate,
	deductible_usd, rollover_deductible_usd, hold_estimated_ars, hold_estimated_usd,
	credit_security_usd, credit_security_ars, coverage_upgrade, guarantee_type, driver_class,
	guarantee_multiplier, guarantee_discount_pct, requires_revalidation, calculated_at`

func (r *riskSnapshotRepository) Save(ctx context.Context, s *domain.RiskSnapshot) error {
	logger.EnterMethod("riskSnapshotRepository.Save", "bookingID", s.BookingID, "snapshotID", s.ID)

	var driverClass sql.NullInt64
	if s.DriverClass != nil {
		driverClass = sql.NullInt64{Int64: int64(*s.DriverClass), Valid: true}
	}

	query := `INSERT INTO booking_risk_snapshots (` + riskSnapshotColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	logger.DatabaseCall("INSERT", "booking_risk_snapshots", "bookingID", s.BookingID)

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.BookingID, s.UserID, s.Country, s.Bucket, s.VehicleValueUsd, s.FxRate,
		s.DeductibleUsd, s.RolloverDeductibleUsd, s.HoldEstimatedArs, s.HoldEstimatedUsd,
		s.CreditSecurityUsd, s.CreditSecurityArs, s.CoverageUpgrade, s.GuaranteeType, driverClass,
		s.GuaranteeMultiplier, s.GuaranteeDiscountPct, s.RequiresRevalidation, s.CalculatedAt,
	)
	logger.DatabaseResult("INSERT", 1, err, "bookingID", s.BookingID)

	if err != nil {
		logger.ExitMethodWithError("riskSnapshotRepository.Save", err, "bookingID", s.BookingID)
		return err
	}
	logger.ExitMethod("riskSnapshotRepository.Save", "bookingID", s.BookingID)
	return nil
}

func (r *riskSnapshotRepository) GetLatestByBookingID(ctx context.Context, bookingID string) (*domain.RiskSnapshot, error) {
	query := `SELECT ` + riskSnapshotColumns + ` FROM booking_risk_snapshots
	          WHERE booking_id = $1 ORDER BY calculated_at DESC LIMIT 1`
	logger.DatabaseCall("SELECT", "booking_risk_snapshots", "bookingID", bookingID)

	var s domain.RiskSnapshot
	var driverClass sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&s.ID, &s.BookingID, &s.UserID, &s.Country, &s.Bucket, &s.VehicleValueUsd, &s.FxRate,
		&s.DeductibleUsd, &s.RolloverDeductibleUsd, &s.HoldEstimatedArs, &s.HoldEstimatedUsd,
		&s.CreditSecurityUsd, &s.CreditSecurityArs, &s.CoverageUpgrade, &s.GuaranteeType, &driverClass,
		&s.GuaranteeMultiplier, &s.GuaranteeDiscountPct, &s.RequiresRevalidation, &s.CalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("SELECT", 0, nil, "bookingID", bookingID)
		return nil, repository.ErrNotFound
	}
	logger.DatabaseResult("SELECT", 1, err, "bookingID", bookingID)
	if err != nil {
		return nil, err
	}
	if driverClass.Valid {
		c := int(driverClass.Int64)
		s.DriverClass = &c
	}
	return &s, nil
}

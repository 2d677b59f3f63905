package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"
)

type driverProfileRepository struct {
	db *sql.DB
}

func NewDriverProfileRepository(db *sql.DB) repository.DriverProfileRepository {
	return &driverProfileRepository{db: db}
}

func (r *driverProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.DriverProfile, error) {
	query := `SELECT user_id, driver_class, guarantee_multiplier FROM driver_risk_profiles WHERE user_id = $1`
	var p domain.DriverProfile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.DriverClass, &p.GuaranteeMultiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

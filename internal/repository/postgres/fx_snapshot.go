package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"
)

// fxSnapshotRepository keeps every frozen rate; rows are never updated.
type fxSnapshotRepository struct {
	db *sql.DB
}

func NewFxSnapshotRepository(db *sql.DB) repository.FxSnapshotRepository {
	return &fxSnapshotRepository{db: db}
}

func (r *fxSnapshotRepository) Save(ctx context.Context, s *domain.FxSnapshot) error {
	query := `INSERT INTO fx_snapshots (id, from_currency, to_currency, rate, observed_at, expires_at, variation_threshold)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	logger.DatabaseCall("INSERT", "fx_snapshots", "pair", s.FromCurrency+"/"+s.ToCurrency, "rate", s.Rate)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.FromCurrency, s.ToCurrency, s.Rate, s.Timestamp, s.ExpiresAt, s.VariationThreshold)
	logger.DatabaseResult("INSERT", 1, err, "snapshotID", s.ID)
	return err
}

func (r *fxSnapshotRepository) GetLatest(ctx context.Context, from, to string) (*domain.FxSnapshot, error) {
	query := `SELECT id, from_currency, to_currency, rate, observed_at, expires_at, variation_threshold
	          FROM fx_snapshots WHERE from_currency = $1 AND to_currency = $2
	          ORDER BY observed_at DESC LIMIT 1`
	var s domain.FxSnapshot
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&s.ID, &s.FromCurrency, &s.ToCurrency, &s.Rate, &s.Timestamp, &s.ExpiresAt, &s.VariationThreshold,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"

	"github.com/goccy/go-json"
)

type bonusMalusRepository struct {
	db *sql.DB
}

func NewBonusMalusRepository(db *sql.DB) repository.BonusMalusRepository {
	return &bonusMalusRepository{db: db}
}

func (r *bonusMalusRepository) Get(ctx context.Context, userID string) (*domain.BonusMalusFactor, error) {
	query := `SELECT user_id, total_factor, rating_factor, cancellation_factor, completion_factor, verification_factor,
	          metrics, last_calculated_at, next_recalculation_at, created_at, updated_at
	          FROM user_bonus_malus WHERE user_id = $1`
	logger.DatabaseCall("SELECT", "user_bonus_malus", "userID", userID)

	var f domain.BonusMalusFactor
	var metrics []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&f.UserID, &f.TotalFactor, &f.RatingFactor, &f.CancellationFactor, &f.CompletionFactor, &f.VerificationFactor,
		&metrics, &f.LastCalculatedAt, &f.NextRecalculationAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("SELECT", 0, nil, "userID", userID)
		return nil, repository.ErrNotFound
	}
	logger.DatabaseResult("SELECT", 1, err, "userID", userID)
	if err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &f.Metrics); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func (r *bonusMalusRepository) Upsert(ctx context.Context, f *domain.BonusMalusFactor) error {
	logger.EnterMethod("bonusMalusRepository.Upsert", "userID", f.UserID, "totalFactor", f.TotalFactor)

	metrics, err := json.Marshal(f.Metrics)
	if err != nil {
		logger.ExitMethodWithError("bonusMalusRepository.Upsert", err, "reason", "failed to marshal metrics")
		return err
	}

	query := `INSERT INTO user_bonus_malus (user_id, total_factor, rating_factor, cancellation_factor, completion_factor,
	              verification_factor, metrics, last_calculated_at, next_recalculation_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (user_id) DO UPDATE SET
	              total_factor = EXCLUDED.total_factor,
	              rating_factor = EXCLUDED.rating_factor,
	              cancellation_factor = EXCLUDED.cancellation_factor,
	              completion_factor = EXCLUDED.completion_factor,
	              verification_factor = EXCLUDED.verification_factor,
	              metrics = EXCLUDED.metrics,
	              last_calculated_at = EXCLUDED.last_calculated_at,
	              next_recalculation_at = EXCLUDED.next_recalculation_at,
	              updated_at = EXCLUDED.updated_at`
	logger.DatabaseCall("UPSERT", "user_bonus_malus", "userID", f.UserID)

	res, err := r.db.ExecContext(ctx, query,
		f.UserID, f.TotalFactor, f.RatingFactor, f.CancellationFactor, f.CompletionFactor,
		f.VerificationFactor, metrics, f.LastCalculatedAt, f.NextRecalculationAt, f.CreatedAt, f.UpdatedAt,
	)
	var rows int64
	if err == nil {
		rows, _ = res.RowsAffected()
	}
	logger.DatabaseResult("UPSERT", rows, err, "userID", f.UserID)

	if err != nil {
		logger.ExitMethodWithError("bonusMalusRepository.Upsert", err, "userID", f.UserID)
		return err
	}
	logger.ExitMethod("bonusMalusRepository.Upsert", "userID", f.UserID)
	return nil
}

func (r *bonusMalusRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT user_id FROM user_bonus_malus WHERE next_recalculation_at < $1
	          ORDER BY next_recalculation_at ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bonusMalusRepository) Postpone(ctx context.Context, userID string, until time.Time) error {
	query := `UPDATE user_bonus_malus SET next_recalculation_at = $2 WHERE user_id = $1`
	logger.DatabaseCall("UPDATE", "user_bonus_malus", "userID", userID)

	res, err := r.db.ExecContext(ctx, query, userID, until)
	var rows int64
	if err == nil {
		rows, err = res.RowsAffected()
	}
	logger.DatabaseResult("UPDATE", rows, err, "userID", userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *bonusMalusRepository) ListFactors(ctx context.Context) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT total_factor FROM user_bonus_malus`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factors []float64
	for rows.Next() {
		var f float64
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

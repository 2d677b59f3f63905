package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"
)

// behavioralMetricsRepository reads the aggregates maintained by the review and booking pipelines.
type behavioralMetricsRepository struct {
	db *sql.DB
}

func NewBehavioralMetricsRepository(db *sql.DB) repository.BehavioralMetricsRepository {
	return &behavioralMetricsRepository{db: db}
}

func (r *behavioralMetricsRepository) GetMetrics(ctx context.Context, userID string) (*domain.BehavioralMetrics, error) {
	query := `SELECT user_id, COALESCE(average_rating, 0), COALESCE(owner_rating, 0), COALESCE(renter_rating, 0),
	          COALESCE(cancellation_rate, 0), total_rentals, completed_rentals, is_verified,
	          owner_reviews_count, renter_reviews_count, updated_on
	          FROM user_behavioral_metrics WHERE user_id = $1`
	logger.DatabaseCall("SELECT", "user_behavioral_metrics", "userID", userID)

	var m domain.BehavioralMetrics
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&m.UserID, &m.AverageRating, &m.OwnerRating, &m.RenterRating,
		&m.CancellationRate, &m.TotalRentals, &m.CompletedRentals, &m.IsVerified,
		&m.OwnerReviewsCount, &m.RenterReviewsCount, &m.UpdatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("SELECT", 0, nil, "userID", userID)
		return nil, repository.ErrNotFound
	}
	logger.DatabaseResult("SELECT", 1, err, "userID", userID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

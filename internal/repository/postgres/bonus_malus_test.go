package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var bonusMalusColumns = []string{
	"user_id", "total_factor", "rating_factor", "cancellation_factor", "completion_factor", "verification_factor",
	"metrics", "last_calculated_at", "next_recalculation_at", "created_at", "updated_at",
}

func TestBonusMalusRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBonusMalusRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM user_bonus_malus WHERE user_id = \\$1").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(bonusMalusColumns).AddRow(
				"u1", -0.08, -0.05, -0.02, -0.01, 0.0,
				[]byte(`{"user_id":"u1","average_rating":4.8,"completed_rentals":15}`),
				now, now.Add(7*24*time.Hour), now, now,
			))

		f, err := repo.Get(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, -0.08, f.TotalFactor)
		assert.Equal(t, 4.8, f.Metrics.AverageRating)
		assert.Equal(t, 15, f.Metrics.CompletedRentals)
		assert.Equal(t, now.Add(7*24*time.Hour), f.NextRecalculationAt)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM user_bonus_malus").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		f, err := repo.Get(ctx, "missing")
		assert.Nil(t, f)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM user_bonus_malus").
			WithArgs("u2").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Get(ctx, "u2")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBonusMalusRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBonusMalusRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	f := &domain.BonusMalusFactor{
		UserID:              "u1",
		TotalFactor:         -0.08,
		RatingFactor:        -0.05,
		CancellationFactor:  -0.02,
		CompletionFactor:    -0.01,
		LastCalculatedAt:    now,
		NextRecalculationAt: now.Add(time.Hour),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	mock.ExpectExec("INSERT INTO user_bonus_malus (.+) ON CONFLICT \\(user_id\\) DO UPDATE").
		WithArgs("u1", -0.08, -0.05, -0.02, -0.01, 0.0, sqlmock.AnyArg(), now, now.Add(time.Hour), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Upsert(ctx, f))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBonusMalusRepository_ListDueAndFactors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBonusMalusRepository(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT user_id FROM user_bonus_malus WHERE next_recalculation_at < \\$1").
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("a").AddRow("b"))

	ids, err := repo.ListDue(ctx, now, 50)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	mock.ExpectQuery("SELECT total_factor FROM user_bonus_malus").
		WillReturnRows(sqlmock.NewRows([]string{"total_factor"}).AddRow(-0.05).AddRow(0.1))

	factors, err := repo.ListFactors(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []float64{-0.05, 0.1}, factors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBonusMalusRepository_Postpone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBonusMalusRepository(db)
	ctx := context.Background()
	until := time.Now().Add(24 * time.Hour)

	t.Run("Moves the next recalculation", func(t *testing.T) {
		mock.ExpectExec("UPDATE user_bonus_malus SET next_recalculation_at = \\$2 WHERE user_id = \\$1").
			WithArgs("u1", until).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Postpone(ctx, "u1", until))
	})

	t.Run("Unknown user", func(t *testing.T) {
		mock.ExpectExec("UPDATE user_bonus_malus SET next_recalculation_at").
			WithArgs("ghost", until).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Postpone(ctx, "ghost", until), repository.ErrNotFound)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectExec("UPDATE user_bonus_malus SET next_recalculation_at").
			WithArgs("u1", until).
			WillReturnError(errors.New("connection reset"))

		assert.EqualError(t, repo.Postpone(ctx, "u1", until), "connection reset")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestDriverProfileRepository_GetProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewDriverProfileRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, driver_class, guarantee_multiplier FROM driver_risk_profiles").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "driver_class", "guarantee_multiplier"}).AddRow("u1", 2, 0.85))

		p, err := repo.GetProfile(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, 2, p.DriverClass)
		assert.Equal(t, 0.85, p.GuaranteeMultiplier)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM driver_risk_profiles").
			WithArgs("u2").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetProfile(ctx, "u2")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBehavioralMetricsRepository_GetMetrics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBehavioralMetricsRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM user_behavioral_metrics WHERE user_id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "average_rating", "owner_rating", "renter_rating", "cancellation_rate",
			"total_rentals", "completed_rentals", "is_verified", "owner_reviews_count", "renter_reviews_count", "updated_on",
		}).AddRow("u1", 4.7, 4.9, 4.6, 0.02, 30, 28, true, 5, 25, now))

	m, err := repo.GetMetrics(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 4.7, m.AverageRating)
	assert.Equal(t, 28, m.CompletedRentals)
	assert.True(t, m.IsVerified)
	assert.Equal(t, 30, m.ReviewsCount())
}

func TestWalletRepository_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewWalletRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(balance_cents, 0\\) FROM wallet_balances").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(125000))

		balance, err := repo.GetBalance(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, int64(125000), balance)
	})

	t.Run("No wallet", func(t *testing.T) {
		mock.ExpectQuery("SELECT COALESCE\\(balance_cents, 0\\) FROM wallet_balances").
			WithArgs("u2").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetBalance(ctx, "u2")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestFxSnapshotRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewFxSnapshotRepository(db)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.FxSnapshot{ID: "fx-1", Rate: 1050, Timestamp: ts, FromCurrency: "USD", ToCurrency: "ARS", ExpiresAt: ts.Add(7 * 24 * time.Hour), VariationThreshold: 0.1}

	mock.ExpectExec("INSERT INTO fx_snapshots").
		WithArgs("fx-1", "USD", "ARS", 1050.0, ts, s.ExpiresAt, 0.1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Save(ctx, s))

	mock.ExpectQuery("SELECT (.+) FROM fx_snapshots WHERE from_currency = \\$1 AND to_currency = \\$2").
		WithArgs("USD", "ARS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "from_currency", "to_currency", "rate", "observed_at", "expires_at", "variation_threshold"}).
			AddRow("fx-1", "USD", "ARS", 1050.0, ts, s.ExpiresAt, 0.1))

	latest, err := repo.GetLatest(ctx, "USD", "ARS")
	assert.NoError(t, err)
	assert.Equal(t, s, latest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewNotificationRepository(db)
	n := &domain.Notification{UserID: "u1", Title: "Your pricing changed", Message: "You now have a discount", Attributes: map[string]string{"type": "BONUS"}}

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs("u1", n.Title, n.Message, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	assert.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, int64(9), n.ID)
	assert.False(t, n.CreatedOn.IsZero())
}

func TestNotificationRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewNotificationRepository(db)
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Empty inbox skips the page query", func(t *testing.T) {
		mock.ExpectQuery("SELECT count").WithArgs("u0").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		notes, total, err := repo.List(context.Background(), "u0", 20, 0)
		assert.NoError(t, err)
		assert.Empty(t, notes)
		assert.Equal(t, int32(0), total)
	})

	t.Run("Page with attributes", func(t *testing.T) {
		mock.ExpectQuery("SELECT count").WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectQuery("SELECT id, user_id, title").WithArgs("u1", int32(2), int32(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "is_read", "attributes", "created_on"}).
				AddRow(int64(1), "u1", "t", "m", false, []byte(`{"type":"MALUS"}`), ts))

		notes, total, err := repo.List(context.Background(), "u1", 2, 2)
		assert.NoError(t, err)
		assert.Equal(t, int32(3), total)
		if assert.Len(t, notes, 1) {
			assert.Equal(t, "MALUS", notes[0].Attributes["type"])
		}
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

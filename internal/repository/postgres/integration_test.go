package postgres

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareDB connects to TEST_DATABASE_URL and applies the schema. Tests are
// skipped when the variable is unset.
func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var db *sql.DB
	var err error
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestIntegration_BonusMalusUpsertIsIdempotent(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	repo := NewBonusMalusRepository(db)

	userID := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)
	f := &domain.BonusMalusFactor{
		UserID:              userID,
		TotalFactor:         -0.08,
		RatingFactor:        -0.05,
		VerificationFactor:  -0.03,
		Metrics:             domain.BehavioralMetrics{UserID: userID, AverageRating: 4.7, IsVerified: true},
		LastCalculatedAt:    now,
		NextRecalculationAt: now.Add(-time.Minute),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, repo.Upsert(ctx, f))
	require.NoError(t, repo.Upsert(ctx, f))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, -0.08, got.TotalFactor)
	assert.Equal(t, 4.7, got.Metrics.AverageRating)

	due, err := repo.ListDue(ctx, now, 1000)
	require.NoError(t, err)
	assert.Contains(t, due, userID)

	_, err = repo.Get(ctx, "missing-"+userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIntegration_RiskSnapshotLatestWins(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	repo := NewRiskSnapshotRepository(db)

	bookingID := "it-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Second)
	for i, rate := range []float64{1000, 1200} {
		require.NoError(t, repo.Save(ctx, &domain.RiskSnapshot{
			ID:                uuid.NewString(),
			BookingID:         bookingID,
			Country:           "AR",
			Bucket:            domain.BucketStandard,
			VehicleValueUsd:   15000,
			FxRate:            rate,
			DeductibleUsd:     800,
			HoldEstimatedUsd:  750,
			CreditSecurityUsd: 800,
			CoverageUpgrade:   domain.CoverageStandard,
			CalculatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := repo.GetLatestByBookingID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, got.FxRate)
	assert.Nil(t, got.DriverClass)
}

package repository

import (
	"context"
	"errors"
	"time"

	"vehicle-risk-backend/internal/domain"
)

// ErrNotFound is returned by every store when a keyed row does not exist.
var ErrNotFound = errors.New("record not found")

type BonusMalusRepository interface {
	Get(ctx context.Context, userID string) (*domain.BonusMalusFactor, error)
	// Upsert replaces the row for f.UserID, creating it if absent.
	Upsert(ctx context.Context, f *domain.BonusMalusFactor) error
	// ListDue returns up to limit users whose lease ended before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Postpone moves the lease of an existing row to until without touching the factor.
	Postpone(ctx context.Context, userID string, until time.Time) error
	ListFactors(ctx context.Context) ([]float64, error)
}

type BehavioralMetricsRepository interface {
	GetMetrics(ctx context.Context, userID string) (*domain.BehavioralMetrics, error)
}

type DriverProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.DriverProfile, error)
}

type WalletRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
}

type RiskSnapshotRepository interface {
	// Save appends a snapshot; earlier snapshots of the booking are kept.
	Save(ctx context.Context, s *domain.RiskSnapshot) error
	GetLatestByBookingID(ctx context.Context, bookingID string) (*domain.RiskSnapshot, error)
}

type FxSnapshotRepository interface {
	Save(ctx context.Context, s *domain.FxSnapshot) error
	GetLatest(ctx context.Context, from, to string) (*domain.FxSnapshot, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
}

type UserContactRepository interface {
	GetContact(ctx context.Context, userID string) (*domain.UserContact, error)
}

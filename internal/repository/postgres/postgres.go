package postgres

import (
	"database/sql"

	"vehicle-risk-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BonusMalusRepository
	repository.BehavioralMetricsRepository
	repository.DriverProfileRepository
	repository.WalletRepository
	repository.RiskSnapshotRepository
	repository.FxSnapshotRepository
	repository.NotificationRepository
	repository.UserContactRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                          db,
		BonusMalusRepository:        NewBonusMalusRepository(db),
		BehavioralMetricsRepository: NewBehavioralMetricsRepository(db),
		DriverProfileRepository:     NewDriverProfileRepository(db),
		WalletRepository:            NewWalletRepository(db),
		RiskSnapshotRepository:      NewRiskSnapshotRepository(db),
		FxSnapshotRepository:        NewFxSnapshotRepository(db),
		NotificationRepository:      NewNotificationRepository(db),
		UserContactRepository:       NewUserContactRepository(db),
	}
}

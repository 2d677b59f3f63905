package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/repository"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	query := `SELECT COALESCE(balance_cents, 0) FROM wallet_balances WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return balance, err
}

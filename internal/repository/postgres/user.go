package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"
)

type userContactRepository struct {
	db *sql.DB
}

func NewUserContactRepository(db *sql.DB) repository.UserContactRepository {
	return &userContactRepository{db: db}
}

func (r *userContactRepository) GetContact(ctx context.Context, userID string) (*domain.UserContact, error) {
	c := &domain.UserContact{}
	query := `SELECT id, email, COALESCE(name, '') FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.Email, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

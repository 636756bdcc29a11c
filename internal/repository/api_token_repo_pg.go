package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type APITokenRepository interface {
	FindActive(ctx context.Context, value string) (*domain.APIToken, error)
	Create(ctx context.Context, token *domain.APIToken) error
}

type PGAPITokenRepository struct {
	db DB
}

func NewAPITokenRepository(db DB) APITokenRepository {
	return &PGAPITokenRepository{db: db}
}

func (r *PGAPITokenRepository) FindActive(ctx context.Context, value string) (*domain.APIToken, error) {
	var t domain.APIToken
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT id, token_value, description, is_active, created_at
		FROM api_tokens WHERE token_value=$1 AND is_active`, value).
		Scan(&t.ID, &t.Value, &t.Description, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPITokenNotFound
		}
		return nil, fmt.Errorf("find api token: %w", err)
	}
	return &t, nil
}

func (r *PGAPITokenRepository) Create(ctx context.Context, t *domain.APIToken) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO api_tokens (id, token_value, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_value) DO NOTHING`,
		t.ID, t.Value, t.Description, t.Active, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api token: %w", err)
	}
	return nil
}

var _ APITokenRepository = (*PGAPITokenRepository)(nil)

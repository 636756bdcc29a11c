package memory

import (
	"context"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type APITokens struct {
	db *DB
}

func (db *DB) APITokens() *APITokens {
	return &APITokens{db: db}
}

func (r *APITokens) FindActive(_ context.Context, value string) (*domain.APIToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tokens[value]
	if !ok || !t.Active {
		return nil, domain.ErrAPITokenNotFound
	}
	return &t, nil
}

func (r *APITokens) Create(ctx context.Context, t *domain.APIToken) error {
	return r.db.write(ctx, func(trx *transaction) error {
		if _, exists := r.db.tokens[t.Value]; exists {
			return nil
		}
		value := t.Value
		r.db.tokens[value] = *t
		trx.onRollback(func() { delete(r.db.tokens, value) })
		return nil
	})
}

var _ repository.APITokenRepository = (*APITokens)(nil)

package memory

import "context"

type contextKey struct{}

func withTransaction(ctx context.Context, trx *transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, trx)
}

func transactionFromContext(ctx context.Context) (*transaction, bool) {
	trx, ok := ctx.Value(contextKey{}).(*transaction)

	return trx, ok
}

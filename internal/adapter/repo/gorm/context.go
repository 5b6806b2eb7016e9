package gormrepo

import (
	"context"

	"gorm.io/gorm"
)

// The transaction opened by RunInTx travels through the context so the
// repositories stay free of transaction plumbing.
type txContextKey struct{}

func txInto(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// session resolves the handle a repository call should use: the
// transaction bound to the context inside RunInTx, the shared pool
// everywhere else.
func session(ctx context.Context, pool *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return pool
}

// Package gormrepo persists grove state in Postgres. Every write a
// use-case makes during one execution shares a single transaction,
// carried in the context by the TxManager.
package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the grove database.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to grove database: %w", err)
	}
	return db, nil
}

type TxManager struct {
	pool *gorm.DB
}

func NewTxManager(pool *gorm.DB) TxManager {
	return TxManager{pool: pool}
}

func (m TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.pool.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txInto(ctx, tx))
	})
}

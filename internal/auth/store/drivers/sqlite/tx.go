package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/internal/auth/store/drivers/sqlite/gen"
)

// ErrNestedTx is returned by Tx on a transaction-scoped store.
var ErrNestedTx = errors.New("sqlite: transaction already open")

// txStore is the Store view of one open transaction. The repositories it
// hands out share the transaction; the owner of the tx ends it.
type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx, q: gen.New(tx)}
}

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.q} }

func (t *txStore) Commit() error { return t.tx.Commit() }

// Rollback after Commit is harmless.
func (t *txStore) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, ErrNestedTx }

// WithTx joins the enclosing transaction: fn's writes commit or roll back
// together with the outer WithTx.
func (t *txStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }

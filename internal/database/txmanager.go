package database

import (
	"context"
	"database/sql"
	"fmt"
)

type txKeyType int

const txKey txKeyType = iota

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods run their statements through it so the same code
// works inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager owns transaction boundaries. The open *sql.Tx travels in
// the context, so a nested WithinTx joins the outer transaction instead
// of beginning a second one; commit and rollback happen only at the
// outermost level.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// Querier returns the transaction from ctx if one is open, otherwise
// the bare connection pool.
func (m *TxManager) Querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

// WithinTx runs fn inside a transaction. If the context already carries
// one, fn joins it and the outer caller stays responsible for the
// commit. The transaction is rolled back on error or panic; it is never
// left open across a reported failure.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(ctx)
	return
}

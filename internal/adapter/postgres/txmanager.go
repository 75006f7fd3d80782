package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager manages database transactions using the context pattern.
// Nested transactions are NOT supported: beginning a unit inside another
// unit's context creates a second independent transaction.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// Unit is one open transaction. Repositories that resolve their Querier
// from Unit.Context() run inside it.
//
// A Unit ends exactly once: after Commit, Rollback is a no-op, so callers
// can defer Rollback unconditionally.
type Unit struct {
	tx   pgx.Tx
	ctx  context.Context
	done bool
}

// Begin opens a new transaction (Read Committed, PostgreSQL default).
func (m *TxManager) Begin(ctx context.Context) (*Unit, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Unit{tx: tx, ctx: withTx(ctx, tx)}, nil
}

// Context returns a context carrying the transaction.
func (u *Unit) Context() context.Context {
	return u.ctx
}

// Commit commits the transaction.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("commit transaction: unit already finished")
	}
	u.done = true
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards every change made in the unit. It runs even when ctx is
// already cancelled, since an aborted run still has to release the
// transaction.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

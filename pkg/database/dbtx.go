package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgxpool.Conn, pgx.Tx
// and the pgxmock fakes. Repositories depend on it instead of a concrete pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn inside a transaction opened on db. The transaction is committed
// when fn returns nil and rolled back otherwise.
func InTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Session is a connection held by a single unit of work until Release.
type Session interface {
	DBTX
	Release()
}

// SessionSource hands out sessions.
type SessionSource interface {
	Acquire(ctx context.Context) (Session, error)
}

// PoolSessions acquires sessions from a pgx pool.
type PoolSessions struct {
	Pool *pgxpool.Pool
}

// Acquire takes a dedicated connection from the pool.
func (p PoolSessions) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

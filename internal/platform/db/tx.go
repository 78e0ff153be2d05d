package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockward/stockward/internal/shared"
)

// ErrSerialization marks a transaction aborted by the database under
// repeatable read (SQLSTATE 40001 or 40P01). Callers retry these the same
// way as a lost compare-and-swap race.
var ErrSerialization = errors.New("serialization failure")

// WithTx executes fn inside a repeatable-read transaction, the isolation
// level the stock counter's compare-and-swap relies on. Serialization
// aborts surface as ErrSerialization so the caller's retry loop can re-read
// and try again.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return shared.Infra("platform/db: begin tx", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return classifySerialization(err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("platform/db: commit tx: %v: %w", err, ErrSerialization)
		}
		return shared.Infra("platform/db: commit tx", err)
	}

	return nil
}

func classifySerialization(err error) error {
	if isSerializationFailure(err) {
		return fmt.Errorf("%v: %w", err, ErrSerialization)
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

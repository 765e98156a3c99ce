package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/order-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultLockTimeout = 5 * time.Second

type txKey struct{}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// withTx runs fn inside a transaction stored in ctx. Nested calls reuse the
// outer transaction. Begin and commit failures are reported as transient.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &domain.TransientError{Op: "begin", Err: err}
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &domain.TransientError{Op: "commit", Err: err}
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// setLockTimeout bounds row lock waits for the rest of the current
// transaction. Outside a transaction it is a no-op.
func setLockTimeout(ctx context.Context, d time.Duration) error {
	tx := txFromContext(ctx)
	if tx == nil || d <= 0 {
		return nil
	}
	value := fmt.Sprintf("%dms", d.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, value); err != nil {
		return classify("set lock timeout", err)
	}
	return nil
}

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pgCode(err) == codeCheckViolation
}

// classify wraps err with op, turning retryable failures into a
// domain.TransientError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeLockNotAvailable:
		return &domain.TransientError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)}
	case codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled:
		return &domain.TransientError{Op: op, Err: err}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return &domain.TransientError{Op: op, Err: err}
	}
	if errors.Is(err, pgx.ErrTxClosed) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

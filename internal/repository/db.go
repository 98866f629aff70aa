package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable is returned by every query when no database is configured.
var ErrStoreUnavailable = errors.New("store not configured")

// DBTX is the subset of pgxpool.Pool the repositories rely on.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewDB returns pool as a DBTX. A nil pool yields a DBTX whose calls all
// fail with ErrStoreUnavailable, so a nil pool never reaches pgxpool.
func NewDB(pool *pgxpool.Pool) DBTX {
	if pool == nil {
		return unavailableDB{}
	}
	return pool
}

type unavailableDB struct{}

func (unavailableDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrStoreUnavailable
}

func (unavailableDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrStoreUnavailable
}

func (unavailableDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return unavailableRow{}
}

type unavailableRow struct{}

func (unavailableRow) Scan(...any) error { return ErrStoreUnavailable }

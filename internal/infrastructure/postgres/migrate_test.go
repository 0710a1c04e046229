package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Bodega-api/internal/domain"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/bodega?sslmode=disable", pgx5URL("postgres://u:p@db:5432/bodega?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/bodega", pgx5URL("postgresql://u@db/bodega"))
	assert.Equal(t, "pgx5://x", pgx5URL("pgx5://x"))
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	assert.NoError(t, err)
	assert.Contains(t, files, "migrations/000001_stock_ledger.up.sql")
	assert.Contains(t, files, "migrations/000001_stock_ledger.down.sql")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: codeUniqueViolation}, domain.ErrDuplicate},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, domain.ErrConcurrencyConflict},
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, domain.ErrConcurrencyConflict},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, domain.ErrConcurrencyConflict},
		{"statement timeout", &pgconn.PgError{Code: codeQueryCanceled}, domain.ErrTimeout},
		{"check", &pgconn.PgError{Code: codeCheckViolation}, domain.ErrStorage},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
		{"otro", errors.New("conn reset"), domain.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError("op", tt.err), tt.want)
		})
	}
	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", context.Canceled), context.Canceled)
	assert.True(t, domain.IsRetryable(mapError("op", &pgconn.PgError{Code: codeLockNotAvailable})))
}

package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

func TestMapError(t *testing.T) {
	t.Run("no rows is not found", func(t *testing.T) {
		require.ErrorIs(t, mapError(pgx.ErrNoRows), repository.ErrNotFound)
		require.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)
	})

	t.Run("unique violation is duplicate key", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_address_key"})
		require.ErrorIs(t, err, repository.ErrDuplicateKey)
		require.Contains(t, err.Error(), "accounts_email_address_key")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		require.Same(t, boom, mapError(boom))

		check := &pgconn.PgError{Code: "23514"}
		require.ErrorAs(t, mapError(check), &check)
		require.NotErrorIs(t, mapError(check), repository.ErrDuplicateKey)
	})
}

func TestValidID(t *testing.T) {
	require.True(t, validID("7d7f1a4e-8c3f-4b8a-9a43-2f0f2a9a8b11"))
	require.False(t, validID(""))
	require.False(t, validID("42"))
	require.False(t, validID("not-a-uuid"))
}

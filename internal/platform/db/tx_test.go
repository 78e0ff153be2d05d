package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassifySerialization(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := classifySerialization(fmt.Errorf("update products: %w", serialization))
	require.ErrorIs(t, err, ErrSerialization)
	require.Contains(t, err.Error(), "could not serialize access")

	deadlock := &pgconn.PgError{Code: "40P01"}
	require.ErrorIs(t, classifySerialization(deadlock), ErrSerialization)

	duplicate := &pgconn.PgError{Code: "23505"}
	require.NotErrorIs(t, classifySerialization(duplicate), ErrSerialization)

	plain := errors.New("connection reset")
	require.Equal(t, plain, classifySerialization(plain))
}

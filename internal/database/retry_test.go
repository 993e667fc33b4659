package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "pg error " + code}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: pgError("40001"), want: true},
		{name: "deadlock", err: pgError("40P01"), want: true},
		{name: "connection failure", err: pgError("08006"), want: true},
		{name: "wrapped transient", err: fmt.Errorf("exec: %w", pgError("40001")), want: true},
		{name: "unique violation", err: pgError("23505"), want: false},
		{name: "not null violation", err: pgError("23502"), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRetryTransientRetriesUntilSuccess(t *testing.T) {
	db := &DB{}
	calls := 0

	err := db.RetryTransient(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return pgError("40001")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTransientStopsOnPermanentError(t *testing.T) {
	db := &DB{}
	calls := 0

	err := db.RetryTransient(context.Background(), func(ctx context.Context) error {
		calls++
		return pgError("23505")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a permanent error must not be retried")
}

func TestRetryTransientBoundsAttempts(t *testing.T) {
	db := &DB{}
	calls := 0

	err := db.RetryTransient(context.Background(), func(ctx context.Context) error {
		calls++
		return pgError("40P01")
	})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, maxWriteAttempts, calls)
}

func TestRetryTransientHonorsContextCancellation(t *testing.T) {
	db := &DB{}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := db.RetryTransient(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return pgError("40001")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

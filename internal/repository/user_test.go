package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type existsRow struct {
	exists bool
	err    error
}

func (r existsRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.exists
	return nil
}

type stubQuerier struct {
	row   existsRow
	calls int
}

func (q *stubQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	q.calls++
	return q.row
}

func TestRequireUser(t *testing.T) {
	ctx := context.Background()

	t.Run("updated row skips lookup", func(t *testing.T) {
		q := &stubQuerier{}
		require.NoError(t, requireUser(ctx, q, pgconn.NewCommandTag("UPDATE 1"), "a"))
		assert.Zero(t, q.calls)
	})

	t.Run("id already present", func(t *testing.T) {
		q := &stubQuerier{row: existsRow{exists: true}}
		require.NoError(t, requireUser(ctx, q, pgconn.NewCommandTag("UPDATE 0"), "a"))
		assert.Equal(t, 1, q.calls)
	})

	t.Run("missing user", func(t *testing.T) {
		q := &stubQuerier{row: existsRow{exists: false}}
		err := requireUser(ctx, q, pgconn.NewCommandTag("UPDATE 0"), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		q := &stubQuerier{row: existsRow{err: boom}}
		err := requireUser(ctx, q, pgconn.NewCommandTag("UPDATE 0"), "a")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

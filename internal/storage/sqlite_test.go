package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exp(title string, cents int64, y, m, d int) core.Expense {
	return core.Expense{Title: title, Amount: core.Money{Cents: cents}, Date: core.NewDate(y, m, d)}
}

func TestSQLiteStorePositionalSemantics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, b, c := exp("a", 100, 2024, 1, 1), exp("b", 200, 2024, 2, 1), exp("c", 300, 2024, 3, 1)
	for _, e := range []core.Expense{a, b, c} {
		require.NoError(t, s.Add(ctx, e))
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Expense{a, b, c}, all)

	require.NoError(t, s.RemoveAt(ctx, 0))
	all, _ = s.All(ctx)
	assert.Equal(t, []core.Expense{b, c}, all)

	repl := exp("c2", 999, 2023, 12, 24)
	require.NoError(t, s.UpdateAt(ctx, 1, repl))
	all, _ = s.All(ctx)
	assert.Equal(t, []core.Expense{b, repl}, all)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStoreOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Add(ctx, exp("Rent", 50000, 2024, 1, 5)))
	require.NoError(t, s.RemoveAt(ctx, 0))

	assert.ErrorIs(t, s.RemoveAt(ctx, 0), store.ErrIndexOutOfRange)
	assert.ErrorIs(t, s.UpdateAt(ctx, -1, exp("x", 1, 2024, 1, 1)), store.ErrIndexOutOfRange)
}

func TestSQLiteStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	s1, s2 := newTestStore(t), newTestStore(t)
	require.NoError(t, s1.Add(ctx, exp("only in s1", 1, 2024, 1, 1)))

	n, err := s2.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStoreUpdateMovesMonthlyTotal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Add(ctx, exp("Rent", 50000, 2024, 1, 5)))
	require.NoError(t, s.UpdateAt(ctx, 0, exp("Rent2", 60000, 2024, 2, 1)))

	all, err := s.All(ctx)
	require.NoError(t, err)
	totals := query.MonthlyTotalsOf(query.FilterByYear(all, 2024))
	assert.Zero(t, totals[0].Cents)
	assert.Equal(t, int64(60000), totals[1].Cents)
}

func TestMigrateSchemaKeepsStoreOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Add(ctx, exp("Rent", 50000, 2024, 1, 5)))

	version, dirty, err := schemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, migrateSchema(s.db), "re-applying is a no-op")
	require.NoError(t, s.Ping(ctx))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the in-memory database survives migration")
}

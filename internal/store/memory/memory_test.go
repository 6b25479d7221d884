package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

func exp(title string, cents int64, y, m, d int) core.Expense {
	return core.Expense{Title: title, Amount: core.Money{Cents: cents}, Date: core.NewDate(y, m, d)}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := New()
	var want []core.Expense
	for i := 0; i < 5; i++ {
		e := exp(fmt.Sprintf("e%d", i), int64(i*100), 2024, i+1, 1)
		require.NoError(t, c.Add(ctx, e))
		want = append(want, e)
	}
	got, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRemoveAtShiftsLaterElements(t *testing.T) {
	ctx := context.Background()
	a, b, cc, d := exp("a", 1, 2024, 1, 1), exp("b", 2, 2024, 1, 2), exp("c", 3, 2024, 1, 3), exp("d", 4, 2024, 1, 4)
	c := NewWith(a, b, cc, d)

	require.NoError(t, c.RemoveAt(ctx, 1))

	got, _ := c.All(ctx)
	assert.Equal(t, []core.Expense{a, cc, d}, got)
	n, _ := c.Len(ctx)
	assert.Equal(t, 3, n)
}

func TestUpdateAtReplacesOnlyThatPosition(t *testing.T) {
	ctx := context.Background()
	a, b, cc := exp("a", 1, 2024, 1, 1), exp("b", 2, 2024, 1, 2), exp("c", 3, 2024, 1, 3)
	c := NewWith(a, b, cc)

	repl := exp("b2", 99, 2023, 6, 6)
	require.NoError(t, c.UpdateAt(ctx, 1, repl))

	got, _ := c.All(ctx)
	assert.Equal(t, []core.Expense{a, repl, cc}, got)
}

func TestRemoveLastThenRemoveAgainIsOutOfRange(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.Add(ctx, exp("Rent", 50000, 2024, 1, 5)))
	require.NoError(t, c.RemoveAt(ctx, 0))

	got, _ := c.All(ctx)
	assert.Empty(t, got)

	err := c.RemoveAt(ctx, 0)
	assert.ErrorIs(t, err, store.ErrIndexOutOfRange)
}

func TestOutOfRangeIndices(t *testing.T) {
	ctx := context.Background()
	c := NewWith(exp("a", 1, 2024, 1, 1))
	for _, idx := range []int{-1, 1, 42} {
		assert.ErrorIs(t, c.UpdateAt(ctx, idx, exp("x", 1, 2024, 1, 1)), store.ErrIndexOutOfRange, "UpdateAt(%d)", idx)
		assert.ErrorIs(t, c.RemoveAt(ctx, idx), store.ErrIndexOutOfRange, "RemoveAt(%d)", idx)
	}
	n, _ := c.Len(ctx)
	assert.Equal(t, 1, n, "failed mutations must not change the collection")
}

func TestAllReturnsACopy(t *testing.T) {
	ctx := context.Background()
	c := NewWith(exp("a", 1, 2024, 1, 1))
	got, _ := c.All(ctx)
	got[0].Title = "mutated"

	again, _ := c.All(ctx)
	assert.Equal(t, "a", again[0].Title)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/core"
)

// ErrIndexOutOfRange signals a caller contract violation: the index does not
// name a current position in the collection.
var ErrIndexOutOfRange = errors.New("index out of range")

// Store is the ordered expense collection. Position is identity: RemoveAt
// shifts every later element down by one.
type Store interface {
	Add(ctx context.Context, e core.Expense) error
	UpdateAt(ctx context.Context, index int, e core.Expense) error
	RemoveAt(ctx context.Context, index int) error
	// All returns a copy of the collection in insertion order.
	All(ctx context.Context) ([]core.Expense, error)
	Len(ctx context.Context) (int, error)
}

// OutOfRange wraps ErrIndexOutOfRange with the offending index and bound.
func OutOfRange(index, length int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, length)
}

package memory

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Collection is the process-lifetime expense collection. It does no locking
// and no validation: callers serialise access and pass well-formed records.
type Collection struct {
	items []core.Expense
}

var _ store.Store = (*Collection)(nil)

func New() *Collection {
	return &Collection{}
}

// NewWith seeds the collection, keeping the given order.
func NewWith(items ...core.Expense) *Collection {
	return &Collection{items: append([]core.Expense(nil), items...)}
}

// Add appends the expense at the end of the collection.
func (c *Collection) Add(_ context.Context, e core.Expense) error {
	c.items = append(c.items, e)
	return nil
}

// UpdateAt replaces the expense at index, keeping its position.
func (c *Collection) UpdateAt(_ context.Context, index int, e core.Expense) error {
	if !c.inRange(index) {
		return store.OutOfRange(index, len(c.items))
	}
	c.items[index] = e
	return nil
}

// RemoveAt removes the expense at index; later elements shift down by one.
func (c *Collection) RemoveAt(_ context.Context, index int) error {
	if !c.inRange(index) {
		return store.OutOfRange(index, len(c.items))
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

func (c *Collection) All(_ context.Context) ([]core.Expense, error) {
	return append([]core.Expense(nil), c.items...), nil
}

func (c *Collection) Len(_ context.Context) (int, error) {
	return len(c.items), nil
}

func (c *Collection) inRange(index int) bool {
	return index >= 0 && index < len(c.items)
}

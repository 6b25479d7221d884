package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/query"
	"expensetracker/internal/store"
)

var ErrNotEditing = errors.New("no edit in progress")

// EventPublisher receives one event per successful mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// Outcome tells the caller which mutation a submit turned into.
type Outcome int

const (
	Created Outcome = iota
	Updated
)

func (o Outcome) String() string {
	if o == Updated {
		return "updated"
	}
	return "created"
}

// View is everything the page needs to redraw after an event.
type View struct {
	Year        int
	Entries     []query.Entry
	Totals      [12]core.Money
	YearOptions []int
	DefaultYear int
	DefaultDate core.Date
	EditIndex   int
	Editing     bool
}

// Tracker owns one expense collection and its edit session. Every method
// holds the tracker lock for its full duration, so UI events are applied
// one at a time in arrival order.
type Tracker struct {
	mu      sync.Mutex
	store   store.Store
	session EditSession

	publisher EventPublisher
	metrics   *metrics.Recorder
	logger    *applog.Logger
	now       func() time.Time
}

type Option func(*Tracker)

// WithPublisher enables mutation events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(t *Tracker) { t.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(t *Tracker) { t.logger = l.WithComponent(applog.ComponentTracker) }
}

// WithClock overrides the clock used for year options and the default date.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		logger: applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentTracker),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit adds e, or replaces the record under edit and ends the session.
func (t *Tracker) Submit(ctx context.Context, e core.Expense) (Outcome, error) {
	if err := e.Validate(); err != nil {
		return Created, fmt.Errorf("submit expense: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if index, ok := t.session.Index(); ok {
		err := t.store.UpdateAt(ctx, index, e)
		t.observe(ctx, applog.OpUpdate, err)
		if err != nil {
			if errors.Is(err, store.ErrIndexOutOfRange) {
				t.session.Clear()
			}
			return Updated, fmt.Errorf("update expense %d: %w", index, err)
		}
		t.session.Clear()
		t.logger.InfoContext(ctx, "Expense updated",
			applog.NewFields().WithOperation(applog.OpUpdate).WithIndex(index).
				WithExpense(e.Title, e.Amount.Cents, e.Date.String()).ToSlice()...)
		t.publish(ctx, amqp.NewExpenseEvent(amqp.EventUpdated, index, e))
		return Updated, nil
	}

	err := t.store.Add(ctx, e)
	t.observe(ctx, applog.OpAdd, err)
	if err != nil {
		return Created, fmt.Errorf("add expense: %w", err)
	}
	n, err := t.store.Len(ctx)
	if err != nil {
		return Created, fmt.Errorf("count expenses: %w", err)
	}
	t.logger.InfoContext(ctx, "Expense added",
		applog.NewFields().WithOperation(applog.OpAdd).WithIndex(n-1).
			WithExpense(e.Title, e.Amount.Cents, e.Date.String()).ToSlice()...)
	t.publish(ctx, amqp.NewExpenseEvent(amqp.EventAdded, n-1, e))
	return Created, nil
}

// BeginEdit starts editing index and returns the record to prefill the form.
// Starting a new edit replaces any session already in progress.
func (t *Tracker) BeginEdit(ctx context.Context, index int) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.store.All(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("list expenses: %w", err)
	}
	if index < 0 || index >= len(all) {
		return core.Expense{}, fmt.Errorf("begin edit: %w", store.OutOfRange(index, len(all)))
	}

	t.session.Begin(index)
	t.logger.DebugContext(ctx, "Edit started", applog.FieldOperation, applog.OpBeginEdit, applog.FieldIndex, index)
	return all[index], nil
}

// CancelEdit ends the edit session without touching the collection.
func (t *Tracker) CancelEdit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	index, ok := t.session.Index()
	if !ok {
		return ErrNotEditing
	}
	t.session.Clear()
	t.logger.DebugContext(ctx, "Edit cancelled", applog.FieldOperation, applog.OpCancelEdit, applog.FieldIndex, index)
	return nil
}

// Remove deletes the record at index. An edit session on a later record
// follows it down one position; one on the removed record is cancelled,
// which is reported by editCancelled.
func (t *Tracker) Remove(ctx context.Context, index int) (editCancelled bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.store.All(ctx)
	if err != nil {
		return false, fmt.Errorf("list expenses: %w", err)
	}
	if index < 0 || index >= len(all) {
		rangeErr := store.OutOfRange(index, len(all))
		t.observe(ctx, applog.OpRemove, rangeErr)
		return false, fmt.Errorf("remove expense: %w", rangeErr)
	}
	removed := all[index]

	err = t.store.RemoveAt(ctx, index)
	t.observe(ctx, applog.OpRemove, err)
	if err != nil {
		return false, fmt.Errorf("remove expense %d: %w", index, err)
	}
	_, wasEditing := t.session.Index()
	t.session.Removed(index)
	_, stillEditing := t.session.Index()

	t.logger.InfoContext(ctx, "Expense removed",
		applog.NewFields().WithOperation(applog.OpRemove).WithIndex(index).
			WithExpense(removed.Title, removed.Amount.Cents, removed.Date.String()).ToSlice()...)
	t.publish(ctx, amqp.NewExpenseEvent(amqp.EventRemoved, index, removed))
	return wasEditing && !stillEditing, nil
}

// View derives the page state for year. Totals cover the filtered entries.
func (t *Tracker) View(ctx context.Context, year int) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.store.All(ctx)
	if err != nil {
		return View{}, fmt.Errorf("list expenses: %w", err)
	}

	now := t.now()
	entries := query.FilterByYear(all, year)
	index, editing := t.session.Index()

	t.logger.DebugContext(ctx, "View computed",
		applog.FieldOperation, applog.OpView,
		applog.FieldYear, year,
		applog.FieldCount, len(entries))

	return View{
		Year:        year,
		Entries:     entries,
		Totals:      query.MonthlyTotalsOf(entries),
		YearOptions: query.YearOptions(now),
		DefaultYear: query.DefaultYear(now),
		DefaultDate: query.Today(now),
		EditIndex:   index,
		Editing:     editing,
	}, nil
}

// Years returns the year selector options and the default selection.
func (t *Tracker) Years() ([]int, int) {
	now := t.now()
	return query.YearOptions(now), query.DefaultYear(now)
}

// Editing reports the current edit session.
func (t *Tracker) Editing() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Index()
}

func (t *Tracker) observe(ctx context.Context, op string, err error) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObserveMutation(op, err)
	if err == nil {
		if n, lerr := t.store.Len(ctx); lerr == nil {
			t.metrics.SetStored(n)
		}
	}
}

// publish never fails the mutation; broker problems are only logged.
func (t *Tracker) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if t.publisher == nil {
		return
	}
	err := t.publisher.PublishExpenseEvent(ctx, ev)
	if t.metrics != nil {
		t.metrics.ObservePublish(string(ev.Type), err)
	}
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish expense event",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldIndex, ev.Index,
			"type", ev.Type,
			applog.FieldError, err)
	}
}

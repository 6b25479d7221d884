package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/store"

	_ "modernc.org/sqlite"
)

const table = "expenses"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteStore keeps the collection in a private in-memory SQLite database.
// The database lives as long as the store; nothing reaches disk.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(ctx context.Context) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:expenses-%s?mode=memory&cache=shared", uuid.NewString())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One pinned connection: the shared-cache database is dropped when its
	// last connection closes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Add(ctx context.Context, e core.Expense) error {
	_, err := psql.Insert(table).
		Columns("title", "amount_cents", "date").
		Values(e.Title, e.Amount.Cents, e.Date.String()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense inserted", "title", e.Title, "amount_cents", e.Amount.Cents, "date", e.Date.String())
	return nil
}

func (s *SQLiteStore) UpdateAt(ctx context.Context, index int, e core.Expense) error {
	return s.atIndex(ctx, index, func(tx *sql.Tx, seq int64) error {
		_, err := psql.Update(table).
			Set("title", e.Title).
			Set("amount_cents", e.Amount.Cents).
			Set("date", e.Date.String()).
			Where(sq.Eq{"seq": seq}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("update expense at %d: %w", index, err)
		}
		return nil
	})
}

func (s *SQLiteStore) RemoveAt(ctx context.Context, index int) error {
	return s.atIndex(ctx, index, func(tx *sql.Tx, seq int64) error {
		_, err := psql.Delete(table).
			Where(sq.Eq{"seq": seq}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("delete expense at %d: %w", index, err)
		}
		return nil
	})
}

func (s *SQLiteStore) All(ctx context.Context) ([]core.Expense, error) {
	rows, err := psql.Select("title", "amount_cents", "date").
		From(table).
		OrderBy("seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.Title, &e.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := psql.Select("COUNT(*)").From(table).RunWith(s.db).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// atIndex resolves a position to its row inside a transaction and runs fn on it.
func (s *SQLiteStore) atIndex(ctx context.Context, index int, fn func(tx *sql.Tx, seq int64) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", err)
		}
	}()

	seq, err := s.seqAt(ctx, tx, index)
	if err != nil {
		return err
	}
	if err := fn(tx, seq); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) seqAt(ctx context.Context, tx *sql.Tx, index int) (int64, error) {
	if index < 0 {
		return 0, s.outOfRange(ctx, tx, index)
	}
	var seq int64
	err := psql.Select("seq").
		From(table).
		OrderBy("seq").
		Limit(1).
		Offset(uint64(index)).
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, s.outOfRange(ctx, tx, index)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve index %d: %w", index, err)
	}
	return seq, nil
}

func (s *SQLiteStore) outOfRange(ctx context.Context, tx *sql.Tx, index int) error {
	var n int
	if err := psql.Select("COUNT(*)").From(table).RunWith(tx).QueryRowContext(ctx).Scan(&n); err != nil {
		return fmt.Errorf("count expenses: %w", err)
	}
	return store.OutOfRange(index, n)
}

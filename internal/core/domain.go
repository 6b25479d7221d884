package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date format used on every boundary (form input, JSON, SQL).
const DateLayout = "2006-01-02"

// MaxTitleLength is the longest title accepted, in characters.
const MaxTitleLength = 200

type (
	// Date is a calendar date. The time component is always UTC midnight.
	Date struct {
		time.Time
	}

	// Money is a non-negative amount with two-decimal precision, stored as cents.
	Money struct {
		Cents int64
	}

	Expense struct {
		Title  string
		Amount Money
		Date   Date
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Year returns the calendar year
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the month, 1 = January
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MoneyFromFloat converts a decimal amount to cents, rounding half away from zero.
func MoneyFromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Money{}, ErrInvalidAmount
	}
	c := math.Round(v * 100)
	if c > math.MaxInt64 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: int64(c)}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of m and o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// TitleTooLong reports whether title exceeds MaxTitleLength characters.
func TitleTooLong(title string) bool {
	return utf8.RuneCountInString(title) > MaxTitleLength
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if TitleTooLong(e.Title) {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}

// Package query derives views from the expense collection. Every function is
// pure and recomputed per call; nothing is cached.
package query

import (
	"time"

	"expensetracker/internal/core"
)

// YearSpan is how many years before the current one the year selector offers.
const YearSpan = 10

// MonthLabels are the chart labels in calendar order.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Entry is an expense together with its position in the full collection at
// query time, so the caller can address it in UpdateAt/RemoveAt.
type Entry struct {
	core.Expense
	Index int
}

// MonthTotal is one bar of the monthly chart.
type MonthTotal struct {
	MonthLabel string
	Total      core.Money
}

// FilterByYear keeps the expenses whose date falls in year, in collection order.
func FilterByYear(expenses []core.Expense, year int) []Entry {
	out := make([]Entry, 0, len(expenses))
	for i, e := range expenses {
		if e.Date.Year() == year {
			out = append(out, Entry{Expense: e, Index: i})
		}
	}
	return out
}

// MonthlyTotals sums amounts per calendar month; index 0 is January.
func MonthlyTotals(expenses []core.Expense) [12]core.Money {
	var totals [12]core.Money
	for _, e := range expenses {
		totals[e.Date.Month()-1] = totals[e.Date.Month()-1].Add(e.Amount)
	}
	return totals
}

// MonthlyTotalsOf is MonthlyTotals over a filtered view.
func MonthlyTotalsOf(entries []Entry) [12]core.Money {
	expenses := make([]core.Expense, len(entries))
	for i, en := range entries {
		expenses[i] = en.Expense
	}
	return MonthlyTotals(expenses)
}

// MonthlySeries labels the totals for the chart.
func MonthlySeries(totals [12]core.Money) []MonthTotal {
	series := make([]MonthTotal, len(totals))
	for i, t := range totals {
		series[i] = MonthTotal{MonthLabel: MonthLabels[i], Total: t}
	}
	return series
}

// YearOptions lists the selectable filter years, newest first: the current
// year down through the prior YearSpan years.
func YearOptions(now time.Time) []int {
	current := now.Year()
	years := make([]int, 0, YearSpan+1)
	for y := current; y >= current-YearSpan; y-- {
		years = append(years, y)
	}
	return years
}

// DefaultYear is the year the filter starts on.
func DefaultYear(now time.Time) int {
	return now.Year()
}

// Today is the form's default date.
func Today(now time.Time) core.Date {
	return core.DateOf(now)
}

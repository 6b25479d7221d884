package http

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/services"
)

const emptyListMessage = "Found no expenses."

var printer = message.NewPrinter(language.English)

// formatAmount renders an amount with two decimals behind the currency
// label, e.g. "RM 1,234.50".
func formatAmount(label string, m core.Money) string {
	return printer.Sprintf("%s %.2f", label, m.Float())
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

type expenseRecord struct {
	Title         string  `json:"title"`
	Amount        float64 `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
	Date          string  `json:"date"`
	OriginalIndex int     `json:"original_index"`
}

type monthTotal struct {
	MonthLabel string  `json:"month_label"`
	Total      float64 `json:"total"`
}

type chartData struct {
	Label  string       `json:"label"`
	Months []monthTotal `json:"months"`
}

type editState struct {
	Active bool `json:"active"`
	Index  *int `json:"index,omitempty"`
}

type viewResponse struct {
	Year        int             `json:"year"`
	Expenses    []expenseRecord `json:"expenses"`
	Message     string          `json:"message,omitempty"`
	Chart       chartData       `json:"chart"`
	YearOptions []int           `json:"year_options"`
	DefaultYear int             `json:"default_year"`
	DefaultDate string          `json:"default_date"`
	Edit        editState       `json:"edit"`
}

type yearsResponse struct {
	Years       []int `json:"years"`
	DefaultYear int   `json:"default_year"`
}

type formValues struct {
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type editResponse struct {
	Index int        `json:"index"`
	Form  formValues `json:"form"`
}

type submitResponse struct {
	Outcome string `json:"outcome"`
}

func toRecord(label string, e query.Entry) expenseRecord {
	return expenseRecord{
		Title:         e.Title,
		Amount:        e.Amount.Float(),
		AmountDisplay: formatAmount(label, e.Amount),
		Date:          e.Date.String(),
		OriginalIndex: e.Index,
	}
}

func toViewResponse(label string, v services.View) viewResponse {
	records := make([]expenseRecord, 0, len(v.Entries))
	for _, e := range v.Entries {
		records = append(records, toRecord(label, e))
	}

	series := query.MonthlySeries(v.Totals)
	months := make([]monthTotal, 0, len(series))
	for _, m := range series {
		months = append(months, monthTotal{MonthLabel: m.MonthLabel, Total: m.Total.Float()})
	}

	resp := viewResponse{
		Year:        v.Year,
		Expenses:    records,
		Chart:       chartData{Label: label, Months: months},
		YearOptions: v.YearOptions,
		DefaultYear: v.DefaultYear,
		DefaultDate: v.DefaultDate.String(),
		Edit:        editState{Active: v.Editing},
	}
	if len(records) == 0 {
		resp.Message = emptyListMessage
	}
	if v.Editing {
		i := v.EditIndex
		resp.Edit.Index = &i
	}
	return resp
}

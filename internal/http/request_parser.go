// Package http exposes the tracker over a JSON API.
//
// This file parses request bodies and path/query parameters into domain
// values, collecting per-field problems the page can show next to inputs.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
)

const (
	fieldTitle  = "title"
	fieldAmount = "amount"
	fieldDate   = "date"

	msgRequired      = "This field is required"
	msgInvalidAmount = "Enter a valid amount"
	msgInvalidDate   = "Enter a date as YYYY-MM-DD"
	msgTitleTooLong  = "Title is too long"

	maxBodyBytes = 1 << 16
)

var errInvalidIndex = errors.New("invalid index")

// FieldErrors maps a form field to the message shown beside it.
type FieldErrors map[string]string

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// parseAmount accepts digits with one "." or "," decimal separator. Anything
// else is rejected rather than masked away.
func parseAmount(raw string) (core.Money, error) {
	raw = strings.TrimSpace(raw)
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return core.Money{}, core.ErrInvalidAmount
		}
	}
	return core.ParseMoney(raw)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseExpenseForm reads title, amount and date. Every missing field is
// reported as required; the expense is only meaningful when errs is empty.
func ParseExpenseForm(p *RequestBodyParser) (core.Expense, FieldErrors) {
	errs := FieldErrors{}
	var e core.Expense

	title := p.Get(fieldTitle)
	switch {
	case title == "":
		errs[fieldTitle] = msgRequired
	case core.TitleTooLong(title):
		errs[fieldTitle] = msgTitleTooLong
	default:
		e.Title = title
	}

	if raw := p.Get(fieldAmount); raw == "" {
		errs[fieldAmount] = msgRequired
	} else if amount, err := parseAmount(raw); err != nil {
		errs[fieldAmount] = msgInvalidAmount
	} else {
		e.Amount = amount
	}

	if raw := p.Get(fieldDate); raw == "" {
		errs[fieldDate] = msgRequired
	} else if date, err := core.ParseDate(raw); err != nil {
		errs[fieldDate] = msgInvalidDate
	} else {
		e.Date = date
	}

	return e, errs
}

// parseIndex reads the {index} path parameter.
func parseIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, errInvalidIndex
	}
	return i, nil
}

// parseYear reads ?year=, falling back to def when absent or malformed.
func parseYear(query url.Values, def int) int {
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			return y
		}
	}
	return def
}

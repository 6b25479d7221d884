package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldIndex       = "index"
	FieldTitle       = "title"
	FieldAmountCents = "amount_cents"
	FieldDate        = "date"
	FieldCount       = "count"
	FieldBackend     = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentTracker   = "tracker"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentBackend   = "backend"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpAdd        = "add"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpView       = "view"
	OpBeginEdit  = "begin_edit"
	OpCancelEdit = "cancel_edit"
	OpPublish    = "publish"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithIndex(index int) LogFields {
	f[FieldIndex] = index
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(title string, amountCents int64, date string) LogFields {
	f[FieldTitle] = title
	f[FieldAmountCents] = amountCents
	f[FieldDate] = date
	return f
}

// ToSlice converts LogFields to a slice for slog, keys in sorted order
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}

// Package http exposes the tracker over a JSON API.
//
// This file implements the Builder Pattern for responses: a status, JSON
// body and the HX-Trigger events the page listens for.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Events announced through the HX-Trigger header.
const (
	EventExpenseCreated = "expense:created"
	EventExpenseUpdated = "expense:updated"
	EventExpenseDeleted = "expense:deleted"
	EventFormReset      = "form:reset"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerExpenseCreated announces a new expense dated in year.
func (b *ResponseBuilder) TriggerExpenseCreated(year int) *ResponseBuilder {
	return b.Trigger(EventExpenseCreated, map[string]int{"year": year})
}

func (b *ResponseBuilder) TriggerExpenseUpdated(year int) *ResponseBuilder {
	return b.Trigger(EventExpenseUpdated, map[string]int{"year": year})
}

func (b *ResponseBuilder) TriggerExpenseDeleted(index int) *ResponseBuilder {
	return b.Trigger(EventExpenseDeleted, map[string]int{"index": index})
}

// TriggerFormReset asks the page to clear the form and leave edit mode.
func (b *ResponseBuilder) TriggerFormReset() *ResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type fieldErrorsBody struct {
	Errors FieldErrors `json:"errors"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ValidationError reports per-field problems with 422.
func ValidationError(errs FieldErrors) *ResponseBuilder {
	return NewResponse().Status(http.StatusUnprocessableEntity).JSON(fieldErrorsBody{Errors: errs})
}

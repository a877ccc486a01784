// Package http serves the organify JSON API.
//
// This file implements the builder for the response envelope shared by every
// endpoint: {"success", "data", "error", "fields"}.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"organify/internal/core"
	applog "organify/internal/log"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       envelope
}

// NewResponse creates a successful response builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		body:       envelope{Success: true},
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a custom response header.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the payload of a successful response.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.body.Data = v
	return b
}

// Fail marks the response as failed with a user facing message.
func (b *ResponseBuilder) Fail(message string) *ResponseBuilder {
	b.body.Success = false
	b.body.Error = message
	return b
}

// Fields attaches per field validation messages.
func (b *ResponseBuilder) Fields(fields map[string]string) *ResponseBuilder {
	b.body.Fields = fields
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// OK creates a 200 response carrying data.
func OK(data any) *ResponseBuilder {
	return NewResponse().Data(data)
}

// Created creates a 201 response carrying data.
func Created(data any) *ResponseBuilder {
	return NewResponse().Status(http.StatusCreated).Data(data)
}

// ErrorResponse creates a failed response with the given status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Fail(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ValidationError creates a 422 response listing the offending fields.
func ValidationError(fields core.ValidationErrors) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "validation failed").Fields(fields)
}

// FromError maps a service error onto the response taxonomy. Anything that is
// not a known domain error becomes a generic 500.
func FromError(err error) *ResponseBuilder {
	if fields, ok := core.AsValidation(err); ok {
		return ValidationError(fields)
	}
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return ErrorResponse(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("resource not found")
	case errors.Is(err, core.ErrDuplicateCategory):
		return ErrorResponse(http.StatusConflict, core.ErrDuplicateCategory.Error())
	case errors.Is(err, core.ErrForbidden):
		return ErrorResponse(http.StatusForbidden, core.ErrForbidden.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "request timed out")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal server error")
	}
}

// writeError logs server side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op, applog.FieldError, err)
	}
	resp.Write(w)
}

// Package http exposes the materials, quotes and dashboard REST API.
//
// This file implements the builder used for every JSON response so the
// envelope stays consistent across handlers.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"cotizador/internal/core"
	applog "cotizador/internal/log"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Message    string            `json:"message,omitempty"`
	Count      *int              `json:"count,omitempty"`
	Total      *int              `json:"total,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Stack      string            `json:"stack,omitempty"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(p PageParams, total int) *Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// JSONResponseBuilder provides a fluent API for building envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	env        Envelope
	headers    map[string]string
}

// NewJSONResponse starts a successful 200 response.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		env:        Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.env.Data = data
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.env.Message = msg
	return b
}

func (b *JSONResponseBuilder) Count(n int) *JSONResponseBuilder {
	b.env.Count = &n
	return b
}

func (b *JSONResponseBuilder) Total(n int) *JSONResponseBuilder {
	b.env.Total = &n
	return b
}

// Page sets count, total and pagination for a list response.
func (b *JSONResponseBuilder) Page(p PageParams, count, total int) *JSONResponseBuilder {
	b.Count(count)
	b.Total(total)
	b.env.Pagination = NewPagination(p, total)
	return b
}

// Fail turns the response into an error envelope.
func (b *JSONResponseBuilder) Fail(code int, msg string) *JSONResponseBuilder {
	b.statusCode = code
	b.env.Success = false
	b.env.Error = msg
	return b
}

func (b *JSONResponseBuilder) Details(details map[string]string) *JSONResponseBuilder {
	b.env.Details = details
	return b
}

func (b *JSONResponseBuilder) Stack(stack string) *JSONResponseBuilder {
	b.env.Stack = stack
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter. The body is
// encoded before the status line so an unencodable payload becomes a 500
// envelope instead of an empty response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	status := b.statusCode
	body, err := json.Marshal(b.env)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(Envelope{Error: "Internal server error", Message: "response could not be encoded"})
	} else {
		for name, value := range b.headers {
			w.Header().Set(name, value)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorResponse creates an error envelope with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Fail(statusCode, message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// classifyError maps the domain error taxonomy to a status, a public message
// and optional per-field details.
func classifyError(err error) (int, string, map[string]string) {
	var mnf *core.MaterialNotFoundError
	var ve *core.ValidationError
	var te *core.TransitionError
	switch {
	case errors.As(err, &mnf):
		return http.StatusBadRequest, mnf.Error(), map[string]string{"materialRef": mnf.ID}
	case errors.As(err, &ve):
		return http.StatusBadRequest, "Validation failed", ve.Fields
	case errors.As(err, &te):
		return http.StatusBadRequest, te.Error(), map[string]string{"status": te.Error()}
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusBadRequest, "Invalid status transition", nil
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Resource not found", nil
	case errors.Is(err, core.ErrDuplicateKey):
		return http.StatusConflict, "Duplicate key", nil
	default:
		return http.StatusInternalServerError, "Internal server error", nil
	}
}

// writeError renders err as an envelope. Internal errors are logged, and in
// development the error text and stack trace are included.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, details := classifyError(err)
	resp := ErrorResponse(status, msg).Details(details)

	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, r.Method+" "+r.URL.Path,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		if s.dev {
			resp.Message(err.Error()).Stack(string(debug.Stack()))
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldStatusCode, status)
	}
	resp.Write(w)
}

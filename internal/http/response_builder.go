// Package http exposes the wealth tracker over a JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses with consistent headers and error bodies.

package http

import (
	"encoding/json"
	"net/http"

	applog "wealthtrack/internal/log"
	"wealthtrack/internal/middleware/trace"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Index     *int   `json:"index,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a response header.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be JSON-encoded.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	b.raw = nil
	return b
}

// Raw sets an already encoded JSON document.
func (b *JSONResponseBuilder) Raw(doc []byte) *JSONResponseBuilder {
	b.raw = doc
	b.payload = nil
	return b
}

// Attachment marks the response as a file download.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends the response. Encoding failures turn into a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body := b.raw
	if body == nil && b.payload != nil {
		var err error
		body, err = json.Marshal(b.payload)
		if err != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
			return
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if body != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if body != nil {
		_, _ = w.Write(body)
	}
}

// ErrorResponse builds an error body tagged with the request id.
func ErrorResponse(r *http.Request, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, RequestID: trace.GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= 500 {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldStatusCode, status, applog.FieldError, message)
	}
	ErrorResponse(r, status, message).Write(w)
}

func noContent(w http.ResponseWriter) {
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

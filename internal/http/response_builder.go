// Package http exposes one tab over a JSON API.
//
// Responses are built with ResponseBuilder. Notifications produced by a
// mutation travel in the HX-Trigger header as a show-notification event, so
// an HTMX front end can display them without parsing the body.
package http

import (
	"encoding/json"
	"net/http"

	"spendsync/internal/notify"
)

// ResponseBuilder provides a fluent API for building responses.
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

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// TriggerNotification adds a show-notification event. Success messages stay
// for the notify display window, errors a little longer.
func (b *ResponseBuilder) TriggerNotification(n notify.Notification) *ResponseBuilder {
	kind, duration := NotificationSuccess, notify.DisplayWindow
	if n.Error {
		kind, duration = NotificationError, 5*notify.DisplayWindow/3
	}
	return b.Trigger("show-notification", map[string]any{
		"type":     string(kind),
		"message":  n.Message,
		"duration": duration.Milliseconds(),
	})
}

// TriggerViewChanged asks the client to refresh its view.
func (b *ResponseBuilder) TriggerViewChanged() *ResponseBuilder {
	return b.Trigger("view:changed", struct{}{})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the response body.
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
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").
		Header("Allow", allowedMethods)
}

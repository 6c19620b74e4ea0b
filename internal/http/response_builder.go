package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Dashboard events. Cards listen for them with hx-trigger="... from:body".
const (
	eventTransactionChanged  = "transaction:changed"
	eventFixedExpenseChanged = "fixed-expense:changed"
	eventPlanChanged         = "plan:changed"
	eventFormReset           = "form:reset"
	eventNotification        = "show-notification"
)

// HTMXResponseBuilder assembles a response for an HTMX request: status,
// headers, a body and the events sent in HX-Trigger.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   string
}

// NewHTMXResponse starts a 200 response with no events.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) event(name string, detail any) *HTMXResponseBuilder {
	b.events[name] = detail
	return b
}

// TriggerTransactionChanged reloads every card, carrying the month the
// transaction falls in so the page can follow it.
func (b *HTMXResponseBuilder) TriggerTransactionChanged(year, month int) *HTMXResponseBuilder {
	return b.event(eventTransactionChanged, map[string]int{"year": year, "month": month})
}

func (b *HTMXResponseBuilder) TriggerFixedExpenseChanged() *HTMXResponseBuilder {
	return b.event(eventFixedExpenseChanged, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerPlanChanged(tier string) *HTMXResponseBuilder {
	return b.event(eventPlanChanged, map[string]string{"tier": tier})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.event(eventFormReset, struct{}{})
}

// NotificationType selects the toast style in app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.event(eventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

// Refresh makes HTMX reload the whole page. Used when the dashboard variant
// changes under the user.
func (b *HTMXResponseBuilder) Refresh() *HTMXResponseBuilder {
	return b.Header("HX-Refresh", "true")
}

// Write flushes the response. An event map that fails to encode is dropped
// rather than sent half-formed.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if raw, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(b.status)
	if b.body != "" {
		_, _ = w.Write([]byte(b.body))
	}
}

// ErrorResponse renders message, escaped, as the inline error fragment the
// forms swap into #form-errors.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		Header("Content-Type", "text/html; charset=utf-8").
		BodyString(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// ForbiddenError names the tier that unlocks the feature in X-Required-Tier.
func ForbiddenError(message, requiredTier string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message).Header("X-Required-Tier", requiredTier)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors. Every error returned by Client wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	// ErrUnauthenticated means the backend rejected the session token (401).
	// By the time it is returned the stored credentials have been cleared.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the user is signed in but not allowed (403).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation means the backend rejected the payload (422).
	ErrValidation = errors.New("validation failed")

	// ErrRequestFailed covers every other non-2xx answer and 2xx envelopes
	// reporting success=false.
	ErrRequestFailed = errors.New("request failed")

	// ErrNotFound is a request failure with status 404.
	ErrNotFound = fmt.Errorf("%w: not found", ErrRequestFailed)

	// ErrNetworkUnreachable means no HTTP response was received.
	ErrNetworkUnreachable = errors.New("backend unreachable")
)

// FieldError is one entry of a 422 detail array.
type FieldError struct {
	Field   string
	Message string
	Type    string
}

// Error is the concrete error type returned by Client.
type Error struct {
	Method  string
	Path    string
	Status  int    // 0 when no response was received
	Message string // backend-provided or fallback text, safe to show to users
	Fields  []FieldError
	Err     error // one of the sentinels above
	Cause   error // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.Path)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Default user-facing messages per error class.
const (
	msgUnauthenticated = "Your session has expired. Please sign in again."
	msgForbidden       = "You do not have permission to do that."
	msgNotFound        = "The requested item could not be found."
	msgValidation      = "Some fields are invalid. Please check your input."
	msgUnreachable     = "Unable to reach the server. Please check your connection and try again."
	msgUnexpected      = "Unexpected response from the server."
)

// Message returns text suitable for a toast or inline error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return msgUnauthenticated
	case errors.Is(err, ErrForbidden):
		return msgForbidden
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrValidation):
		return msgValidation
	case errors.Is(err, ErrNetworkUnreachable):
		return msgUnreachable
	}
	return "Something went wrong. Please try again."
}

// FieldMessages returns the field-level messages of a validation error keyed
// by field name, or nil.
func FieldMessages(err error) map[string]string {
	var apiErr *Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(apiErr.Fields))
	for _, f := range apiErr.Fields {
		if _, dup := out[f.Field]; !dup {
			out[f.Field] = f.Message
		}
	}
	return out
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// errorBody is the error envelope. detail is either a string or a list of
// field errors.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type detailItem struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// parseErrorBody extracts a message and field errors from a non-2xx body.
// Bodies that are not JSON yield nothing.
func parseErrorBody(data []byte) (string, []FieldError) {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return "", nil
	}

	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil && s != "" {
			return s, nil
		}

		var items []detailItem
		if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
			fields := make([]FieldError, 0, len(items))
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				fields = append(fields, FieldError{Field: fieldName(it.Loc), Message: it.Msg, Type: it.Type})
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; "), fields
		}
	}
	return body.Message, nil
}

// fieldName turns a loc path like ["body", "shipping_info", "city"] into
// "shipping_info.city".
func fieldName(loc []interface{}) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && (s == "body" || s == "query" || s == "path") {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(method, path string, status int, data []byte) *Error {
	msg, fields := parseErrorBody(data)
	e := &Error{Method: method, Path: path, Status: status, Message: msg, Fields: fields}

	switch status {
	case http.StatusUnauthorized:
		e.Err = ErrUnauthenticated
		if e.Message == "" {
			e.Message = msgUnauthenticated
		}
	case http.StatusForbidden:
		e.Err = ErrForbidden
		if e.Message == "" {
			e.Message = msgForbidden
		}
	case http.StatusNotFound:
		e.Err = ErrNotFound
		if e.Message == "" {
			e.Message = msgNotFound
		}
	case http.StatusUnprocessableEntity:
		e.Err = ErrValidation
		if e.Message == "" {
			e.Message = msgValidation
		}
	default:
		e.Err = ErrRequestFailed
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	}
	return e
}

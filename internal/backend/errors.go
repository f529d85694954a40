package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// Error is implemented by every failure the client reports for a request that was sent.
// The concrete types are NetworkError, UnauthorizedError, ForbiddenError, ValidationError and ServerError.
type Error interface {
	error
	apiError()
}

// NetworkError means no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "cannot reach the server: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }
func (*NetworkError) apiError()       {}

// UnauthorizedError is a 401 response: the stored credentials are no longer accepted.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return withStatus(http.StatusUnauthorized, e.Message) }
func (*UnauthorizedError) apiError()       {}

// ForbiddenError is a 403 response.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return withStatus(http.StatusForbidden, e.Message) }
func (*ForbiddenError) apiError()       {}

// ValidationError is a 400, 409 or 422 response. Fields holds a field-level error map when
// the backend sent one.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message == "" && len(e.Fields) > 0 {
		return withStatus(e.Status, JoinFields(e.Fields))
	}
	return withStatus(e.Status, e.Message)
}
func (*ValidationError) apiError() {}

// ServerError is any other non-2xx response.
type ServerError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *ServerError) Error() string { return withStatus(e.Status, e.Message) }
func (*ServerError) apiError()       {}

func withStatus(status int, msg string) string {
	if msg == "" {
		return statusLine(status, "")
	}
	return fmt.Sprintf("%d: %s", status, msg)
}

func statusLine(status int, text string) string {
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Sprintf("%d %s", status, text)
}

// JoinFields joins field errors in key order.
func JoinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = fields[k]
	}
	return strings.Join(msgs, "; ")
}

// Message extracts the most useful text from err: the backend's own message, then its
// field errors, then "<status> <statusText>".
func Message(err error) string {
	var apiErr Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch e := apiErr.(type) {
	case *NetworkError:
		return "cannot reach the server"
	case *UnauthorizedError:
		return firstNonEmpty(e.Message, statusLine(http.StatusUnauthorized, ""))
	case *ForbiddenError:
		return firstNonEmpty(e.Message, statusLine(http.StatusForbidden, ""))
	case *ValidationError:
		if e.Message != "" {
			return e.Message
		}
		if len(e.Fields) > 0 {
			return JoinFields(e.Fields)
		}
		return statusLine(e.Status, "")
	case *ServerError:
		return firstNonEmpty(e.Message, statusLine(e.Status, e.StatusText))
	default:
		return err.Error()
	}
}

// FieldsFirst is Message with field-level errors taking priority over the plain message.
func FieldsFirst(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return JoinFields(verr.Fields)
	}
	return Message(err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

const maxMessageLen = 300

// classify turns a non-2xx response into one of the Error types.
func classify(status int, contentType string, body []byte) Error {
	msg, fields := parseErrorBody(contentType, body)

	switch {
	case status == http.StatusUnauthorized:
		return &UnauthorizedError{Message: msg}
	case status == http.StatusForbidden:
		return &ForbiddenError{Message: msg}
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return &ValidationError{Status: status, Message: msg, Fields: fields}
	default:
		return &ServerError{Status: status, StatusText: http.StatusText(status), Message: msg}
	}
}

// parseErrorBody accepts a JSON string, a JSON object with "message", a JSON object of
// string values (field errors) or plain text.
func parseErrorBody(contentType string, body []byte) (string, map[string]string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return truncate(s), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		if m, ok := obj["message"].(string); ok && m != "" {
			return truncate(m), nil
		}

		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			sv, ok := v.(string)
			if !ok {
				// Not a field map, e.g. {"status":500,"error":"Internal Server Error"}.
				if e, ok := obj["error"].(string); ok {
					return truncate(e), nil
				}
				return "", nil
			}
			fields[k] = sv
		}
		if len(fields) == 0 {
			return "", nil
		}
		return "", fields
	}

	if strings.HasPrefix(contentType, "text/html") || trimmed[0] == '<' {
		return "", nil
	}
	return truncate(string(trimmed)), nil
}

// truncate cuts s to at most maxMessageLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	s = s[:maxMessageLen]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

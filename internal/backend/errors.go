package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Operation string
	Status    int
	Body      string
	// Fields holds the validation messages when the body is a field -> messages map.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s: backend status %d: %s", e.Operation, e.Status, body)
}

// FirstFieldMessage returns "detail" when present, otherwise the first message
// of the alphabetically first field. Empty when the body carries neither.
func (e *APIError) FirstFieldMessage() string {
	if msgs := e.Fields["detail"]; len(msgs) > 0 {
		return msgs[0]
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

func newAPIError(op string, status int, body []byte) *APIError {
	return &APIError{
		Operation: op,
		Status:    status,
		Body:      strings.TrimSpace(string(body)),
		Fields:    parseFieldErrors(body),
	}
}

// parseFieldErrors accepts {"field": ["msg", ...]}, {"field": "msg"} and
// nested {"field": {"sub": ["msg"]}} shapes. Anything else yields nil.
func parseFieldErrors(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	fields := make(map[string][]string, len(raw))
	for k, v := range raw {
		if msgs := messages(v); len(msgs) > 0 {
			fields[k] = msgs
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func messages(v json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(v, &nested); err == nil {
		keys := make([]string, 0, len(nested))
		for k := range nested {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, messages(nested[k])...)
		}
		return out
	}
	return nil
}

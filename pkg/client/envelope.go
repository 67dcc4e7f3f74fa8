package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/naveenspark/handyhub/pkg/domain"
)

// decodeEnvelope accepts both bare payloads and {"data": ...} wrappers.
func decodeEnvelope(body []byte, out any) error {
	var wrap struct {
		Data json.RawMessage `json:"data"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) &&
		json.Unmarshal(body, &wrap) == nil && len(wrap.Data) > 0 && string(wrap.Data) != "null" {
		return json.Unmarshal(wrap.Data, out)
	}
	return json.Unmarshal(body, out)
}

// bookingList decodes a bare array or {"bookings": [...]}.
type bookingList []domain.Booking

func (l *bookingList) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var list []domain.Booking
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var wrap struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	if err := json.Unmarshal(data, &wrap); err != nil {
		return err
	}
	*l = wrap.Bookings
	return nil
}

// serviceList decodes a bare array or {"services": [...]}.
type serviceList []domain.Service

func (l *serviceList) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var list []domain.Service
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var wrap struct {
		Services []domain.Service `json:"services"`
	}
	if err := json.Unmarshal(data, &wrap); err != nil {
		return err
	}
	*l = wrap.Services
	return nil
}

// bookingEnvelope decodes a bare booking or {"booking": {...}}.
type bookingEnvelope struct {
	b *domain.Booking
}

func (e *bookingEnvelope) UnmarshalJSON(data []byte) error {
	var wrap struct {
		Booking *domain.Booking `json:"booking"`
	}
	if json.Unmarshal(data, &wrap) == nil && wrap.Booking != nil {
		e.b = wrap.Booking
		return nil
	}
	var b domain.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	e.b = &b
	return nil
}

func (e *bookingEnvelope) value() *domain.Booking {
	return e.b
}

// parseError normalizes {message, errors, code} and the older {"error": "..."} shape.
func parseError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: status}

	var env struct {
		Message string                     `json:"message"`
		Error   string                     `json:"error"`
		Code    string                     `json:"code"`
		Errors  map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		httpErr.Code = env.Code
		httpErr.Message = env.Message
		if httpErr.Message == "" {
			httpErr.Message = env.Error
		}
		if len(env.Errors) > 0 {
			httpErr.Errors = make(map[string]string, len(env.Errors))
			for field, raw := range env.Errors {
				httpErr.Errors[field] = fieldMessage(raw)
			}
		}
	}
	if httpErr.Message == "" && len(httpErr.Errors) > 0 {
		httpErr.Message = firstFieldError(httpErr.Errors)
	}
	if httpErr.Message == "" {
		if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && len(text) < 200 {
			httpErr.Message = text
		} else {
			httpErr.Message = http.StatusText(status)
		}
	}
	return httpErr
}

// fieldMessage flattens a field error that may be a string or a list of strings.
func fieldMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return strings.Trim(string(raw), `"`)
}

func firstFieldError(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields[0] + ": " + errs[fields[0]]
}

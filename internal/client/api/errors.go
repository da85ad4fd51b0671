package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/ace/internal/common"
)

var (
	// ErrSessionExpired matches any *Error carrying status 401.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork wraps transport failures and undecodable responses.
	ErrNetwork = errors.New("network error")
)

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrSessionExpired:
		return e.Status == http.StatusUnauthorized
	case common.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case common.ErrNotFound:
		return e.Status == http.StatusNotFound
	case common.ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// Message returns the backend-provided message of err, or "" when err is not
// an *Error or carries none.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// errorMessage extracts a human message from an error body. Both
// {"detail": "..."} and {"message": "..."} are understood, as is the
// validation form {"detail": [{"msg": "..."}]}.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return payload.Message
}

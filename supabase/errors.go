package supabase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrInvalidConfig = errors.New("supabase: invalid config")
	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = errors.New("supabase: no active session")
	// ErrUnexpectedResponse is returned when a success response cannot be decoded.
	ErrUnexpectedResponse = errors.New("supabase: unexpected response")
)

// Error is a non-2xx response from the API. Code is the service's error code
// (auth error_code, Postgres SQLSTATE or storage error name) when present.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// errorBody is the union of the auth, REST and storage error formats.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
}

const maxErrorBody = 1 << 16

func parseError(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return e
	}

	e.Code = firstNonEmpty(body.ErrorCode, stringCode(body.Code), body.Error)
	e.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, body.Error, http.StatusText(resp.StatusCode))
	return e
}

// stringCode returns a string code. Numeric codes repeat the HTTP status and
// are dropped.
func stringCode(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	s, err := strconv.Unquote(string(raw))
	if err != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// statusOf returns the HTTP status of err when it is an *Error, else 0.
func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/middleware"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// authError is the auth service error body.
type authError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
}

func writeAuthError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, authError{Code: status, ErrorCode: code, Msg: msg})
}

// restError is the REST service error body. Code is a Postgres SQLSTATE or
// a PGRST code.
type restError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func writeRestError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, restError{Code: code, Message: msg})
}

// storageError is the storage service error body. StatusCode is a string on
// the wire.
type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func writeStorageError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, storageError{StatusCode: strconv.Itoa(status), Error: code, Message: msg})
}

func (s *Server) rejectAuth(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, middleware.ErrMissingToken):
		writeAuthError(w, http.StatusUnauthorized, "no_authorization", "This endpoint requires a Bearer token")
	case errors.Is(err, backend.ErrSessionNotFound):
		writeAuthError(w, http.StatusForbidden, "session_not_found", "Session from session_id claim in JWT does not exist")
	case errors.Is(err, backend.ErrUnauthorized):
		writeAuthError(w, http.StatusForbidden, "bad_jwt", "invalid JWT: unable to parse or verify signature, token is expired or invalid")
	default:
		s.authUnavailable(w, err)
	}
}

func (s *Server) rejectRest(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, backend.ErrSessionNotFound), errors.Is(err, backend.ErrUnauthorized):
		writeRestError(w, http.StatusUnauthorized, "PGRST301", "JWT is invalid or expired")
	default:
		s.logger.Warn("rest auth failed", zap.Error(err))
		writeRestError(w, http.StatusServiceUnavailable, "PGRST000", "could not reach the database")
	}
}

func (s *Server) rejectStorage(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, middleware.ErrMissingToken),
		errors.Is(err, backend.ErrSessionNotFound),
		errors.Is(err, backend.ErrUnauthorized):
		writeStorageError(w, http.StatusForbidden, "Unauthorized", "new row violates row-level security policy")
	default:
		s.logger.Warn("storage auth failed", zap.Error(err))
		writeStorageError(w, http.StatusServiceUnavailable, "DatabaseError", "storage backend unavailable")
	}
}

func (s *Server) authUnavailable(w http.ResponseWriter, err error) {
	s.logger.Warn("auth request failed", zap.Error(err))
	writeAuthError(w, http.StatusServiceUnavailable, "unexpected_failure", "auth backend unavailable")
}

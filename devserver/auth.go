package devserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/middleware"
	"go.uber.org/zap"
)

const maxAuthBody = 1 << 16

type credentials struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	RefreshToken string         `json:"refresh_token"`
	Data         map[string]any `json:"data"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&c); err != nil {
		writeAuthError(w, http.StatusBadRequest, "bad_json", "Could not parse request body as JSON")
		return c, false
	}
	return c, true
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if c.Email == "" || c.Password == "" {
		writeAuthError(w, http.StatusBadRequest, "validation_failed", "Signup requires a valid password")
		return
	}

	pair, err := s.backend.SignUp(r.Context(), c.Email, c.Password, c.Data)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pair)
	case errors.Is(err, backend.ErrUserExists):
		writeAuthError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	case errors.Is(err, backend.ErrWeakPassword):
		writeAuthError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
	case errors.Is(err, backend.ErrInvalidEmail):
		writeAuthError(w, http.StatusBadRequest, "email_address_invalid", "Unable to validate email address: invalid format")
	default:
		s.authUnavailable(w, err)
	}
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	grant := r.URL.Query().Get("grant_type")
	if grant != "password" && grant != "refresh_token" {
		writeAuthError(w, http.StatusBadRequest, "validation_failed", "unsupported_grant_type")
		return
	}
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if grant == "password" {
		ctx := backend.WithClientIP(r.Context(), clientIP(r))
		pair, err := s.backend.SignInWithPassword(ctx, c.Email, c.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, pair)
		case errors.Is(err, backend.ErrInvalidCredentials):
			writeAuthError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
		case errors.Is(err, backend.ErrRateLimited):
			writeAuthError(w, http.StatusTooManyRequests, "over_request_rate_limit", "Request rate limit reached")
		default:
			s.authUnavailable(w, err)
		}
		return
	}

	pair, err := s.backend.Refresh(r.Context(), c.RefreshToken)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pair)
	case errors.Is(err, backend.ErrRefreshReused):
		writeAuthError(w, http.StatusBadRequest, "refresh_token_already_used", "Invalid Refresh Token: Already Used")
	case errors.Is(err, backend.ErrInvalidRefreshToken),
		errors.Is(err, backend.ErrSessionCorrupt),
		errors.Is(err, backend.ErrUserNotFound):
		writeAuthError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
	default:
		s.authUnavailable(w, err)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := s.backend.SignOut(r.Context(), claims); err != nil {
		s.authUnavailable(w, err)
		return
	}
	s.logger.Debug("signed out", zap.String("user_id", claims.Subject))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	u, err := s.backend.GetUser(r.Context(), claims.Subject)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, u)
	case errors.Is(err, backend.ErrUserNotFound):
		writeAuthError(w, http.StatusNotFound, "user_not_found", "User from sub claim in JWT does not exist")
	default:
		s.authUnavailable(w, err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

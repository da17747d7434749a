package devserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/middleware"
	"github.com/MrEthical07/notees/posts"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxRowBody = 1 << 20

// rowFilter is the subset of the REST query language the client uses:
// equality on id and user_id, ordering by created_at and a limit.
type rowFilter struct {
	id        string
	userID    string
	hasID     bool
	hasUser   bool
	ascending bool
	limit     int
}

func parseRowFilter(q url.Values) (rowFilter, error) {
	var f rowFilter
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		v := values[0]
		switch key {
		case "select", "apikey":
		case "order":
			switch v {
			case "created_at.desc", "created_at.desc.nullslast":
			case "created_at", "created_at.asc", "created_at.asc.nullsfirst":
				f.ascending = true
			default:
				return f, fmt.Errorf("unsupported order %q", v)
			}
		case "limit":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, fmt.Errorf("invalid limit %q", v)
			}
			f.limit = n
		case "id", "user_id":
			operand, ok := strings.CutPrefix(v, "eq.")
			if !ok {
				return f, fmt.Errorf("failed to parse filter (%s)", v)
			}
			if key == "id" {
				f.id, f.hasID = operand, true
			} else {
				f.userID, f.hasUser = operand, true
			}
		default:
			return f, fmt.Errorf("column %q does not exist", key)
		}
	}
	return f, nil
}

func (f rowFilter) apply(rows []posts.Post) []posts.Post {
	out := rows[:0]
	for _, p := range rows {
		if f.hasID && p.ID != f.id {
			continue
		}
		if f.hasUser && p.UserID != f.userID {
			continue
		}
		out = append(out, p)
	}
	if f.ascending {
		slices.Reverse(out)
	}
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out
}

func wantsRepresentation(r *http.Request) bool {
	for _, pref := range strings.Split(r.Header.Get("Prefer"), ",") {
		if strings.TrimSpace(pref) == "return=representation" {
			return true
		}
	}
	return false
}

// tableRequest resolves the table, filter and caller of a REST request. It
// writes the error response and returns ok=false when the request cannot
// proceed.
func (s *Server) tableRequest(w http.ResponseWriter, r *http.Request) (f rowFilter, userID string, ok bool) {
	if table := mux.Vars(r)["table"]; table != s.cfg.Table {
		writeRestError(w, http.StatusNotFound, "PGRST205", fmt.Sprintf("Could not find the table 'public.%s' in the schema cache", table))
		return f, "", false
	}
	f, err := parseRowFilter(r.URL.Query())
	if err != nil {
		writeRestError(w, http.StatusBadRequest, "PGRST100", err.Error())
		return f, "", false
	}
	if claims, found := middleware.ClaimsFromContext(r.Context()); found {
		userID = claims.Subject
	}
	return f, userID, true
}

func (s *Server) rlsViolation(w http.ResponseWriter, status int) {
	writeRestError(w, status, "42501", fmt.Sprintf("new row violates row-level security policy for table %q", s.cfg.Table))
}

func (s *Server) restUnavailable(w http.ResponseWriter, err error) {
	s.logger.Warn("rest request failed", zap.Error(err))
	writeRestError(w, http.StatusServiceUnavailable, "PGRST000", "could not reach the database")
}

func (s *Server) selectPosts(w http.ResponseWriter, r *http.Request) {
	f, userID, ok := s.tableRequest(w, r)
	if !ok {
		return
	}
	if userID == "" || (f.hasUser && f.userID != userID) {
		writeJSON(w, http.StatusOK, []posts.Post{})
		return
	}

	rows, err := s.backend.ListPosts(r.Context(), userID)
	if err != nil {
		s.restUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.apply(rows))
}

func decodeRows(body []byte) ([]posts.Post, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var rows []posts.Post
		err := json.Unmarshal(body, &rows)
		return rows, err
	}
	var row posts.Post
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, err
	}
	return []posts.Post{row}, nil
}

func (s *Server) insertPosts(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.tableRequest(w, r)
	if !ok {
		return
	}
	if userID == "" {
		s.rlsViolation(w, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRowBody))
	if err != nil {
		writeRestError(w, http.StatusRequestEntityTooLarge, "PGRST413", "request body too large")
		return
	}
	rows, err := decodeRows(body)
	if err != nil {
		writeRestError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json")
		return
	}

	created := make([]posts.Post, 0, len(rows))
	for _, row := range rows {
		p, err := s.backend.InsertPost(r.Context(), userID, row)
		switch {
		case err == nil:
			created = append(created, p)
		case errors.Is(err, backend.ErrForbidden):
			s.rlsViolation(w, http.StatusForbidden)
			return
		case errors.Is(err, backend.ErrInvalidPost):
			writeRestError(w, http.StatusBadRequest, "23502", fmt.Sprintf("null value in column \"title\" of relation %q violates not-null constraint", s.cfg.Table))
			return
		default:
			s.restUnavailable(w, err)
			return
		}
	}

	if wantsRepresentation(r) {
		writeJSON(w, http.StatusCreated, created)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updatePosts(w http.ResponseWriter, r *http.Request) {
	f, userID, ok := s.tableRequest(w, r)
	if !ok {
		return
	}
	if !f.hasID {
		writeRestError(w, http.StatusBadRequest, "21000", "UPDATE requires a WHERE clause")
		return
	}
	var u posts.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRowBody)).Decode(&u); err != nil {
		writeRestError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json")
		return
	}

	updated := []posts.Post{}
	if userID != "" && (!f.hasUser || f.userID == userID) {
		p, err := s.backend.UpdatePost(r.Context(), userID, f.id, u)
		switch {
		case err == nil:
			updated = append(updated, p)
		case errors.Is(err, backend.ErrForbidden), errors.Is(err, backend.ErrPostNotFound):
		default:
			s.restUnavailable(w, err)
			return
		}
	}

	if wantsRepresentation(r) {
		writeJSON(w, http.StatusOK, updated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePosts(w http.ResponseWriter, r *http.Request) {
	f, userID, ok := s.tableRequest(w, r)
	if !ok {
		return
	}
	if !f.hasID {
		writeRestError(w, http.StatusBadRequest, "21000", "DELETE requires a WHERE clause")
		return
	}

	if userID != "" && (!f.hasUser || f.userID == userID) {
		err := s.backend.DeletePost(r.Context(), userID, f.id)
		if err != nil && !errors.Is(err, backend.ErrForbidden) {
			s.restUnavailable(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

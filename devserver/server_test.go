package devserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/backend/backendtest"
	"github.com/MrEthical07/notees/devserver"
	"github.com/MrEthical07/notees/posts"
)

type harness struct {
	t   *testing.T
	srv *httptest.Server
	cfg devserver.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, backendtest.Config())
}

func newHarnessWith(t *testing.T, bcfg backend.Config) *harness {
	t.Helper()
	b, _ := backendtest.NewWithConfig(t, bcfg)
	cfg := devserver.DefaultConfig()
	cfg.Backend = bcfg

	s, err := devserver.New(b, cfg)
	if err != nil {
		t.Fatalf("devserver.New: %v", err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, cfg: cfg}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.body, v); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

// do sends a request with the anon key. token, when set, is sent as the
// bearer token.
func (h *harness) do(method, path, token string, body any, headers ...string) response {
	h.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	if err != nil {
		h.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("apikey", h.cfg.AnonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := h.srv.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type authErr struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
}

func (h *harness) signUp(email string) session {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/auth/v1/signup", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
		"data":     map[string]any{"full_name": "Test User"},
	})
	if resp.status != http.StatusOK {
		h.t.Fatalf("signup: %d %s", resp.status, resp.body)
	}
	var s session
	resp.decode(h.t, &s)
	return s
}

func TestHealthAndAPIKey(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Post(h.srv.URL+"/auth/v1/signup", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("signup without key: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without apikey, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/rest/v1/posts", nil)
	req.Header.Set("apikey", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("rest with bad key: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong apikey, got %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	s := h.signUp("a@example.com")
	if s.AccessToken == "" || s.RefreshToken == "" || s.User.Email != "a@example.com" {
		t.Fatalf("unexpected signup session %+v", s)
	}
	if time.Unix(s.ExpiresAt, 0).Before(time.Now()) {
		t.Fatalf("expires_at in the past: %d", s.ExpiresAt)
	}

	var e authErr
	resp := h.do(http.MethodPost, "/auth/v1/signup", "", map[string]string{"email": "a@example.com", "password": "correct-horse"})
	resp.decode(t, &e)
	if resp.status != http.StatusUnprocessableEntity || e.ErrorCode != "user_already_exists" {
		t.Fatalf("expected duplicate rejection, got %d %s", resp.status, resp.body)
	}

	resp = h.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{"email": "a@example.com", "password": "nope-nope"})
	resp.decode(t, &e)
	if resp.status != http.StatusBadRequest || e.Msg != "Invalid login credentials" {
		t.Fatalf("expected invalid credentials, got %d %s", resp.status, resp.body)
	}

	resp = h.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{"email": "a@example.com", "password": "correct-horse"})
	if resp.status != http.StatusOK {
		t.Fatalf("sign in: %d %s", resp.status, resp.body)
	}
	var signedIn session
	resp.decode(t, &signedIn)

	resp = h.do(http.MethodGet, "/auth/v1/user", signedIn.AccessToken, nil)
	if resp.status != http.StatusOK || !strings.Contains(string(resp.body), `"full_name":"Test User"`) {
		t.Fatalf("user: %d %s", resp.status, resp.body)
	}

	resp = h.do(http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{"refresh_token": signedIn.RefreshToken})
	if resp.status != http.StatusOK {
		t.Fatalf("refresh: %d %s", resp.status, resp.body)
	}
	var rotated session
	resp.decode(t, &rotated)
	if rotated.RefreshToken == signedIn.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}

	resp = h.do(http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{"refresh_token": signedIn.RefreshToken})
	resp.decode(t, &e)
	if resp.status != http.StatusBadRequest || e.ErrorCode != "refresh_token_already_used" {
		t.Fatalf("expected reuse rejection, got %d %s", resp.status, resp.body)
	}

	resp = h.do(http.MethodPost, "/auth/v1/token?grant_type=magic", "", map[string]string{})
	if resp.status != http.StatusBadRequest {
		t.Fatalf("expected unsupported grant rejection, got %d", resp.status)
	}
}

func TestSignInThrottle(t *testing.T) {
	bcfg := backendtest.Config()
	bcfg.SignInLimit = backend.SignInLimit{Enabled: true, MaxAttempts: 2, Window: time.Minute}
	h := newHarnessWith(t, bcfg)
	h.signUp("a@example.com")

	wrong := map[string]string{"email": "a@example.com", "password": "nope-nope"}
	for i := 0; i < 2; i++ {
		if resp := h.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", wrong); resp.status != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400, got %d %s", i+1, resp.status, resp.body)
		}
	}

	var e authErr
	resp := h.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{"email": "a@example.com", "password": "correct-horse"})
	resp.decode(t, &e)
	if resp.status != http.StatusTooManyRequests || e.ErrorCode != "over_request_rate_limit" {
		t.Fatalf("expected 429 over_request_rate_limit, got %d %s", resp.status, resp.body)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	s := h.signUp("a@example.com")

	if resp := h.do(http.MethodPost, "/auth/v1/logout", "", nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", resp.status)
	}
	if resp := h.do(http.MethodPost, "/auth/v1/logout", s.AccessToken, nil); resp.status != http.StatusNoContent {
		t.Fatalf("logout: %d %s", resp.status, resp.body)
	}
	if resp := h.do(http.MethodPost, "/auth/v1/logout", s.AccessToken, nil); resp.status != http.StatusNoContent {
		t.Fatalf("second logout: %d %s", resp.status, resp.body)
	}

	var e authErr
	resp := h.do(http.MethodGet, "/auth/v1/user", s.AccessToken, nil)
	resp.decode(t, &e)
	if resp.status != http.StatusForbidden || e.ErrorCode != "session_not_found" {
		t.Fatalf("expected closed session, got %d %s", resp.status, resp.body)
	}
	if resp := h.do(http.MethodGet, "/auth/v1/user", "garbage", nil); resp.status != http.StatusForbidden {
		t.Fatalf("expected bad_jwt, got %d", resp.status)
	}
}

func TestPostsRowAccess(t *testing.T) {
	h := newHarness(t)
	a := h.signUp("a@example.com")
	b := h.signUp("b@example.com")

	resp := h.do(http.MethodPost, "/rest/v1/posts", a.AccessToken,
		posts.Post{Title: "first", Description: "hello", UserID: a.User.ID},
		"Prefer", "return=representation")
	if resp.status != http.StatusCreated {
		t.Fatalf("insert: %d %s", resp.status, resp.body)
	}
	var created []posts.Post
	resp.decode(t, &created)
	if len(created) != 1 || created[0].ID == "" || created[0].UserID != a.User.ID || created[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected insert result %+v", created)
	}
	id := created[0].ID

	time.Sleep(2 * time.Millisecond)
	if resp := h.do(http.MethodPost, "/rest/v1/posts", a.AccessToken, posts.Post{Title: "second", Description: "again"}); resp.status != http.StatusCreated {
		t.Fatalf("second insert: %d %s", resp.status, resp.body)
	}

	var rows []posts.Post
	resp = h.do(http.MethodGet, "/rest/v1/posts?select=*&user_id=eq."+a.User.ID+"&order=created_at.desc", a.AccessToken, nil)
	resp.decode(t, &rows)
	if len(rows) != 2 || rows[0].Title != "second" || rows[1].Title != "first" {
		t.Fatalf("expected newest first, got %+v", rows)
	}
	resp = h.do(http.MethodGet, "/rest/v1/posts?order=created_at.asc&limit=1", a.AccessToken, nil)
	resp.decode(t, &rows)
	if len(rows) != 1 || rows[0].Title != "first" {
		t.Fatalf("expected oldest first with limit, got %+v", rows)
	}

	for _, token := range []string{"", h.cfg.AnonKey, b.AccessToken} {
		resp = h.do(http.MethodGet, "/rest/v1/posts?user_id=eq."+a.User.ID, token, nil)
		resp.decode(t, &rows)
		if resp.status != http.StatusOK || len(rows) != 0 {
			t.Fatalf("expected a's posts to be invisible, got %d %+v", resp.status, rows)
		}
	}

	resp = h.do(http.MethodPatch, "/rest/v1/posts?id=eq."+id, b.AccessToken,
		posts.Update{Title: "hijack", Description: "x"}, "Prefer", "return=representation")
	resp.decode(t, &rows)
	if resp.status != http.StatusOK || len(rows) != 0 {
		t.Fatalf("expected foreign update to touch nothing, got %d %s", resp.status, resp.body)
	}
	if resp := h.do(http.MethodDelete, "/rest/v1/posts?id=eq."+id, b.AccessToken, nil); resp.status != http.StatusNoContent {
		t.Fatalf("foreign delete: %d", resp.status)
	}

	resp = h.do(http.MethodPost, "/rest/v1/posts", a.AccessToken, posts.Post{Title: "t", Description: "d", UserID: b.User.ID})
	if resp.status != http.StatusForbidden || !strings.Contains(string(resp.body), `"42501"`) {
		t.Fatalf("expected row policy violation, got %d %s", resp.status, resp.body)
	}
	if resp := h.do(http.MethodPost, "/rest/v1/posts", "", posts.Post{Title: "t", Description: "d"}); resp.status != http.StatusUnauthorized {
		t.Fatalf("expected anonymous insert to be rejected, got %d", resp.status)
	}
	if resp := h.do(http.MethodPost, "/rest/v1/posts", a.AccessToken, posts.Post{Description: "d"}); resp.status != http.StatusBadRequest {
		t.Fatalf("expected missing title to be rejected, got %d", resp.status)
	}

	resp = h.do(http.MethodPatch, "/rest/v1/posts?id=eq."+id, a.AccessToken,
		posts.Update{Title: "edited", Description: "hello"}, "Prefer", "return=representation")
	resp.decode(t, &rows)
	if len(rows) != 1 || rows[0].Title != "edited" {
		t.Fatalf("expected owner update, got %d %s", resp.status, resp.body)
	}
	if resp := h.do(http.MethodPatch, "/rest/v1/posts", a.AccessToken, posts.Update{Title: "x", Description: "y"}); resp.status != http.StatusBadRequest {
		t.Fatalf("expected unfiltered update to be rejected, got %d", resp.status)
	}

	if resp := h.do(http.MethodDelete, "/rest/v1/posts?id=eq."+id, a.AccessToken, nil); resp.status != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.status)
	}
	resp = h.do(http.MethodGet, "/rest/v1/posts?id=eq."+id, a.AccessToken, nil)
	resp.decode(t, &rows)
	if len(rows) != 0 {
		t.Fatalf("expected deleted post to be gone, got %+v", rows)
	}

	if resp := h.do(http.MethodGet, "/rest/v1/comments", a.AccessToken, nil); resp.status != http.StatusNotFound {
		t.Fatalf("expected unknown table 404, got %d", resp.status)
	}
	if resp := h.do(http.MethodGet, "/rest/v1/posts?title=like.x", a.AccessToken, nil); resp.status != http.StatusBadRequest {
		t.Fatalf("expected unknown column 400, got %d", resp.status)
	}
}

func TestStorageUploadAndServe(t *testing.T) {
	h := newHarness(t)
	a := h.signUp("a@example.com")
	png := []byte("\x89PNG fake image")

	resp := h.do(http.MethodPost, "/storage/v1/object/post-media/uploads/one.png", a.AccessToken, png,
		"Content-Type", "image/png", "x-upsert", "false")
	if resp.status != http.StatusOK || !strings.Contains(string(resp.body), "post-media/uploads/one.png") {
		t.Fatalf("upload: %d %s", resp.status, resp.body)
	}

	resp = h.do(http.MethodPost, "/storage/v1/object/post-media/uploads/one.png", a.AccessToken, png,
		"Content-Type", "image/png")
	if resp.status != http.StatusConflict {
		t.Fatalf("expected duplicate upload 409, got %d %s", resp.status, resp.body)
	}
	resp = h.do(http.MethodPost, "/storage/v1/object/post-media/uploads/one.png", a.AccessToken, []byte("v2"),
		"Content-Type", "image/png", "x-upsert", "true")
	if resp.status != http.StatusOK {
		t.Fatalf("expected upsert to replace, got %d %s", resp.status, resp.body)
	}

	if resp := h.do(http.MethodPost, "/storage/v1/object/post-media/uploads/anon.png", "", png); resp.status != http.StatusForbidden {
		t.Fatalf("expected anonymous upload 403, got %d", resp.status)
	}
	if resp := h.do(http.MethodPost, "/storage/v1/object/avatars/x.png", a.AccessToken, png); resp.status != http.StatusNotFound {
		t.Fatalf("expected unknown bucket 404, got %d", resp.status)
	}
	big := make([]byte, backendtest.Config().MaxObjectBytes+1)
	if resp := h.do(http.MethodPost, "/storage/v1/object/post-media/uploads/big.mp4", a.AccessToken, big, "Content-Type", "video/mp4"); resp.status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.status)
	}

	get, err := http.Get(h.srv.URL + "/storage/v1/object/public/post-media/uploads/one.png")
	if err != nil {
		t.Fatalf("public get: %v", err)
	}
	body, _ := io.ReadAll(get.Body)
	get.Body.Close()
	if get.StatusCode != http.StatusOK || get.Header.Get("Content-Type") != "image/png" || string(body) != "v2" {
		t.Fatalf("unexpected public object %d %q %q", get.StatusCode, get.Header.Get("Content-Type"), body)
	}

	missing, err := http.Get(h.srv.URL + "/storage/v1/object/public/post-media/uploads/missing.png")
	if err != nil {
		t.Fatalf("public get missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.signUp("a@example.com")

	resp, err := http.Get(h.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "notees_signup_success_total 1") {
		t.Fatalf("expected sign-up counter, got:\n%s", body)
	}
	if !strings.Contains(string(body), "notees_request_latency_seconds_count") {
		t.Fatalf("expected latency histogram, got:\n%s", body)
	}
}

package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/notees/internal/events"
	"github.com/MrEthical07/notees/session"
	"go.uber.org/zap"
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStorage sets where the session is persisted. The default is an
// in-memory store.
func WithStorage(s Storage) Option {
	return func(c *Client) {
		if s != nil {
			c.storage = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to one project. Its Auth, Table and Bucket share the HTTP
// client and the current session.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	storage Storage
	logger  *zap.Logger

	auth   *Auth
	table  *Table
	bucket *Bucket
}

// New validates cfg and builds a client. With cfg.AutoRefresh the refresh
// loop is started; call Close to stop it.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := &Client{
		cfg:     cfg,
		base:    base,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		storage: NewMemoryStorage(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.auth = &Auth{
		c:   c,
		bus: events.New[session.Change](events.Config{Logger: c.logger}),
	}
	c.table = &Table{c: c, name: cfg.Table}
	c.bucket = &Bucket{c: c, name: cfg.Bucket}

	if cfg.AutoRefresh {
		c.auth.StartAutoRefresh(context.Background())
	}
	return c, nil
}

func (c *Client) Auth() *Auth {
	return c.auth
}

// Posts returns the posts table as a posts.Repository.
func (c *Client) Posts() *Table {
	return c.table
}

// Media returns the media bucket as a posts.MediaStore.
func (c *Client) Media() *Bucket {
	return c.bucket
}

func (c *Client) Config() Config {
	return c.cfg
}

// Close stops background refresh and change delivery.
func (c *Client) Close() {
	c.auth.Close()
}

// endpoint resolves path, unescaped, against the project URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = u.Path + path
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	method string
	path   string
	query  url.Values
	body   io.Reader
	json   any
	header http.Header

	// token overrides the session access token.
	token string
	// anon sends the anon key even when signed in.
	anon bool
}

// send performs r and returns the response for a success status. Non-2xx
// responses are returned as *Error. The caller closes the body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	body := r.body
	if r.json != nil {
		data, err := json.Marshal(r.json)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.cfg.AnonKey)

	token := r.token
	if token == "" && !r.anon {
		token = c.auth.AccessToken()
	}
	if token == "" {
		token = c.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}
	return resp, nil
}

// sendJSON performs r and decodes a JSON success body into out. A nil out
// discards the body.
func (c *Client) sendJSON(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, r.method, r.path, err)
	}
	return nil
}

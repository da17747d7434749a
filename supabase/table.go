package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MrEthical07/notees/posts"
)

// Table is a posts table reached through the REST API. Row visibility is
// decided by the server's row-level policies.
type Table struct {
	c    *Client
	name string
}

var _ posts.Repository = (*Table)(nil)

var representation = http.Header{"Prefer": {"return=representation"}}

// newRow is the insert body. id and created_at are assigned by the server.
type newRow struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MediaURL    string          `json:"media_url,omitempty"`
	MediaType   posts.MediaType `json:"media_type,omitempty"`
	UserID      string          `json:"user_id"`
}

func (t *Table) path() string {
	return "/rest/v1/" + t.name
}

func (t *Table) List(ctx context.Context, userID string) ([]posts.Post, error) {
	var rows []posts.Post
	err := t.c.sendJSON(ctx, request{
		method: http.MethodGet,
		path:   t.path(),
		query: url.Values{
			"select":  {"*"},
			"user_id": {"eq." + userID},
			"order":   {"created_at.desc"},
		},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []posts.Post{}
	}
	return rows, nil
}

func (t *Table) Insert(ctx context.Context, p posts.Post) (posts.Post, error) {
	var rows []posts.Post
	err := t.c.sendJSON(ctx, request{
		method: http.MethodPost,
		path:   t.path(),
		json: newRow{
			Title:       p.Title,
			Description: p.Description,
			MediaURL:    p.MediaURL,
			MediaType:   p.MediaType,
			UserID:      p.UserID,
		},
		header: representation,
	}, &rows)
	if err != nil {
		return posts.Post{}, err
	}
	if len(rows) != 1 {
		return posts.Post{}, ErrUnexpectedResponse
	}
	return rows[0], nil
}

// Update returns posts.ErrNotFound when no visible row has id.
func (t *Table) Update(ctx context.Context, id string, u posts.Update) (posts.Post, error) {
	var rows []posts.Post
	err := t.c.sendJSON(ctx, request{
		method: http.MethodPatch,
		path:   t.path(),
		query:  url.Values{"id": {"eq." + id}},
		json:   u,
		header: representation,
	}, &rows)
	if err != nil {
		return posts.Post{}, err
	}
	if len(rows) == 0 {
		return posts.Post{}, posts.ErrNotFound
	}
	return rows[0], nil
}

// Delete succeeds when no visible row has id.
func (t *Table) Delete(ctx context.Context, id string) error {
	return t.c.sendJSON(ctx, request{
		method: http.MethodDelete,
		path:   t.path(),
		query:  url.Values{"id": {"eq." + id}},
	}, nil)
}

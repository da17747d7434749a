package posts

import (
	"context"
	"io"
	"time"
)

// MediaType classifies an attachment.
type MediaType string

const (
	MediaNone  MediaType = ""
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Post is one row of the posts table.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MediaURL    string    `json:"media_url,omitempty"`
	MediaType   MediaType `json:"media_type,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasMedia reports whether the post carries an attachment.
func (p Post) HasMedia() bool {
	return p.MediaURL != ""
}

// Update is the set of columns an edit writes. Media fields left empty are
// not sent, so existing media stays in place.
type Update struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MediaURL    string    `json:"media_url,omitempty"`
	MediaType   MediaType `json:"media_type,omitempty"`
}

// Media is an attachment waiting to be uploaded. When Type is empty it is
// derived from Name.
type Media struct {
	Name string
	Type MediaType
	Data io.Reader
}

// Draft is the input of a create.
type Draft struct {
	Title       string
	Description string
	Media       *Media
}

// Repository persists posts.
type Repository interface {
	// List returns the user's posts, newest first.
	List(ctx context.Context, userID string) ([]Post, error)
	Insert(ctx context.Context, p Post) (Post, error)
	Update(ctx context.Context, id string, u Update) (Post, error)
	Delete(ctx context.Context, id string) error
}

// MediaStore holds uploaded attachments.
type MediaStore interface {
	// Upload stores data at path and fails if the path already exists.
	Upload(ctx context.Context, path, contentType string, data io.Reader) error
	PublicURL(path string) string
}

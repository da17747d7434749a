package supabase

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/notees/posts"
)

// Bucket is a public storage bucket. Uploads never overwrite.
type Bucket struct {
	c    *Client
	name string
}

var _ posts.MediaStore = (*Bucket)(nil)

func (b *Bucket) Upload(ctx context.Context, objectPath, contentType string, data io.Reader) error {
	return b.c.sendJSON(ctx, request{
		method: http.MethodPost,
		path:   "/storage/v1/object/" + b.name + "/" + strings.TrimPrefix(objectPath, "/"),
		body:   data,
		header: http.Header{
			"Content-Type":  {contentType},
			"x-upsert":      {"false"},
			"Cache-Control": {"max-age=3600"},
		},
	}, nil)
}

// PublicURL returns the unauthenticated download URL of objectPath.
func (b *Bucket) PublicURL(objectPath string) string {
	return b.c.endpoint("/storage/v1/object/public/"+b.name+"/"+strings.TrimPrefix(objectPath, "/"), nil)
}

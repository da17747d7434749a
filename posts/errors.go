package posts

import "errors"

var (
	// ErrMissingFields is returned before any I/O when a draft lacks a title or description.
	ErrMissingFields = errors.New("please fill in title and description")
	ErrNotSignedIn   = errors.New("posts: no signed-in user")
	ErrNoMediaStore  = errors.New("posts: media storage not configured")
	ErrNotFound      = errors.New("posts: post not found")
)

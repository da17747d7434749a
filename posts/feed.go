package posts

import (
	"context"
	"sync"
)

// Feed is the signed-in user's post list as the home screen shows it. Writes
// go through the Service and are then mirrored locally, so the list stays
// consistent without a reload.
type Feed struct {
	svc *Service

	mu     sync.Mutex
	userID string
	gen    uint64
	posts  []Post
}

func NewFeed(svc *Service) *Feed {
	return &Feed{svc: svc}
}

// Reload replaces the list with the user's posts. An empty userID clears it.
// A reload that finishes after a newer Reload or Clear started is discarded.
func (f *Feed) Reload(ctx context.Context, userID string) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.userID = userID
	if userID == "" {
		f.posts = nil
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	list, err := f.svc.List(ctx, userID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen == gen {
		f.posts = list
	}
	return nil
}

// Clear empties the list and forgets the user.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.userID = ""
	f.posts = nil
}

// UserID returns the user the list belongs to.
func (f *Feed) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

// Posts returns a copy of the list, newest first.
func (f *Feed) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Post, len(f.posts))
	copy(out, f.posts)
	return out
}

// Get returns the post with id.
func (f *Feed) Get(id string) (Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// Create inserts a post for the feed's user and prepends it. The write is
// not mirrored when the feed switched users meanwhile.
func (f *Feed) Create(ctx context.Context, d Draft) (Post, error) {
	uid := f.UserID()
	p, err := f.svc.Create(ctx, uid, d)
	if err != nil {
		return Post{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userID != uid {
		return p, nil
	}
	for _, existing := range f.posts {
		if existing.ID == p.ID {
			return p, nil
		}
	}
	f.posts = append([]Post{p}, f.posts...)
	return p, nil
}

// Update edits p and replaces the matching entry.
func (f *Feed) Update(ctx context.Context, p Post, media *Media) (Post, error) {
	uid := f.UserID()
	updated, err := f.svc.Update(ctx, p, media)
	if err != nil {
		return Post{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userID != uid {
		return updated, nil
	}
	for i := range f.posts {
		if f.posts[i].ID == updated.ID {
			f.posts[i] = updated
		}
	}
	return updated, nil
}

// Delete removes the post remotely, then locally.
func (f *Feed) Delete(ctx context.Context, id string) error {
	uid := f.UserID()
	if err := f.svc.Delete(ctx, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userID != uid {
		return nil
	}
	kept := f.posts[:0:0]
	for _, p := range f.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	f.posts = kept
	return nil
}

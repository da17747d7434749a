package posts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a [Service].
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDFunc overrides how upload object names are generated.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service runs the create, edit, delete and upload flows. Each flow is a
// plain sequence of backend calls; a failure stops the sequence and is
// returned unchanged.
type Service struct {
	repo   Repository
	media  MediaStore
	logger *zap.Logger
	newID  func() string
}

// NewService returns a Service over repo. media may be nil, in which case
// drafts with attachments fail with ErrNoMediaStore.
func NewService(repo Repository, media MediaStore, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		media:  media,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, userID string) ([]Post, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	return s.repo.List(ctx, userID)
}

// Create validates d, uploads its media when present, then inserts the row.
func (s *Service) Create(ctx context.Context, userID string, d Draft) (Post, error) {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Description) == "" {
		return Post{}, ErrMissingFields
	}
	if userID == "" {
		return Post{}, ErrNotSignedIn
	}

	p := Post{
		Title:       d.Title,
		Description: d.Description,
		UserID:      userID,
	}
	if d.Media != nil {
		url, t, err := s.UploadMedia(ctx, *d.Media)
		if err != nil {
			return Post{}, err
		}
		p.MediaURL, p.MediaType = url, t
	}

	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	s.logger.Debug("posts: created", zap.String("id", created.ID), zap.Bool("media", created.HasMedia()))
	return created, nil
}

// Update writes p's title and description. The existing media is kept
// unless media is non-nil, in which case it is uploaded and replaces it.
func (s *Service) Update(ctx context.Context, p Post, media *Media) (Post, error) {
	if p.ID == "" {
		return Post{}, ErrNotFound
	}

	u := Update{
		Title:       p.Title,
		Description: p.Description,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
	}
	if media != nil {
		url, t, err := s.UploadMedia(ctx, *media)
		if err != nil {
			return Post{}, err
		}
		u.MediaURL, u.MediaType = url, t
	}

	updated, err := s.repo.Update(ctx, p.ID, u)
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// UploadMedia stores m under a fresh object name and returns its public URL
// together with the resolved media type.
func (s *Service) UploadMedia(ctx context.Context, m Media) (string, MediaType, error) {
	if s.media == nil {
		return "", MediaNone, ErrNoMediaStore
	}

	t := m.Type
	if t == MediaNone {
		t = MediaTypeFor(m.Name)
	}
	objectPath, ext := ObjectPath(s.newID(), m.Name, t)

	if err := s.media.Upload(ctx, objectPath, ContentTypeFor(t, ext), m.Data); err != nil {
		return "", MediaNone, fmt.Errorf("upload media: %w", err)
	}
	s.logger.Debug("posts: uploaded media", zap.String("path", objectPath), zap.String("type", string(t)))
	return s.media.PublicURL(objectPath), t, nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/MrEthical07/notees/posts"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ListPosts returns userID's posts, newest first.
func (b *Backend) ListPosts(ctx context.Context, userID string) ([]posts.Post, error) {
	ids, err := b.rdb.ZRevRange(ctx, b.key("posts", userID), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []posts.Post{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.key("post", id)
	}
	vals, err := b.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]posts.Post, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p posts.Post
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// InsertPost stores p as a new post owned by userID. The id and creation
// time are assigned here; a foreign user_id is rejected.
func (b *Backend) InsertPost(ctx context.Context, userID string, p posts.Post) (posts.Post, error) {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Description) == "" {
		return posts.Post{}, ErrInvalidPost
	}
	if p.UserID != "" && p.UserID != userID {
		b.metrics.Inc(MetricPostForbidden)
		return posts.Post{}, ErrForbidden
	}

	p.ID = uuid.NewString()
	p.UserID = userID
	p.CreatedAt = b.now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return posts.Post{}, err
	}

	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key("post", p.ID), data, 0)
		pipe.ZAdd(ctx, b.key("posts", userID), redis.Z{Score: float64(p.CreatedAt.UnixMicro()), Member: p.ID})
		return nil
	})
	if err != nil {
		return posts.Post{}, unavailable(err)
	}
	b.metrics.Inc(MetricPostCreated)
	return p, nil
}

// UpdatePost applies u to the post with id. Empty media fields keep the
// stored media.
func (b *Backend) UpdatePost(ctx context.Context, userID, id string, u posts.Update) (posts.Post, error) {
	key := b.key("post", id)
	var updated posts.Post

	err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		p, err := getPost(ctx, tx, key)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			b.metrics.Inc(MetricPostForbidden)
			return ErrForbidden
		}

		p.Title, p.Description = u.Title, u.Description
		if u.MediaURL != "" {
			p.MediaURL, p.MediaType = u.MediaURL, u.MediaType
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		updated = *p
		return err
	}, key)
	if err != nil {
		return posts.Post{}, postErr(err)
	}
	b.metrics.Inc(MetricPostUpdated)
	return updated, nil
}

// DeletePost removes the post with id. Deleting a missing post succeeds.
func (b *Backend) DeletePost(ctx context.Context, userID, id string) error {
	key := b.key("post", id)

	err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		p, err := getPost(ctx, tx, key)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			b.metrics.Inc(MetricPostForbidden)
			return ErrForbidden
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, b.key("posts", userID), id)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrPostNotFound) {
		return nil
	}
	if err != nil {
		return postErr(err)
	}
	b.metrics.Inc(MetricPostDeleted)
	return nil
}

func getPost(ctx context.Context, tx *redis.Tx, key string) (*posts.Post, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	var p posts.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func postErr(err error) error {
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrPostNotFound) {
		return err
	}
	return unavailable(err)
}

package backend

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Object is a stored media file.
type Object struct {
	ContentType string
	CreatedAt   time.Time
	Data        []byte
}

func cleanObjectPath(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, "/:") {
		return "", ErrInvalidObjectPath
	}
	if objectPath == "" || strings.HasPrefix(objectPath, "/") || strings.HasSuffix(objectPath, "/") {
		return "", ErrInvalidObjectPath
	}
	if cleaned := path.Clean(objectPath); cleaned != objectPath || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidObjectPath
	}
	return bucket + "/" + objectPath, nil
}

// PutObject stores data at bucket/objectPath. Existing objects are never
// overwritten.
func (b *Backend) PutObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error {
	return b.putObject(ctx, bucket, objectPath, contentType, data, false)
}

// ReplaceObject stores data at bucket/objectPath, overwriting any existing
// object.
func (b *Backend) ReplaceObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error {
	return b.putObject(ctx, bucket, objectPath, contentType, data, true)
}

func (b *Backend) putObject(ctx context.Context, bucket, objectPath, contentType string, data []byte, upsert bool) error {
	name, err := cleanObjectPath(bucket, objectPath)
	if err != nil {
		b.metrics.Inc(MetricMediaRejected)
		return err
	}
	if int64(len(data)) > b.cfg.MaxObjectBytes {
		b.metrics.Inc(MetricMediaRejected)
		return ErrObjectTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := encodeObject(contentType, b.now(), data)
	if err != nil {
		return err
	}
	if upsert {
		if err := b.rdb.Set(ctx, b.key("obj", name), rec, 0).Err(); err != nil {
			return unavailable(err)
		}
		b.metrics.Inc(MetricMediaUploaded)
		return nil
	}

	created, err := b.rdb.SetNX(ctx, b.key("obj", name), rec, 0).Result()
	if err != nil {
		return unavailable(err)
	}
	if !created {
		b.metrics.Inc(MetricMediaRejected)
		return ErrObjectExists
	}
	b.metrics.Inc(MetricMediaUploaded)
	return nil
}

func (b *Backend) GetObject(ctx context.Context, bucket, objectPath string) (*Object, error) {
	name, err := cleanObjectPath(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	raw, err := b.rdb.Get(ctx, b.key("obj", name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrObjectNotFound
		}
		return nil, unavailable(err)
	}
	return decodeObject(raw)
}

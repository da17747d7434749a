package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/notees/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// User is the public profile of an account.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type account struct {
	User
	PasswordHash string `json:"password_hash"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp creates an account and immediately opens a session for it.
func (b *Backend) SignUp(ctx context.Context, email, pw string, metadata map[string]any) (*TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := b.hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return nil, errors.Join(ErrWeakPassword, err)
		}
		return nil, err
	}

	acct := account{
		User: User{
			ID:        uuid.NewString(),
			Email:     email,
			Metadata:  metadata,
			CreatedAt: b.now().UTC(),
		},
		PasswordHash: hash,
	}
	data, err := json.Marshal(acct)
	if err != nil {
		return nil, err
	}

	claimed, err := b.rdb.SetNX(ctx, b.key("email", email), acct.ID, 0).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if !claimed {
		b.metrics.Inc(MetricSignUpDuplicate)
		return nil, ErrUserExists
	}
	if err := b.rdb.Set(ctx, b.key("user", acct.ID), data, 0).Err(); err != nil {
		// The account record was never written; release the email claim.
		_ = b.rdb.Del(context.WithoutCancel(ctx), b.key("email", email)).Err()
		return nil, unavailable(err)
	}

	b.metrics.Inc(MetricSignUpSuccess)
	b.logger.Info("backend: account created", zap.String("user_id", acct.ID))

	return b.openSession(ctx, &acct.User)
}

// GetUser returns the profile for id.
func (b *Backend) GetUser(ctx context.Context, id string) (*User, error) {
	acct, err := b.loadAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &acct.User, nil
}

func (b *Backend) loadAccount(ctx context.Context, id string) (*account, error) {
	data, err := b.rdb.Get(ctx, b.key("user", id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	var acct account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (b *Backend) lookupEmail(ctx context.Context, email string) (string, error) {
	id, err := b.rdb.Get(ctx, b.key("email", email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrUserNotFound
		}
		return "", unavailable(err)
	}
	return id, nil
}

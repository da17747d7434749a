package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/notees/internal"
	"github.com/MrEthical07/notees/internal/rate"
	"github.com/MrEthical07/notees/internal/tokens"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TokenPair is the result of every operation that opens or renews a session.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         User      `json:"user"`
	SessionID    string    `json:"-"`
	Expiry       time.Time `json:"-"`
}

const (
	rotateNotFound int64 = 0
	rotateExpired  int64 = 1
	rotateMismatch int64 = 2
	rotateRotated  int64 = 3
	rotateCorrupt  int64 = 4
)

// KEYS[1] session key. ARGV: session id, user set prefix, presented hash,
// next hash, refresh TTL in ms.
const rotateRefreshScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end

if string.byte(data, 1) ~= 1 then
  return {4}
end
local user_len = string.byte(data, 2)
if not user_len or #data < 2 + user_len + 1 then
  return {4}
end
local user_id = string.sub(data, 3, 2 + user_len)
local idx = 3 + user_len
local email_len = string.byte(data, idx)
if not email_len then
  return {4}
end
idx = idx + 1 + email_len
if #data < idx + 31 then
  return {4}
end

local user_key = ARGV[2] .. user_id
if string.sub(data, idx, idx + 31) ~= ARGV[3] then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[1])
  return {2}
end

local ttl = redis.call("PTTL", KEYS[1])
if ttl == 0 or ttl == -2 then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", user_key, ARGV[1])
  return {1}
end

local updated = string.sub(data, 1, idx - 1) .. ARGV[4] .. string.sub(data, idx + 32)
redis.call("SET", KEYS[1], updated, "PX", ARGV[5])
redis.call("PEXPIRE", user_key, ARGV[5])
return {3, updated}
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// SignInWithPassword checks the credentials and opens a new session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
// With SignInLimit enabled, repeated failures for one email or client
// address return ErrRateLimited until the window ends.
func (b *Backend) SignInWithPassword(ctx context.Context, email, pw string) (*TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		b.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	ip := clientIPFromContext(ctx)
	if err := b.limiter.Check(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			b.metrics.Inc(MetricLoginThrottled)
			return nil, ErrRateLimited
		}
		return nil, unavailable(err)
	}

	acct, err := b.verifyPassword(ctx, email, pw)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			b.metrics.Inc(MetricLoginFailure)
			if lerr := b.limiter.Fail(ctx, email, ip); lerr != nil && !errors.Is(lerr, rate.ErrRateLimited) {
				b.logger.Warn("backend: record sign in failure", zap.Error(lerr))
			}
		}
		return nil, err
	}

	pair, err := b.openSession(ctx, &acct.User)
	if err != nil {
		return nil, err
	}
	if err := b.limiter.Reset(ctx, email); err != nil {
		b.logger.Warn("backend: reset sign in attempts", zap.Error(err))
	}
	b.metrics.Inc(MetricLoginSuccess)
	return pair, nil
}

func (b *Backend) verifyPassword(ctx context.Context, email, pw string) (*account, error) {
	id, err := b.lookupEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	acct, err := b.loadAccount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := b.hasher.Verify(pw, acct.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

func (b *Backend) openSession(ctx context.Context, user *User) (*TokenPair, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, err
	}

	now := b.now()
	rec := &sessionRecord{
		UserID:      user.ID,
		Email:       user.Email,
		RefreshHash: secret.Hash(),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(b.cfg.RefreshTTL).Unix(),
	}
	data, err := encodeSession(rec)
	if err != nil {
		return nil, err
	}

	sessionKey := b.key("sess", sid.String())
	userKey := b.key("usess", user.ID)
	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, b.cfg.RefreshTTL)
		pipe.SAdd(ctx, userKey, sid.String())
		pipe.Expire(ctx, userKey, b.cfg.RefreshTTL)
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}

	return b.issue(user, sid, secret)
}

func (b *Backend) issue(user *User, sid internal.SessionID, secret internal.RefreshSecret) (*TokenPair, error) {
	access, exp, err := b.tokens.Issue(user.ID, user.Email, sid.String())
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int64(b.tokens.TTL() / time.Second),
		ExpiresAt:    exp.Unix(),
		RefreshToken: internal.EncodeRefreshToken(sid, secret),
		User:         *user,
		SessionID:    sid.String(),
		Expiry:       exp,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// invalidated; presenting it again revokes the whole session.
func (b *Backend) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sid, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		b.metrics.Inc(MetricRefreshFailure)
		return nil, ErrInvalidRefreshToken
	}
	next, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, err
	}

	presented := secret.Hash()
	nextHash := next.Hash()
	res, err := rotateRefreshLua.Run(ctx, b.rdb,
		[]string{b.key("sess", sid.String())},
		sid.String(),
		b.key("usess", ""),
		string(presented[:]),
		string(nextHash[:]),
		b.cfg.RefreshTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(res) == 0 {
		return nil, ErrSessionCorrupt
	}

	status, _ := res[0].(int64)
	switch status {
	case rotateRotated:
	case rotateNotFound, rotateExpired:
		b.metrics.Inc(MetricRefreshFailure)
		return nil, ErrInvalidRefreshToken
	case rotateMismatch:
		b.metrics.Inc(MetricRefreshReuseDetected)
		b.logger.Warn("backend: refresh token reuse, session revoked", zap.String("session_id", sid.String()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, ErrRefreshReused)
	default:
		b.metrics.Inc(MetricRefreshFailure)
		return nil, ErrSessionCorrupt
	}

	if len(res) < 2 {
		return nil, ErrSessionCorrupt
	}
	raw, _ := res[1].(string)
	rec, err := decodeSession([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	user, err := b.GetUser(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := b.issue(user, sid, next)
	if err != nil {
		return nil, err
	}
	b.metrics.Inc(MetricRefreshSuccess)
	return pair, nil
}

// VerifyAccessToken checks the signature and expiry of accessToken without
// consulting Redis. A token stays valid here after its session is closed.
func (b *Backend) VerifyAccessToken(_ context.Context, accessToken string) (*tokens.Claims, error) {
	claims, err := b.tokens.Parse(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// Authenticate verifies an access token and that its session is still open.
func (b *Backend) Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	claims, err := b.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	n, err := b.rdb.Exists(ctx, b.key("sess", claims.SessionID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrSessionNotFound)
	}
	return claims, nil
}

// SignOut closes the session named in claims. Closing an already closed
// session succeeds.
func (b *Backend) SignOut(ctx context.Context, claims *tokens.Claims) error {
	if claims == nil {
		return ErrUnauthorized
	}
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key("sess", claims.SessionID))
		pipe.SRem(ctx, b.key("usess", claims.Subject), claims.SessionID)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	b.metrics.Inc(MetricLogout)
	return nil
}

// ActiveSessions returns the number of open sessions for userID.
func (b *Backend) ActiveSessions(ctx context.Context, userID string) (int, error) {
	n, err := b.rdb.SCard(ctx, b.key("usess", userID)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// SessionID identifies one backend session. It is embedded in both the
// access token (sid claim) and the refresh token.
type SessionID [16]byte

// RefreshSecret is the random half of a refresh token.
type RefreshSecret [32]byte

const refreshTokenSize = len(SessionID{}) + len(RefreshSecret{})

var (
	ErrInvalidSessionID    = errors.New("invalid session id")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

func NewSessionID() (SessionID, error) {
	var sid SessionID
	if _, err := rand.Read(sid[:]); err != nil {
		return sid, fmt.Errorf("read session id: %w", err)
	}
	return sid, nil
}

func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(s string) (SessionID, error) {
	var sid SessionID
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != len(sid) {
		return sid, ErrInvalidSessionID
	}
	copy(sid[:], raw)
	return sid, nil
}

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("read refresh secret: %w", err)
	}
	return secret, nil
}

// Hash is what the backend stores; the secret itself only ever lives in the
// token handed to the client.
func (s RefreshSecret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// EncodeRefreshToken returns base64url(sid || secret).
func EncodeRefreshToken(sid SessionID, secret RefreshSecret) string {
	var raw [refreshTokenSize]byte
	copy(raw[:len(sid)], sid[:])
	copy(raw[len(sid):], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func DecodeRefreshToken(token string) (SessionID, RefreshSecret, error) {
	var (
		sid    SessionID
		secret RefreshSecret
	)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshTokenSize {
		return sid, secret, ErrInvalidRefreshToken
	}
	copy(sid[:], raw[:len(sid)])
	copy(secret[:], raw[len(sid):])
	return sid, secret, nil
}

package tts

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer     = "808-voice"
	defaultTokenTTL = 5 * time.Minute
)

// Credential produces the bearer value sent to the synthesis backend.
type Credential interface {
	Bearer(userID int64) (string, error)
}

// StaticKey sends the same shared API key on every call.
type StaticKey string

func (k StaticKey) Bearer(int64) (string, error) {
	if k == "" {
		return "", fmt.Errorf("tts api key is not configured")
	}
	return string(k), nil
}

// SignedToken mints a short-lived HS256 token naming the requesting user.
type SignedToken struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (s SignedToken) Bearer(userID int64) (string, error) {
	if len(s.Secret) == 0 {
		return "", fmt.Errorf("tts jwt secret is not configured")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	issued := now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign tts token: %w", err)
	}
	return signed, nil
}

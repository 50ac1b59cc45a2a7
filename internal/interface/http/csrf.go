package http

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/yanqian/ask-console/pkg/errors"
)

const (
	csrfFormField = "csrf_token"
	csrfHeader    = "X-CSRFToken"
	csrfKeyInfo   = "ask-console csrf v1"
	csrfIssuer    = "ask-console"
)

// CSRFTokens issues and verifies anti-forgery tokens bound to a session id.
type CSRFTokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type csrfClaims struct {
	jwt.RegisteredClaims
}

// NewCSRFTokens derives the signing key from the application secret.
func NewCSRFTokens(secret string, ttl time.Duration) (*CSRFTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("csrf secret must be at least 16 bytes")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(csrfKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CSRFTokens{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for sessionID.
func (t *CSRFTokens) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := csrfClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    csrfIssuer,
			Subject:   sessionID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", apperrors.Wrap("csrf_error", "failed to sign csrf token", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and session binding of token.
func (t *CSRFTokens) Verify(token, sessionID string) error {
	if token == "" {
		return apperrors.Wrap("invalid_csrf", "missing csrf token", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &csrfClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", tok.Method.Alg())
		}
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(csrfIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return apperrors.Wrap("invalid_csrf", "csrf token validation failed", err)
	}
	claims, ok := parsed.Claims.(*csrfClaims)
	if !ok || !parsed.Valid {
		return apperrors.Wrap("invalid_csrf", "csrf token invalid", nil)
	}
	if claims.Subject != sessionID {
		return apperrors.Wrap("invalid_csrf", "csrf token belongs to another session", nil)
	}
	return nil
}

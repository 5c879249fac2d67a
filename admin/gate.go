// Package admin guards the moderation surface with one shared password and signed session
// tokens.
package admin

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "dz_admin"
	subject    = "admin"
)

var (
	ErrDisabled      = errors.New("admin key not configured")
	ErrWrongPassword = errors.New("wrong admin password")
	ErrNoSession     = errors.New("no valid admin session")
)

// Gate issues and checks admin sessions.
type Gate struct {
	key     string
	secret  []byte
	ttl     time.Duration
	revoker Revoker

	Now func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Admin bool `json:"adm"`
}

// NewGate builds a gate for key. When secret is empty the signing key is derived from key, so
// changing the password logs every session out.
func NewGate(key, secret string, ttl time.Duration, revoker Revoker) *Gate {
	if secret == "" {
		sum := sha256.Sum256([]byte("duzagac-session:" + key))
		secret = string(sum[:])
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Gate{key: key, secret: []byte(secret), ttl: ttl, revoker: revoker, Now: time.Now}
}

// Enabled is false when no admin key was configured.
func (g *Gate) Enabled() bool {
	return g.key != ""
}

// Login checks password and returns a signed session token with its expiry.
func (g *Gate) Login(password string) (string, time.Time, error) {
	if !g.Enabled() {
		return "", time.Time{}, ErrDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.key)) != 1 {
		return "", time.Time{}, ErrWrongPassword
	}
	now := g.Now()
	exp := now.Add(g.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Admin: true,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, exp, nil
}

func (g *Gate) parse(token string) (*sessionClaims, error) {
	if !g.Enabled() || token == "" {
		return nil, ErrNoSession
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.Now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(subject),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if !claims.Admin || claims.ID == "" {
		return nil, ErrNoSession
	}
	return &claims, nil
}

// Verify returns nil only for a well-signed, unexpired, unrevoked admin token.
func (g *Gate) Verify(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return err
	}
	revoked, err := g.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return ErrNoSession
	}
	return nil
}

// Logout revokes token for the rest of its lifetime. Invalid tokens are ignored.
func (g *Gate) Logout(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return nil
	}
	return g.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time.Sub(g.Now()))
}

// Cookie carries token until exp.
func Cookie(token string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie removes the session cookie from the browser.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFrom returns the session token carried by r, or "".
func TokenFrom(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

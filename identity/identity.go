// Package identity hands every browser an anonymous device token kept in the dz_device cookie.
package identity

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName = "dz_device"
	CookieAge  = 5 * 365 * 24 * time.Hour
)

// Resolve returns the cookie value unchanged when it is set, otherwise a fresh 32-char hex token.
func Resolve(cookieValue string) string {
	if cookieValue != "" {
		return cookieValue
	}
	return NewDeviceID()
}

// NewDeviceID returns 128 random bits as lowercase hex.
func NewDeviceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

type ctxKey struct{}

// FromContext returns the device id stored by Middleware, or "" outside it.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithDeviceID stores id in ctx.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Middleware resolves the device id for each request and, when the request carried no cookie,
// sets one on the response before the next handler runs.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var current string
		if c, err := r.Cookie(CookieName); err == nil {
			current = c.Value
		}
		id := Resolve(current)
		if current == "" {
			http.SetCookie(w, Cookie(id))
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

// Cookie builds the persistent device cookie for id.
func Cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(CookieAge / time.Second),
		Expires:  time.Now().Add(CookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

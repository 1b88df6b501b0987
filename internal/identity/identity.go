// Package identity resolves a bearer token into a verified Identity. It
// adapts the teacher's session-cache shape — an expiring map guarded by an
// RWMutex — to cache parsed JWT claims instead of opaque session tokens, so
// a hot endpoint doesn't re-verify the same token's signature on every
// request.
package identity

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

// cacheTTL bounds how long a verified identity is trusted without
// re-checking the token, independent of the token's own expiry.
const cacheTTL = 5 * time.Minute

// claims is the JWT payload this service expects upstream identity
// providers to issue.
type claims struct {
	Emails      []string `json:"emails"`
	DisplayName string   `json:"name"`
	jwt.RegisteredClaims
}

// Resolver verifies bearer tokens with a shared secret and caches the
// result for cacheTTL.
type Resolver struct {
	secret []byte

	mu    sync.RWMutex
	cache map[string]cachedIdentity
}

type cachedIdentity struct {
	identity  models.Identity
	expiresAt time.Time
}

func NewResolver(secret string) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		cache:  make(map[string]cachedIdentity),
	}
}

// Resolve verifies token and returns the Identity it attests to. An empty
// token is not an error here — callers decide whether anonymous access is
// allowed (spec §6's "optional" auth column) by checking for
// models.Identity{}'s zero value.
func (r *Resolver) Resolve(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, nil
	}

	r.mu.RLock()
	cached, ok := r.cache[token]
	r.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.identity, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Auth("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Identity{}, apperr.Auth("invalid or expired token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return models.Identity{}, apperr.Auth("token missing subject")
	}

	primary := ""
	if len(c.Emails) > 0 {
		primary = c.Emails[0]
	}
	id := models.Identity{
		UserID:         c.Subject,
		VerifiedEmails: c.Emails,
		PrimaryEmail:   primary,
		DisplayName:    c.DisplayName,
	}

	r.mu.Lock()
	r.cache[token] = cachedIdentity{identity: id, expiresAt: time.Now().Add(cacheTTL)}
	r.mu.Unlock()

	return id, nil
}

type contextKey string

const identityContextKey contextKey = "identity"

// FromRequest pulls "Bearer <token>" out of the Authorization header and
// resolves it, returning the zero Identity (no error) when the header is
// absent entirely.
func (r *Resolver) FromRequest(req *http.Request) (models.Identity, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return models.Identity{}, nil
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return models.Identity{}, apperr.Auth("malformed authorization header")
	}
	return r.Resolve(strings.TrimPrefix(header, prefix))
}

// RequireAuth middleware rejects requests without a verified identity,
// storing it in context for handlers that need it.
func (r *Resolver) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, err := r.FromRequest(req)
		if err != nil || id.UserID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED","error":"authentication required"}`))
			return
		}
		ctx := context.WithValue(req.Context(), identityContextKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// AttachOptional middleware resolves whatever identity is present without
// rejecting the request, for the "optional" auth endpoints in spec §6.
func (r *Resolver) AttachOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, err := r.FromRequest(req)
		if err == nil && id.UserID != "" {
			req = req.WithContext(context.WithValue(req.Context(), identityContextKey, id))
		}
		next.ServeHTTP(w, req)
	})
}

// FromContext returns the identity attached by RequireAuth or
// AttachOptional, if any.
func FromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(models.Identity)
	return id, ok
}

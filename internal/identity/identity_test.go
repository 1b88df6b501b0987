package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilbagh/theunfairwheel/internal/identity"
)

const testSecret = "super-secret-test-key"

type testClaims struct {
	Emails []string `json:"emails"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}

func signToken(t *testing.T, subject string, emails []string, expiresAt time.Time) string {
	t.Helper()
	claims := testClaims{
		Emails: emails,
		Name:   "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestResolve_EmptyTokenIsAnonymous(t *testing.T) {
	r := identity.NewResolver(testSecret)
	id, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "", id.UserID)
}

func TestResolve_ValidTokenReturnsIdentity(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	id, err := r.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "alice@example.com", id.PrimaryEmail)
	assert.Contains(t, id.VerifiedEmails, "alice@example.com")
}

func TestResolve_ExpiredTokenIsRejected(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(-time.Hour))

	_, err := r.Resolve(token)
	require.Error(t, err)
}

func TestResolve_WrongSigningSecretIsRejected(t *testing.T) {
	r := identity.NewResolver("a-different-secret")
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	_, err := r.Resolve(token)
	require.Error(t, err)
}

func TestResolve_MissingSubjectIsRejected(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	_, err := r.Resolve(token)
	require.Error(t, err)
}

func TestResolve_CachesResultUntilTTL(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	first, err := r.Resolve(token)
	require.NoError(t, err)

	second, err := r.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFromRequest_NoHeaderIsAnonymous(t *testing.T) {
	r := identity.NewResolver(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id, err := r.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "", id.UserID)
}

func TestFromRequest_MalformedHeaderIsRejected(t *testing.T) {
	r := identity.NewResolver(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic deadbeef")

	_, err := r.FromRequest(req)
	require.Error(t, err)
}

func TestFromRequest_BearerTokenIsResolved(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	id, err := r.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	r := identity.NewResolver(testSecret)
	called := false
	handler := r.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_AllowsValidTokenAndAttachesIdentity(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	var seen bool
	handler := r.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, ok := identity.FromContext(req.Context())
		seen = ok && id.UserID == "user-1"
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttachOptional_PassesThroughWithoutIdentity(t *testing.T) {
	r := identity.NewResolver(testSecret)
	var called bool
	var hadIdentity bool
	handler := r.AttachOptional(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
		_, hadIdentity = identity.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.False(t, hadIdentity)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttachOptional_AttachesIdentityWhenTokenValid(t *testing.T) {
	r := identity.NewResolver(testSecret)
	token := signToken(t, "user-1", []string{"alice@example.com"}, time.Now().Add(time.Hour))

	var hadIdentity bool
	handler := r.AttachOptional(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, hadIdentity = identity.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, hadIdentity)
}

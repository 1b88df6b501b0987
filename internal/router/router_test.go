package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilbagh/theunfairwheel/internal/actor"
	"github.com/dilbagh/theunfairwheel/internal/identity"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/metadata"
	"github.com/dilbagh/theunfairwheel/internal/models"
	"github.com/dilbagh/theunfairwheel/internal/realtime"
)

const testAuthSecret = "router-test-secret"

type testClaims struct {
	Emails []string `json:"emails"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}

func tokenFor(t *testing.T, userID string, emails []string) string {
	t.Helper()
	claims := testClaims{
		Emails: emails,
		Name:   "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testAuthSecret))
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, *Handlers) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	log := logger.New()
	registry := actor.NewRegistry(log, nil)
	idResolver := identity.NewResolver(testAuthSecret)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	meta := metadata.New(rdb, log, "test:")
	rt := realtime.New(log, registry)

	h := New(log, registry, idResolver, meta, rt, func() string { return "http://localhost:8081" })
	server := httptest.NewServer(h.Router(""))
	t.Cleanup(server.Close)
	return server, h
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthz_ReturnsOK(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateGroup_RequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, server.URL+"/groups", "", map[string]string{"name": "Lunch"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateGroupAndFetch_FullFlow(t *testing.T) {
	server, _ := newTestServer(t)
	token := tokenFor(t, "user-1", []string{"owner@example.com"})

	resp := doJSON(t, http.MethodPost, server.URL+"/groups", token, map[string]string{"name": "Lunch Roulette"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var group models.Group
	decodeBody(t, resp, &group)
	assert.Equal(t, "Lunch Roulette", group.Name)
	assert.NotEmpty(t, group.ID)

	getResp, err := http.Get(server.URL + "/groups/" + group.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestAddParticipant_RequiresManagerRole(t *testing.T) {
	server, _ := newTestServer(t)
	ownerToken := tokenFor(t, "user-1", []string{"owner@example.com"})
	outsiderToken := tokenFor(t, "user-2", []string{"outsider@example.com"})

	createResp := doJSON(t, http.MethodPost, server.URL+"/groups", ownerToken, map[string]string{"name": "Lunch"})
	var group models.Group
	decodeBody(t, createResp, &group)

	resp := doJSON(t, http.MethodPost, server.URL+"/groups/"+group.ID+"/participants", outsiderToken, map[string]interface{}{
		"name": "Alice",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAddParticipant_AsOwnerSucceeds(t *testing.T) {
	server, _ := newTestServer(t)
	ownerToken := tokenFor(t, "user-1", []string{"owner@example.com"})

	createResp := doJSON(t, http.MethodPost, server.URL+"/groups", ownerToken, map[string]string{"name": "Lunch"})
	var group models.Group
	decodeBody(t, createResp, &group)

	email := "alice@example.com"
	resp := doJSON(t, http.MethodPost, server.URL+"/groups/"+group.ID+"/participants", ownerToken, map[string]interface{}{
		"name":    "Alice",
		"emailId": email,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var participant models.Participant
	decodeBody(t, resp, &participant)
	assert.Equal(t, "Alice", participant.Name)
}

func TestRequestSpin_RequiresParticipantRole(t *testing.T) {
	server, _ := newTestServer(t)
	ownerToken := tokenFor(t, "user-1", []string{"owner@example.com"})
	outsiderToken := tokenFor(t, "user-2", []string{"outsider@example.com"})

	createResp := doJSON(t, http.MethodPost, server.URL+"/groups", ownerToken, map[string]string{"name": "Lunch"})
	var group models.Group
	decodeBody(t, createResp, &group)

	resp := doJSON(t, http.MethodPost, server.URL+"/groups/"+group.ID+"/spin", outsiderToken, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetGroup_UnknownGroupIsNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/groups/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQRCode_JSONFormat(t *testing.T) {
	server, _ := newTestServer(t)
	ownerToken := tokenFor(t, "user-1", []string{"owner@example.com"})

	createResp := doJSON(t, http.MethodPost, server.URL+"/groups", ownerToken, map[string]string{"name": "Lunch"})
	var group models.Group
	decodeBody(t, createResp, &group)

	resp, err := http.Get(server.URL + "/groups/" + group.ID + "/qr?format=json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body qrResponse
	decodeBody(t, resp, &body)
	assert.Contains(t, body.URL, group.ID)
}

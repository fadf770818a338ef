package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(&config.Config{
		KeycloakURL:             srv.URL,
		KeycloakRealm:           "master",
		KeycloakClientID:        "identity-api-service",
		KeycloakClientSecret:    "test-secret",
		KeycloakProfileCacheTTL: 5 * time.Minute,
		KeycloakTimeout:         5 * time.Second,
	})
	return client, srv
}

func tokenHandler(counter *atomic.Int64, expiresIn int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   expiresIn,
			"token_type":   "Bearer",
		})
	}
}

func TestGetUserNotFoundReturnsNil(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 300))
	mux.HandleFunc("/admin/realms/master/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)
	profile, err := client.GetUser(context.Background(), "missing-id")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestTokenIsCachedWhileValid(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 300))
	mux.HandleFunc("/admin/realms/master/users/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Profile{ID: "u1", Username: "alice"})
	})

	client, _ := newTestClient(t, mux)
	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	_, err = client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), tokenCalls.Load())
}

func TestTokenRefreshesAfterExpiry(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	// expires_in of 0 makes every cached token immediately stale.
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 0))
	mux.HandleFunc("/admin/realms/master/users/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Profile{ID: "u1", Username: "alice"})
	})

	client, _ := newTestClient(t, mux)
	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	_, err = client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), tokenCalls.Load())
}

func TestCreateUserParsesLocationHeader(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 300))
	mux.HandleFunc("/admin/realms/master/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@b.com", req["username"])
		assert.Equal(t, true, req["enabled"])

		w.Header().Set("Location", "http://keycloak/admin/realms/master/users/new-kc-id")
		w.WriteHeader(http.StatusCreated)
	})

	client, _ := newTestClient(t, mux)
	id, err := client.CreateUser(context.Background(), "a@b.com", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "new-kc-id", id)
}

func TestCreateUserConflict(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 300))
	mux.HandleFunc("/admin/realms/master/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.CreateUser(context.Background(), "a@b.com", nil, nil, "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestDeleteUserTreatsNotFoundAsSuccess(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/master/protocol/openid-connect/token", tokenHandler(&tokenCalls, 300))
	mux.HandleFunc("/admin/realms/master/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)
	assert.NoError(t, client.DeleteUser(context.Background(), "already-gone"))
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	client := New(&config.Config{KeycloakURL: "http://localhost:0"})
	assert.False(t, client.IsConfigured())

	_, err := client.GetUser(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDisplayName(t *testing.T) {
	first, last := "Ada", "Lovelace"
	assert.Equal(t, "Ada Lovelace", (&Profile{Username: "ada", FirstName: &first, LastName: &last}).DisplayName())
	assert.Equal(t, "Ada", (&Profile{Username: "ada", FirstName: &first}).DisplayName())
	assert.Equal(t, "Lovelace", (&Profile{Username: "ada", LastName: &last}).DisplayName())
	assert.Equal(t, "ada", (&Profile{Username: "ada"}).DisplayName())
}

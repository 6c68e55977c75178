package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/memory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/storagetest"
)

// newServer starts the bundled store server over a fresh memory backend.
func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	store, err := memory.New(1)
	require.NoError(t, err)
	keys, err := accesskey.NewService(accesskey.Config{Secret: "secret", Issuer: "test"})
	require.NoError(t, err)
	key, err := keys.Issue("service_role", time.Hour)
	require.NoError(t, err)
	cfg := router.Config{RatePerSecond: 10000, Burst: 10000, AllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(router.RegisterRoutes(zap.NewNop().Sugar(), store, keys, cfg))
	t.Cleanup(srv.Close)
	return srv, key
}

func newClient(t *testing.T, endpoint, key string, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{Endpoint: endpoint, AccessKey: key, Timeout: timeout}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestRemoteBackendContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		srv, key := newServer(t)
		return newClient(t, srv.URL, key, 0)
	})
}

func TestNew_RejectsBadEndpoint(t *testing.T) {
	for _, ep := range []string{"", "localhost:8080", "::bad"} {
		_, err := New(Config{Endpoint: ep}, zap.NewNop().Sugar())
		assert.Error(t, err, ep)
	}
}

func TestWrongKeyIsStorageError(t *testing.T) {
	srv, _ := newServer(t)
	c := newClient(t, srv.URL, "wrong", 0)

	_, err := c.ListInventoryRecords(context.Background())
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid access key")
}

func TestTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := newClient(t, srv.URL, "k", 50*time.Millisecond)
	start := time.Now()
	_, err := c.FindUser(context.Background(), "alice", "h")
	assert.ErrorIs(t, err, storage.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL, "k", 0)

	_, err := c.ListInventoryRecords(context.Background())
	assert.ErrorIs(t, err, storage.ErrMalformedResponse)

	_, err = c.AppendInventoryRecord(context.Background(), "a", 1, decimal.NewFromInt(1), time.Now())
	assert.ErrorIs(t, err, storage.ErrMalformedResponse)
}

func TestPostgRESTConflictCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint \"users_pkey\""}`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL, "k", 0)

	err := c.CreateUser(context.Background(), "alice", "h", "administrator")
	assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, "k", time.Second)
	err := c.CreateUser(context.Background(), "alice", "h", "administrator")
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create user", se.Op)
}

func TestConflictOnAppendIsStorageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"row conflict"}`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL, "k", 0)

	_, err := c.AppendInventoryRecord(context.Background(), "widget", 1, decimal.NewFromInt(1), time.Now())
	assert.NotErrorIs(t, err, storage.ErrDuplicateUsername)
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "append inventory record", se.Op)
	assert.Contains(t, err.Error(), "status 409: row conflict")

	_, err = c.ListInventoryRecords(context.Background())
	assert.NotErrorIs(t, err, storage.ErrDuplicateUsername)

	// the same answer on the users table is a taken username
	err = c.CreateUser(context.Background(), "alice", "h", "administrator")
	assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
}

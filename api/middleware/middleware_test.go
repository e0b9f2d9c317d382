package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmart/pawmart-backend/pkg/enums"
)

func TestActorRejectsMissingHeaders(t *testing.T) {
	handler := Actor(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorRejectsUnknownRole(t *testing.T) {
	handler := Actor(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run with a bad role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "superuser")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorInjectsIdentity(t *testing.T) {
	actorID := uuid.New()
	var gotID uuid.UUID
	var gotRole enums.ActorRole

	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = ActorIDFromContext(r.Context())
		gotRole = ActorRoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-Actor-Id", actorID.String())
	req.Header.Set("X-Actor-Role", "seller")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, actorID, gotID)
	assert.Equal(t, enums.ActorRoleSeller, gotRole)
}

// memIdempotencyStore is an in-process stand-in for the redis-backed store.
type memIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{values: make(map[string]string)}
}

func (s *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, exists := s.values[key]
	if !exists {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func newCountingHandler(counter *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func postOrders(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemIdempotencyStore(), nil)(newCountingHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postOrders(`{"items":[]}`, "key-1"))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postOrders(`{"items":[]}`, "key-1"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls, "replay must not re-run the handler")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemIdempotencyStore(), nil)(newCountingHandler(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postOrders(`{"amount":100}`, "key-1"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postOrders(`{"amount":999}`, "key-1"))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemIdempotencyStore(), nil)(newCountingHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postOrders(`{}`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemIdempotencyStore(), nil)(newCountingHandler(&calls))

	// Reads never require a key.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	calls := 0
	store := newMemIdempotencyStore()
	inner := Idempotency(store, nil)(newCountingHandler(&calls))
	handler := Actor(nil)(inner)

	send := func(actorID uuid.UUID) *httptest.ResponseRecorder {
		req := postOrders(`{"items":[]}`, "shared-key")
		req.Header.Set("X-Actor-Id", actorID.String())
		req.Header.Set("X-Actor-Role", "buyer")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, send(uuid.New()).Code)
	require.Equal(t, http.StatusCreated, send(uuid.New()).Code)
	assert.Equal(t, 2, calls, "different actors never share a record")
}

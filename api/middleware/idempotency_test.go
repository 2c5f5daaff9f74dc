package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redisclient.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

// confirmRouter mounts a counting handler the way the real router does.
func confirmRouter(store idempotencyStore, status int) (http.Handler, *int) {
	calls := 0
	r := chi.NewRouter()
	r.With(Idempotency(store, nil)).Post("/cart/checkout/confirm/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Location", "/cart/checkout/success/CMD0000000"+fmt.Sprint(calls)+"/")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"call":%d}`, calls)))
	})
	return r, &calls
}

func confirm(h http.Handler, user uuid.UUID, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cart/checkout/confirm/", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req = req.WithContext(WithIdentity(req.Context(), user, "amina", "sess"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouteTTLSelection(t *testing.T) {
	ttl, ok := routeTTL(http.MethodPost, "/cart/checkout/confirm/")
	assert.True(t, ok)
	assert.Equal(t, criticalIdempotencyTTL, ttl)

	ttl, ok = routeTTL(http.MethodPost, "/auth/register")
	assert.True(t, ok)
	assert.Equal(t, defaultIdempotencyTTL, ttl)

	_, ok = routeTTL(http.MethodGet, "/cart/checkout/confirm/")
	assert.False(t, ok)
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	h, calls := confirmRouter(newFakeStore(), http.StatusSeeOther)
	user := uuid.New()

	first := confirm(h, user, "k1", `{"full_name":"A"}`)
	second := confirm(h, user, "k1", `{"full_name":"A"}`)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusSeeOther, second.Code)
	assert.Equal(t, first.Header().Get("Location"), second.Header().Get("Location"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	h, calls := confirmRouter(newFakeStore(), http.StatusSeeOther)
	user := uuid.New()

	confirm(h, user, "k1", `{"full_name":"A"}`)
	rec := confirm(h, user, "k1", `{"full_name":"B"}`)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyDoesNotStoreRejections(t *testing.T) {
	store := newFakeStore()
	h, calls := confirmRouter(store, http.StatusUnprocessableEntity)
	user := uuid.New()

	confirm(h, user, "k1", `{}`)
	confirm(h, user, "k1", `{}`)

	assert.Equal(t, 2, *calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyIsScopedPerUserAndOptional(t *testing.T) {
	h, calls := confirmRouter(newFakeStore(), http.StatusSeeOther)

	confirm(h, uuid.New(), "k1", `{}`)
	confirm(h, uuid.New(), "k1", `{}`)
	confirm(h, uuid.New(), "", `{}`)

	assert.Equal(t, 3, *calls)
}

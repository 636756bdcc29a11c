package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/storage/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockAPIKeyCache struct {
	mock.Mock
}

func (m *MockAPIKeyCache) GetAPIKey(ctx context.Context, value string) (bool, bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockAPIKeyCache) SetAPIKey(ctx context.Context, value string, valid bool, ttl time.Duration) error {
	args := m.Called(ctx, value, valid, ttl)
	return args.Error(0)
}

func newTestEngine(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth(t *testing.T) {
	db := memory.New()
	tokens := db.APITokens()
	require.NoError(t, tokens.Create(context.Background(), &domain.APIToken{ID: "TK00000001", Value: "good-key", Active: true}))
	require.NoError(t, tokens.Create(context.Background(), &domain.APIToken{ID: "TK00000002", Value: "revoked-key", Active: false}))

	r := newTestEngine(APIKeyAuth(tokens, nil, time.Minute))

	tests := []struct {
		name    string
		key     string
		status  int
		message string
	}{
		{"missing key", "", http.StatusUnauthorized, "API key is required"},
		{"unknown key", "nope", http.StatusUnauthorized, "Invalid API key"},
		{"inactive key", "revoked-key", http.StatusUnauthorized, "Invalid API key"},
		{"active key", "good-key", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.key != "" {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			w := doRequest(r, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				body := decodeError(t, w)
				assert.Equal(t, titleUnauthorized, body.Error)
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestAPIKeyAuth_UsesCache(t *testing.T) {
	keyCache := &MockAPIKeyCache{}
	keyCache.On("GetAPIKey", mock.Anything, "cached-key").Return(true, true, nil)
	keyCache.On("GetAPIKey", mock.Anything, "fresh-key").Return(false, false, nil)
	keyCache.On("SetAPIKey", mock.Anything, "fresh-key", false, time.Minute).Return(nil)

	tokens := memory.New().APITokens()
	r := newTestEngine(APIKeyAuth(tokens, keyCache, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderAPIKey, "cached-key")
	assert.Equal(t, http.StatusOK, doRequest(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderAPIKey, "fresh-key")
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, req).Code)

	keyCache.AssertExpectations(t)
}

func TestRateLimiter(t *testing.T) {
	r := newTestEngine(NewRateLimiter(0.001, 2).Middleware())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, doRequest(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, doRequest(r, other).Code)
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(0.001, 1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	first := l.limiter("10.0.0.1")
	require.True(t, first.Allow())
	l.limiter("10.0.0.2")
	require.Len(t, l.limiters, 2)

	now = now.Add(limiterIdleTTL / 2)
	l.limiter("10.0.0.2")

	now = now.Add(limiterIdleTTL/2 + limiterSweepInterval)
	l.limiter("10.0.0.3")

	assert.Len(t, l.limiters, 2)
	assert.NotContains(t, l.limiters, "10.0.0.1")
	assert.Contains(t, l.limiters, "10.0.0.2")
	assert.Contains(t, l.limiters, "10.0.0.3")
	assert.True(t, l.limiter("10.0.0.1").Allow(), "an evicted client starts with a fresh bucket")
}

func TestRequestID(t *testing.T) {
	r := newTestEngine(RequestID())

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = doRequest(r, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New(prometheus.NewRegistry())
	r := newTestEngine(RequestID(), AccessLog(zap.New(core), m))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	doRequest(r, req)

	entries := logs.FilterMessage("access").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "req-7", fields["request_id"])
	assert.NotContains(t, fields, "trace_id")

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recover(zap.New(core)))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, titleInternal, decodeError(t, w).Error)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func newIdempotentEngine(t *testing.T, status *int, calls *int) (*gin.Engine, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := cache.NewRedisCache(config.RedisConfig{Addr: mr.Addr()}, time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/bookings", Idempotency(store, time.Hour), func(c *gin.Context) {
		*calls++
		c.JSON(*status, gin.H{"call": *calls})
	})
	return r, store
}

func postWithKey(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	return req
}

func postAsClient(apiKey, key string) *http.Request {
	req := postWithKey(key)
	req.Header.Set(HeaderAPIKey, apiKey)
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r, _ := newIdempotentEngine(t, &status, &calls)

	first := doRequest(r, postWithKey("k1"))
	second := doRequest(r, postWithKey("k1"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")

	doRequest(r, postWithKey("k2"))
	doRequest(r, postWithKey(""))
	assert.Equal(t, 3, calls)
}

func TestIdempotency_FailureReleasesKey(t *testing.T) {
	status, calls := http.StatusConflict, 0
	r, _ := newIdempotentEngine(t, &status, &calls)

	assert.Equal(t, http.StatusConflict, doRequest(r, postWithKey("k1")).Code)

	status = http.StatusCreated
	w := doRequest(r, postWithKey("k1"))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(HeaderReplayed))
	assert.Equal(t, 2, calls)
}

func TestIdempotency_ConcurrentDuplicate(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r, store := newIdempotentEngine(t, &status, &calls)

	_, err := store.BeginIdempotent(context.Background(), idempotencyKey(http.MethodPost, "/bookings", "ip:192.0.2.1", "k1"), time.Minute)
	require.NoError(t, err)

	w := doRequest(r, postWithKey("k1"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, titleConflict, decodeError(t, w).Error)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_KeysAreScopedPerClient(t *testing.T) {
	status, calls := http.StatusCreated, 0
	r, _ := newIdempotentEngine(t, &status, &calls)

	alice := doRequest(r, postAsClient("key-alice", "shared"))
	bob := doRequest(r, postAsClient("key-bob", "shared"))
	aliceAgain := doRequest(r, postAsClient("key-alice", "shared"))

	assert.Equal(t, 2, calls)
	assert.Empty(t, bob.Header().Get(HeaderReplayed))
	assert.NotEqual(t, alice.Body.String(), bob.Body.String())
	assert.Equal(t, "true", aliceAgain.Header().Get(HeaderReplayed))
	assert.Equal(t, alice.Body.String(), aliceAgain.Body.String())

	other := postWithKey("shared")
	other.RemoteAddr = "10.0.0.9:4321"
	doRequest(r, other)
	assert.Equal(t, 3, calls)
}

func TestCheckAPIKey_StoreError(t *testing.T) {
	tokens := &failingTokens{err: errors.New("db down")}
	_, err := checkAPIKey(context.Background(), tokens, nil, time.Minute, "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrAPITokenNotFound))
}

type failingTokens struct{ err error }

func (f *failingTokens) FindActive(context.Context, string) (*domain.APIToken, error) {
	return nil, f.err
}

func (f *failingTokens) Create(context.Context, *domain.APIToken) error { return f.err }

package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderAPIKey         = "X-API-Key"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	requestIDKey = "request_id"
)

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// AccessLog writes one line per request and records its latency when m is
// not nil.
func AccessLog(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		logger.Info("access", fields...)

		if m != nil {
			m.HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(latency.Seconds())
		}
	}
}

// Recover turns a handler panic into a 500 with the usual error body.
func Recover(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if re := recover(); re != nil {
				logger.Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", re),
					zap.Stack("stack"),
				)
				abortWithError(c, http.StatusInternalServerError, titleInternal, "An unexpected error occurred")
			}
		}()
		c.Next()
	}
}

type APIKeyCache interface {
	GetAPIKey(ctx context.Context, value string) (valid, found bool, err error)
	SetAPIKey(ctx context.Context, value string, valid bool, ttl time.Duration) error
}

// APIKeyAuth rejects requests without an active X-API-Key. Lookups are
// cached for ttl when keyCache is not nil.
func APIKeyAuth(tokens repository.APITokenRepository, keyCache APIKeyCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			abortWithError(c, http.StatusUnauthorized, titleUnauthorized, "API key is required")
			return
		}

		valid, err := checkAPIKey(c.Request.Context(), tokens, keyCache, ttl, key)
		if err != nil {
			writeError(c, err)
			return
		}
		if !valid {
			abortWithError(c, http.StatusUnauthorized, titleUnauthorized, "Invalid API key")
			return
		}
		c.Next()
	}
}

func checkAPIKey(ctx context.Context, tokens repository.APITokenRepository, keyCache APIKeyCache, ttl time.Duration, key string) (bool, error) {
	if keyCache != nil {
		valid, found, err := keyCache.GetAPIKey(ctx, key)
		if err != nil {
			zap.L().Warn("api key cache read failed", zap.Error(err))
		} else if found {
			return valid, nil
		}
	}

	valid := true
	if _, err := tokens.FindActive(ctx, key); err != nil {
		if !errors.Is(err, domain.ErrAPITokenNotFound) {
			return false, fmt.Errorf("check api key: %w", err)
		}
		valid = false
	}

	if keyCache != nil {
		if err := keyCache.SetAPIKey(ctx, key, valid, ttl); err != nil {
			zap.L().Warn("api key cache write failed", zap.Error(err))
		}
	}
	return valid, nil
}

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than limiterIdleTTL are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*clientLimiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.sweep(now)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *RateLimiter) sweep(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			zap.L().Warn("rate limit exceeded", zap.String("ip", ip))
			abortWithError(c, http.StatusTooManyRequests, titleTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		c.Next()
	}
}

type IdempotencyStore interface {
	BeginIdempotent(ctx context.Context, key string, lockTTL time.Duration) (*cache.StoredResponse, error)
	CompleteIdempotent(ctx context.Context, key string, resp cache.StoredResponse, ttl time.Duration) error
	ReleaseIdempotent(ctx context.Context, key string) error
}

const idempotencyLockTTL = 30 * time.Second

func idempotencyKey(method, path, scope, header string) string {
	return method + ":" + path + ":" + scope + ":" + header
}

// clientScope separates idempotency keys of different callers: the hashed
// API key when one is sent, the client IP otherwise.
func clientScope(c *gin.Context) string {
	if key := c.GetHeader(HeaderAPIKey); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:])
	}
	return "ip:" + c.ClientIP()
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Only 2xx responses are stored; any other outcome frees the key.
func Idempotency(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(HeaderIdempotencyKey)
		if header == "" {
			c.Next()
			return
		}
		key := idempotencyKey(c.Request.Method, c.FullPath(), clientScope(c), header)
		ctx := c.Request.Context()

		stored, err := store.BeginIdempotent(ctx, key, idempotencyLockTTL)
		switch {
		case errors.Is(err, cache.ErrInProgress):
			abortWithError(c, http.StatusConflict, titleConflict, "A request with this idempotency key is already being processed")
			return
		case err != nil:
			zap.L().Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		case stored != nil:
			c.Header(HeaderReplayed, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		done := context.WithoutCancel(ctx)
		status := rec.Status()
		if status < 200 || status >= 300 {
			if err := store.ReleaseIdempotent(done, key); err != nil {
				zap.L().Warn("idempotency release failed", zap.Error(err))
			}
			return
		}

		resp := cache.StoredResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := store.CompleteIdempotent(done, key, resp, ttl); err != nil {
			zap.L().Warn("idempotency store failed", zap.String("key", header), zap.Error(err))
		}
	}
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	flightsVersionKey = "cache:flights:version"
	processingMarker  = "PROCESSING"
)

// ErrInProgress is returned when another request holding the same
// idempotency key has not finished yet.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// FlightsVersion returns the current search cache generation. A search reads
// it once and uses it for every page it reads or writes, so a page loaded
// before an invalidation can never be stored under the newer generation.
func (c *RedisCache) FlightsVersion(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, flightsVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return version, nil
}

// GetFlightPage returns nil, nil on a miss.
func (c *RedisCache) GetFlightPage(ctx context.Context, version int64, q repository.FlightQuery) (*repository.FlightPage, error) {
	data, err := c.client.Get(ctx, flightsKey(version, q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var page repository.FlightPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *RedisCache) SetFlightPage(ctx context.Context, version int64, q repository.FlightQuery, page *repository.FlightPage) error {
	payload, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(version, q), payload, c.flightsTTL).Err()
}

// InvalidateFlights bumps the generation counter so every cached page key
// written before the call stops matching.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Incr(ctx, flightsVersionKey).Err()
}

func flightsKey(version int64, q repository.FlightQuery) string {
	return fmt.Sprintf("cache:flights:v%d:%s", version, queryFingerprint(q))
}

func queryFingerprint(q repository.FlightQuery) string {
	bound := func(p *int64) string {
		if p == nil {
			return "-"
		}
		return strconv.FormatInt(*p, 10)
	}
	return strings.Join([]string{
		strings.ToUpper(q.From),
		strings.ToUpper(q.To),
		q.DepartureFrom.UTC().Format(time.RFC3339),
		q.DepartureTo.UTC().Format(time.RFC3339),
		bound(q.MinPriceCents),
		bound(q.MaxPriceCents),
		strconv.FormatBool(q.DirectOnly),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Size),
		string(q.SortBy),
		strconv.FormatBool(q.Descending),
	}, "|")
}

// GetAPIKey reports a cached validity verdict. found is false on a miss.
func (c *RedisCache) GetAPIKey(ctx context.Context, value string) (valid, found bool, err error) {
	v, err := c.client.Get(ctx, apiKeyKey(value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return v == "1", true, nil
}

func (c *RedisCache) SetAPIKey(ctx context.Context, value string, valid bool, ttl time.Duration) error {
	v := "0"
	if valid {
		v = "1"
	}
	return c.client.Set(ctx, apiKeyKey(value), v, ttl).Err()
}

func apiKeyKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "cache:apikey:" + hex.EncodeToString(sum[:])
}

type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// BeginIdempotent claims key. It returns the stored response when the key was
// already completed, ErrInProgress while another holder is running, and
// nil, nil once the caller owns the key.
func (c *RedisCache) BeginIdempotent(ctx context.Context, key string, lockTTL time.Duration) (*StoredResponse, error) {
	acquired, err := c.client.SetNX(ctx, idempotencyKey(key), processingMarker, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if acquired {
		return nil, nil
	}

	val, err := c.client.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInProgress
		}
		return nil, err
	}
	if val == processingMarker {
		return nil, ErrInProgress
	}

	var resp StoredResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RedisCache) CompleteIdempotent(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, idempotencyKey(key), payload, ttl).Err()
}

// ReleaseIdempotent drops the claim so the client may retry.
func (c *RedisCache) ReleaseIdempotent(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}

package question

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Hour

// CacheKey identifies one generation request.
type CacheKey struct {
	Model    string
	Count    int
	Material string
}

// String hashes the material so keys stay short regardless of input size.
func (k CacheKey) String() string {
	sum := sha256.Sum256([]byte(k.Material))
	return fmt.Sprintf("questionset:%s:%d:%s", k.Model, k.Count, hex.EncodeToString(sum[:]))
}

// Cache stores accepted generations in Redis so the same material is not
// sent to the model twice.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ GenerationCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key CacheKey) ([]Question, error) {
	data, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (c *Cache) Set(ctx context.Context, key CacheKey, qs []Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key.String(), data, c.ttl).Err()
}

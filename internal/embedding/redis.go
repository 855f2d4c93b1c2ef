package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores embeddings in Redis as little-endian float32 blobs under
// "gijiroku:emb:<namespace>:<sha256(text)>".
type RedisCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection with PING.
// namespace should identify the provider and model so vectors never mix.
func NewRedisCache(ctx context.Context, redisURL, namespace string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheWithClient(client, namespace, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, namespace string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "gijiroku:emb:" + r.namespace + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text.
func (r *RedisCache) Get(ctx context.Context, text string) ([]float32, bool, error) {
	data, err := r.client.Get(ctx, r.key(text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores vector for text with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, text string, vector []float32) error {
	return r.client.Set(ctx, r.key(text), encodeVector(vector), r.ttl).Err()
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

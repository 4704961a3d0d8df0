//go:build integration

package containers

import (
	"context"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"feedlink/internal/platform/config"
	platformredis "feedlink/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a disposable Redis reached through the same client
// wrapper the server uses.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *platformredis.Client
}

// NewRedisContainer starts Redis and connects to it. The Manager shares the
// instance across suites and Ryuk reaps it when the binary exits.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	fail := func(step string, err error) {
		_ = container.Terminate(ctx)
		t.Fatalf("%s: %v", step, err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		fail("redis connection string", err)
	}
	client, err := platformredis.New(ctx, config.RedisConfig{URL: url})
	if err != nil {
		fail("connect redis", err)
	}
	return &RedisContainer{Container: container, URL: url, Client: client}
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}

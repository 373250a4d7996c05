package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendradar/internal/domain"
)

func TestRedisPublisherPublishDiscovery(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	// Test if Redis is available
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	// Single shard so the test knows which stream to read
	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_trendradar", 1, 100)
	defer publisher.Close()
	defer client.Del(ctx, "test_trendradar:0")

	product := domain.Product{
		ID:          42,
		Name:        "Galaxy Projector",
		Platform:    domain.PlatformAmazon,
		IdentityKey: "https://www.amazon.com/dp/B0GALAXY",
		TrendScore:  71.5,
		FirstSeen:   time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}

	err := publisher.PublishDiscovery(product)
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "test_trendradar:0", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, ok := entries[0].Values["discovery"].(string)
	require.True(t, ok)

	var msg discoveryMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, int64(42), msg.ProductID)
	assert.Equal(t, "Galaxy Projector", msg.Name)
	assert.Equal(t, "amazon", msg.Platform)
	assert.Equal(t, 71.5, msg.TrendScore)
	assert.Equal(t, "2026-08-20T09:00:00Z", msg.FirstSeen)
}

func TestRedisPublisherZeroStreamCountCollapsesToOne(t *testing.T) {
	ctx := context.Background()

	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_trendradar_zero", 0, 100)
	defer publisher.Close()
	assert.Equal(t, 1, publisher.streamCount)

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	defer client.Del(ctx, "test_trendradar_zero:0")

	// Shard selection must not panic on the collapsed count
	require.NoError(t, publisher.PublishDiscovery(domain.Product{
		ID:       7,
		Name:     "Widget",
		Platform: domain.PlatformReddit,
	}))

	length, err := client.XLen(ctx, "test_trendradar_zero:0").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestRedisPublisherTrimStreams(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_trendradar_trim", 1, 5)
	defer publisher.Close()
	defer client.Del(ctx, "test_trendradar_trim:0")

	for i := 0; i < 20; i++ {
		err := publisher.PublishDiscovery(domain.Product{
			ID:       int64(i),
			Name:     "Widget",
			Platform: domain.PlatformAliExpress,
		})
		require.NoError(t, err)
	}

	require.NoError(t, publisher.TrimStreams())

	length, err := client.XLen(ctx, "test_trendradar_trim:0").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, length, int64(5))
}

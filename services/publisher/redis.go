package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"math/rand/v2"

	"github.com/redis/go-redis/v9"

	"trendradar/internal/domain"
)

// discoveryMessage is the wire format for newly discovered products.
type discoveryMessage struct {
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	IdentityKey string  `json:"identity_key"`
	TrendScore  float64 `json:"trend_score"`
	FirstSeen   string  `json:"first_seen"`
}

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher. A stream count below 1
// collapses to a single stream.
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// PublishDiscovery publishes a newly discovered product to a Redis stream.
// Messages are sharded across streamCount streams; if streamCount is 10,
// stream names run stream:0 ~ stream:9.
func (p *RedisPublisher) PublishDiscovery(product domain.Product) error {
	payload, err := json.Marshal(discoveryMessage{
		ProductID:   product.ID,
		Name:        product.Name,
		Platform:    string(product.Platform),
		IdentityKey: product.IdentityKey,
		TrendScore:  product.TrendScore,
		FirstSeen:   product.FirstSeen.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	stream := p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"discovery": payload,
		},
	}).Err()
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

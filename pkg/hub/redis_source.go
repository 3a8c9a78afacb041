package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
)

// DefaultRedisPrefix is the channel prefix of relayed pushes.
const DefaultRedisPrefix = "hq:push:"

// Pusher is the part of the hub a source feeds.
type Pusher interface {
	Push(key protocol.Key, payload json.RawMessage) int
}

// RedisSourceConfig configures the Redis source.
type RedisSourceConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisSource relays messages published on <prefix><address>:<route>:<topic>
// channels as pushes.
type RedisSource struct {
	log    *logger.Logger
	client *redis.Client
	prefix string
	target Pusher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	pubsub *redis.PubSub

	// Metrics
	relayed     uint64
	invalid     uint64
	metricsLock sync.RWMutex
}

// NewRedisSource connects to Redis and checks the connection.
func NewRedisSource(log *logger.Logger, cfg *RedisSourceConfig, target Pusher) (*RedisSource, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Redis source initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("prefix", cfg.Prefix))

	return &RedisSource{
		log:    log,
		client: client,
		prefix: cfg.Prefix,
		target: target,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start subscribes to the push channels.
func (r *RedisSource) Start() error {
	r.log.Info("Starting Redis source")

	r.pubsub = r.client.PSubscribe(r.ctx, r.prefix+"*")

	r.wg.Add(1)
	go r.relay()

	return nil
}

// Stop unsubscribes and closes the client.
func (r *RedisSource) Stop() error {
	r.log.Info("Stopping Redis source")

	r.cancel()
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	r.wg.Wait()

	return r.client.Close()
}

// Publish publishes a payload for key, as an upstream producer would.
func (r *RedisSource) Publish(ctx context.Context, key protocol.Key, payload json.RawMessage) error {
	if err := r.client.Publish(ctx, ChannelName(r.prefix, key), []byte(payload)).Err(); err != nil {
		return fmt.Errorf("publishing to Redis: %w", err)
	}
	return nil
}

// GetMetrics returns current source metrics.
func (r *RedisSource) GetMetrics() map[string]uint64 {
	r.metricsLock.RLock()
	defer r.metricsLock.RUnlock()

	return map[string]uint64{
		"relayed": r.relayed,
		"invalid": r.invalid,
	}
}

func (r *RedisSource) relay() {
	defer r.wg.Done()

	ch := r.pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleMessage(msg)

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *RedisSource) handleMessage(msg *redis.Message) {
	key, err := ParseChannel(r.prefix, msg.Channel)
	if err != nil {
		r.countInvalid()
		r.log.Warn("Ignoring Redis message", zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	if !json.Valid([]byte(msg.Payload)) {
		r.countInvalid()
		r.log.Warn("Ignoring non-JSON Redis payload", zap.String("channel", msg.Channel))
		return
	}

	n := r.target.Push(key, json.RawMessage(msg.Payload))

	r.metricsLock.Lock()
	r.relayed++
	r.metricsLock.Unlock()

	r.log.Debug("Relayed push",
		zap.String("key", key.String()),
		zap.Int("clients", n))
}

func (r *RedisSource) countInvalid() {
	r.metricsLock.Lock()
	r.invalid++
	r.metricsLock.Unlock()
}

// ChannelName returns the Redis channel carrying pushes for key.
func ChannelName(prefix string, key protocol.Key) string {
	return fmt.Sprintf("%s%s:%s:%s", prefix, key.Address, key.Route, key.Topic)
}

// ParseChannel extracts the routing key from a push channel name. Route and topic
// are the last two segments, so the address itself may contain colons.
func ParseChannel(prefix, channel string) (protocol.Key, error) {
	rest, ok := strings.CutPrefix(channel, prefix)
	if !ok {
		return protocol.Key{}, fmt.Errorf("channel %q lacks prefix %q", channel, prefix)
	}

	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return protocol.Key{}, fmt.Errorf("channel %q has no topic", channel)
	}
	topic := rest[i+1:]
	rest = rest[:i]

	j := strings.LastIndex(rest, ":")
	if j < 0 {
		return protocol.Key{}, fmt.Errorf("channel %q has no route", channel)
	}
	route := rest[j+1:]
	address := rest[:j]

	if address == "" || topic == "" {
		return protocol.Key{}, fmt.Errorf("channel %q needs an address and a topic", channel)
	}
	return protocol.NewKey(protocol.Address(address), protocol.Route(route), protocol.Topic(topic)), nil
}

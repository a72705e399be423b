package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/swarmflow/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis event publisher.
type RedisConfig struct {
	Addr           string        `yaml:"addr" env:"ADDR"`
	Password       string        `yaml:"password" env:"PASSWORD"`
	DB             int           `yaml:"db" env:"DB"`
	Channel        string        `yaml:"channel" env:"CHANNEL"`
	QueueSize      int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"PUBLISH_TIMEOUT"`
	TLS            bool          `yaml:"tls" env:"TLS"`
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:           "localhost:6379",
		Channel:        "swarmflow:events",
		QueueSize:      256,
		PublishTimeout: 2 * time.Second,
	}
}

// RedisPublisher forwards events as JSON envelopes to a Redis pub/sub
// channel. Publishing happens on a background goroutine behind a bounded
// queue so a slow Redis never stalls the coordinator; overflow is dropped
// and counted.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	logger  *zap.Logger

	queue     chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// RedisPublisherStats reports publisher counters.
type RedisPublisherStats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
}

// DialRedisPublisher connects to Redis, verifies the connection and starts
// the publisher.
func DialRedisPublisher(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(redisOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPublisher(client, cfg, logger), nil
}

func redisOptions(cfg RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.ClientConfig(cfg.Addr)
	}
	return opts
}

// NewRedisPublisher starts a publisher on an existing client. The publisher
// owns the client and closes it on Close.
func NewRedisPublisher(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultRedisConfig()
	if cfg.Channel == "" {
		cfg.Channel = defaults.Channel
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}

	p := &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
		timeout: cfg.PublishTimeout,
		logger:  logger.With(zap.String("component", "redis_event_publisher")),
		queue:   make(chan Event, cfg.QueueSize),
		done:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()

	p.logger.Info("redis event publisher started", zap.String("channel", p.channel))
	return p
}

// Channel returns the pub/sub channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Handler returns the bus handler that enqueues events for publishing.
func (p *RedisPublisher) Handler() Handler {
	return ObserverFunc(p.enqueue)
}

func (p *RedisPublisher) enqueue(e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		return
	}

	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
		p.logger.Warn("event queue full, dropping event", zap.String("kind", string(e.Kind())))
	}
}

func (p *RedisPublisher) run() {
	defer p.wg.Done()

	for {
		select {
		case e := <-p.queue:
			p.publish(e)
		case <-p.done:
			// 关闭前尽量把队列中剩余事件发出
			for {
				select {
				case e := <-p.queue:
					p.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (p *RedisPublisher) publish(e Event) {
	payload, err := Marshal(e)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("failed to marshal event", zap.String("kind", string(e.Kind())), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.failed.Add(1)
		p.logger.Warn("failed to publish event",
			zap.String("kind", string(e.Kind())),
			zap.Error(err),
		)
		return
	}
	p.published.Add(1)
}

// Stats returns publisher counters.
func (p *RedisPublisher) Stats() RedisPublisherStats {
	return RedisPublisherStats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close drains queued events and closes the Redis client.
func (p *RedisPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()
		err = p.client.Close()
		p.logger.Info("redis event publisher stopped")
	})
	return err
}

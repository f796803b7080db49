package database

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error { return client.Ping(ctx).Err() }
	redisPoolStats = func(client *redis.Client) *redis.PoolStats { return client.PoolStats() }
)

// RedisDB holds sessions, sync state and rate-limit counters. Every request
// touches it at least once through the limiter, so the pool is sized for
// short commands rather than long pipelines.
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(addr, password string, db int) (*RedisDB, error) {
	client := newRedisClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ClientName:   "blockshield",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis %s: %w", addr, err)
	}

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *RedisDB) Health(ctx context.Context) error {
	return redisPing(ctx, r.Client)
}

// RegisterPoolMetrics exposes connection pool gauges and counters on reg.
func (r *RedisDB) RegisterPoolMetrics(reg prometheus.Registerer) error {
	stats := func() *redis.PoolStats {
		if r.Client == nil {
			return &redis.PoolStats{}
		}
		return redisPoolStats(r.Client)
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "blockshield", Subsystem: "redis_pool", Name: name, Help: help}
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("total_conns", "Total connections in the pool")), func() float64 {
			return float64(stats().TotalConns)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("idle_conns", "Idle connections in the pool")), func() float64 {
			return float64(stats().IdleConns)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("hits_total", "Times a free connection was found in the pool")), func() float64 {
			return float64(stats().Hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("misses_total", "Times a new connection had to be dialed")), func() float64 {
			return float64(stats().Misses)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("timeouts_total", "Times waiting for a connection timed out")), func() float64 {
			return float64(stats().Timeouts)
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return fmt.Errorf("registering redis pool metrics: %w", err)
			}
		}
	}
	return nil
}

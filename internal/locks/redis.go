package locks

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"go.uber.org/zap"
)

// RedisOptions tunes the RedLock mutex.
type RedisOptions struct {
	Prefix     string
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "lock:",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis serializes keys across every service instance sharing one Redis.
type Redis struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *zap.Logger
}

func NewRedis(client *redis.Client, opts RedisOptions, logger *zap.Logger) *Redis {
	pool := goredis.NewPool(client)
	return &Redis{
		rs:     redsync.New(pool),
		opts:   opts,
		logger: logger,
	}
}

// Lock holds key until the returned func is called. The lease is extended
// every half expiry while it is held, so long units of work keep exclusivity.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	mutex := r.rs.NewMutex(r.opts.Prefix+key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(mutex, key, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			// The unlock must run even when the caller's context is already done.
			if ok, err := mutex.UnlockContext(context.Background()); err != nil || !ok {
				r.logger.Warn("failed to release distributed lock",
					zap.String("key", key), zap.Bool("released", ok), zap.Error(err))
			}
		})
	}, nil
}

func (r *Redis) keepAlive(mutex *redsync.Mutex, key string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := r.opts.Expiry / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, err := mutex.ExtendContext(context.Background()); err != nil || !ok {
				r.logger.Error("failed to extend distributed lock, exclusivity may be lost",
					zap.String("key", key), zap.Bool("extended", ok), zap.Error(err))
				return
			}
		}
	}
}

var _ Locker = (*Redis)(nil)

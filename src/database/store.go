package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/config"
	"Backend-Attendance-Sync/src/store"
)

// Connections keeps the live clients so main can close them on shutdown.
// Redis is set whenever REDIS_URI is configured, even for another backend,
// since the job queue shares it.
type Connections struct {
	Store store.Store
	Redis *redis.Client

	closers []func(context.Context) error
}

// Open connects the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Connections, error) {
	conns := &Connections{}

	if cfg.RedisURI != "" {
		client, err := InitRedis(ctx, cfg.RedisURI, log)
		if err != nil {
			if cfg.StoreBackend == config.BackendRedis || cfg.WorkerEnabled {
				return nil, err
			}
			log.WithError(err).Warn("⚠️ Redis unavailable, continuing without it")
		} else {
			conns.Redis = client
			conns.closers = append(conns.closers, func(context.Context) error { return client.Close() })
		}
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		conns.Store = store.NewRedisStore(conns.Redis, cfg.StorePrefix, log)
	case config.BackendMongo:
		client, err := ConnectMongoDB(ctx, cfg.MongoURI, log)
		if err != nil {
			conns.Close(ctx)
			return nil, err
		}
		conns.closers = append(conns.closers, client.Disconnect)
		conns.Store = store.NewMongoStore(GetCollection(client, cfg.MongoDB, cfg.MongoColl), log)
	case config.BackendMemory, "":
		conns.Store = store.NewMemoryBackend().Connect()
	default:
		conns.Close(ctx)
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.StoreBackend,
		"origin":  conns.Store.Origin(),
	}).Info("store ready")
	return conns, nil
}

// Close releases every client in reverse order of creation.
func (c *Connections) Close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i](ctx)
	}
	c.closers = nil
}

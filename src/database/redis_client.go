package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// InitRedis creates a client for addr (เช่น localhost:6379) and pings it.
func InitRedis(ctx context.Context, addr string, log logrus.FieldLogger) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("REDIS_URI not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // ถ้าไม่มีรหัสผ่าน
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	log.Info("✅ Redis connected successfully")
	return client, nil
}

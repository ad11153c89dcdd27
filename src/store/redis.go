package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultRedisPrefix namespaces the shared keys inside a Redis database.
const DefaultRedisPrefix = "attendance:"

// RedisStore keeps every key as a plain Redis string and announces writes on
// a pub/sub channel "<prefix>changes" so other contexts can react.
type RedisStore struct {
	client *redis.Client
	prefix string
	origin string
	log    logrus.FieldLogger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore สร้าง context ใหม่บน Redis client ที่มีอยู่
func NewRedisStore(client *redis.Client, prefix string, log logrus.FieldLogger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		origin: uuid.NewString(),
		log:    log,
	}
}

func (r *RedisStore) Origin() string { return r.origin }

func (r *RedisStore) key(k string) string { return r.prefix + k }

func (r *RedisStore) channel() string { return r.prefix + "changes" }

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "redis get %s", key)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	ev, err := json.Marshal(ChangeEvent{Key: key, Origin: r.origin})
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, 0)
		pipe.Publish(ctx, r.channel(), ev)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	ev, err := json.Marshal(ChangeEvent{Key: key, Origin: r.origin, Deleted: true})
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(key))
		pipe.Publish(ctx, r.channel(), ev)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis delete %s", key)
	}
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	once   sync.Once
	err    error
}

func (s *redisSub) Close() error {
	s.once.Do(func() { s.err = s.pubsub.Close() })
	return s.err
}

func (r *RedisStore) OnChange(ctx context.Context, keys []string, fn ChangeFunc) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, r.channel())
	// wait for the subscription confirmation so no write is missed after return
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "redis subscribe")
	}
	sub := &redisSub{pubsub: pubsub}
	watched := append([]string(nil), keys...)

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.log.WithError(err).Warn("⚠️ ignoring malformed change event")
					continue
				}
				if ev.Origin == r.origin || !watches(watched, ev.Key) {
					continue
				}
				fn(ev)
			}
		}
	}()
	return sub, nil
}

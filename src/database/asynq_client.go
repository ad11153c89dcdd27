package database

import (
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// InitAsynq returns an asynq client only if Redis is configured; callers
// treat nil as "run jobs in-process".
func InitAsynq(redisURI string, log logrus.FieldLogger) *asynq.Client {
	if redisURI == "" {
		log.Warn("⚠️ Redis not available. Asynq client will not be initialized.")
		return nil
	}
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisURI})
	log.Info("✅ Asynq Client initialized successfully")
	return client
}

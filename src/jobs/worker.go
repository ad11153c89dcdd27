package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/services/statistics"
)

// Handler runs queued recalculations against one statistics context.
type Handler struct {
	svc *statistics.Service
	log logrus.FieldLogger
}

func NewHandler(svc *statistics.Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{svc: svc, log: log}
}

// HandleRecalculateStatisticsTask runs one recompute-and-publish cycle. A
// payload that cannot be decoded is not retried.
func (h *Handler) HandleRecalculateStatisticsTask(ctx context.Context, t *asynq.Task) error {
	var payload RecalculatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			h.log.WithError(err).Error("❌ Payload decode error")
			return errors.Wrapf(asynq.SkipRetry, "decode payload: %v", err)
		}
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	res, err := h.svc.Recompute(ctx)
	if err != nil {
		h.log.WithError(err).WithField("reason", payload.Reason).Error("❌ Recalculation failed")
		return err
	}

	h.log.WithFields(logrus.Fields{
		"reason":  payload.Reason,
		"changed": res.Changed,
		"rate":    res.Snapshot.AttendanceRate,
	}).Info("✅ Statistics recalculated")
	return nil
}

// RegisterStatisticsHandlers wires the statistics task types into mux.
func RegisterStatisticsHandlers(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(TypeRecalculateStatistics, h.HandleRecalculateStatisticsTask)
}

// NewServer builds the asynq worker server.
func NewServer(redisURI string, concurrency int, log logrus.FieldLogger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisURI},
		asynq.Config{
			Concurrency: concurrency,
			Logger:      log,
		},
	)
}

// NewPeriodicScheduler enqueues a recalculation on spec (cron syntax or
// "@every <duration>").
func NewPeriodicScheduler(redisURI, spec string, log logrus.FieldLogger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: redisURI}, &asynq.SchedulerOpts{
		Logger: log,
	})
	task, err := NewRecalculateStatisticsTask("periodic")
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(spec, task)
	if err != nil {
		return nil, errors.Wrapf(err, "register %q", spec)
	}
	log.WithField("entry", entryID).Infof("⏰ Recalculation scheduled %s", spec)
	return scheduler, nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueRecalculation queues one recalculation on the default queue.
func EnqueueRecalculation(client Enqueuer, reason string) (*asynq.TaskInfo, error) {
	task, err := NewRecalculateStatisticsTask(reason)
	if err != nil {
		return nil, err
	}
	info, err := client.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		return nil, errors.Wrap(err, "enqueue recalculation")
	}
	return info, nil
}

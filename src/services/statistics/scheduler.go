package statistics

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/store"
)

// DefaultInterval ค่าเริ่มต้นของรอบการคำนวณสถิติ
const DefaultInterval = 15 * time.Second

// WatchedKeys trigger an immediate cycle when another context writes them.
var WatchedKeys = []string{store.KeyAttendanceData, store.KeyAttendanceStatistics}

// Scheduler runs Service.Recompute periodically and on change notifications.
type Scheduler struct {
	svc *Service
	log logrus.FieldLogger
}

// NewScheduler สร้าง Scheduler สำหรับ Service หนึ่งตัว
func NewScheduler(svc *Service, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = svc.log
	}
	return &Scheduler{svc: svc, log: log}
}

// SyncHandle controls one running sync loop.
type SyncHandle struct {
	cancel context.CancelFunc
	sub    store.Subscription
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the ticker and the subscription and waits for the loop to
// exit. Safe to call more than once.
func (h *SyncHandle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancel()
		_ = h.sub.Close()
		<-h.done
	})
}

// Done is closed once the loop has exited.
func (h *SyncHandle) Done() <-chan struct{} { return h.done }

// Start runs one cycle before returning, then keeps cycling every interval
// and on every change from another context until stopped or ctx ends.
func (sc *Scheduler) Start(ctx context.Context, interval time.Duration) (*SyncHandle, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	trigger := make(chan store.ChangeEvent, 1)
	sub, err := sc.svc.store.OnChange(ctx, WatchedKeys, func(ev store.ChangeEvent) {
		select {
		case trigger <- ev:
		default: // a cycle is already pending
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}

	h := &SyncHandle{cancel: cancel, sub: sub, done: make(chan struct{})}

	sc.runCycle(ctx, "start")

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sc.log.WithField("interval", interval.String()).Info("🔄 statistics sync started")
		for {
			select {
			case <-ctx.Done():
				sc.log.Info("🔄 statistics sync stopped")
				return
			case <-ticker.C:
				sc.runCycle(ctx, "tick")
			case ev := <-trigger:
				sc.log.WithField("key", ev.Key).Debug("storage changed in another context")
				sc.runCycle(ctx, "change")
			}
		}
	}()
	return h, nil
}

// Stop is shorthand for h.Stop().
func (sc *Scheduler) Stop(h *SyncHandle) {
	h.Stop()
}

func (sc *Scheduler) runCycle(ctx context.Context, reason string) {
	defer func() {
		if r := recover(); r != nil {
			sc.log.WithField("panic", r).Error("❌ statistics cycle panicked")
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if _, err := sc.svc.Recompute(ctx); err != nil {
		sc.log.WithError(err).WithField("reason", reason).Error("❌ statistics cycle failed")
	}
}

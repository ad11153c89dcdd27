package statistics

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/store"
)

// Listener receives every published snapshot together with its trend. It is
// the hook a host UI uses to refresh counters, progress bars and trend badges.
type Listener interface {
	OnStatisticsUpdated(snapshot models.StatisticsSnapshot, trend models.Trend)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(models.StatisticsSnapshot, models.Trend)

func (f ListenerFunc) OnStatisticsUpdated(s models.StatisticsSnapshot, t models.Trend) { f(s, t) }

// PublishResult อธิบายผลของการ publish หนึ่งครั้ง
type PublishResult struct {
	Snapshot models.StatisticsSnapshot
	Trend    models.Trend
	// Changed is false when the stored snapshot already had the same counts
	// and nothing was written.
	Changed bool
}

// Publisher persists snapshots and fans them out to listeners.
type Publisher struct {
	store      store.Store
	legacyKeys bool
	log        logrus.FieldLogger

	mu        sync.RWMutex
	listeners []Listener
}

// NewPublisher สร้าง Publisher; legacyKeys=true จะเขียน calculatedStatistics ด้วย
func NewPublisher(s store.Store, legacyKeys bool, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{store: s, legacyKeys: legacyKeys, log: log}
}

// AddListener registers l. Nil listeners are ignored.
func (p *Publisher) AddListener(l Listener) {
	if l == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()
}

// readSnapshot returns nil for a missing or malformed key; malformed values
// are logged and otherwise ignored.
func (p *Publisher) readSnapshot(ctx context.Context, key string) (*models.StatisticsSnapshot, error) {
	var snap models.StatisticsSnapshot
	ok, err := store.GetJSON(ctx, p.store, key, &snap)
	if err != nil {
		if store.IsMalformed(err) {
			p.log.WithError(err).WithField("key", key).Warn("⚠️ stored statistics unreadable, ignoring")
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Publish stores snap as the canonical snapshot and then notifies listeners.
// The snapshot it replaces is kept under previousStatistics and is the trend
// baseline.
func (p *Publisher) Publish(ctx context.Context, snap models.StatisticsSnapshot) (PublishResult, error) {
	res, err := p.write(ctx, snap)
	if err != nil {
		return PublishResult{}, err
	}
	p.notify(res)
	return res, nil
}

// write is Publish without listener notification.
func (p *Publisher) write(ctx context.Context, snap models.StatisticsSnapshot) (PublishResult, error) {
	stored, err := p.readSnapshot(ctx, store.KeyAttendanceStatistics)
	if err != nil {
		return PublishResult{}, errors.Wrap(err, "read current statistics")
	}

	if stored != nil && stored.SameCounts(snap) {
		prev, err := p.readSnapshot(ctx, store.KeyPreviousStatistics)
		if err != nil {
			return PublishResult{}, errors.Wrap(err, "read previous statistics")
		}
		return PublishResult{Snapshot: *stored, Trend: ComputeTrend(prev, *stored)}, nil
	}

	baseline := stored
	if stored != nil {
		if err := store.SetJSON(ctx, p.store, store.KeyPreviousStatistics, stored); err != nil {
			return PublishResult{}, err
		}
	} else {
		if baseline, err = p.readSnapshot(ctx, store.KeyPreviousStatistics); err != nil {
			return PublishResult{}, errors.Wrap(err, "read previous statistics")
		}
	}

	if err := store.SetJSON(ctx, p.store, store.KeyAttendanceStatistics, snap); err != nil {
		return PublishResult{}, err
	}
	if p.legacyKeys {
		if err := store.SetJSON(ctx, p.store, store.KeyCalculatedStatistics, snap); err != nil {
			return PublishResult{}, err
		}
	}

	res := PublishResult{Snapshot: snap, Trend: ComputeTrend(baseline, snap), Changed: true}
	p.log.WithFields(logrus.Fields{
		"present": snap.TotalPresent,
		"absent":  snap.TotalAbsent,
		"late":    snap.TotalLate,
		"leave":   snap.TotalLeave,
		"rate":    snap.AttendanceRate,
	}).Info("✅ statistics published")
	return res, nil
}

func (p *Publisher) notify(res PublishResult) {
	p.mu.RLock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.RUnlock()
	for _, l := range listeners {
		l.OnStatisticsUpdated(res.Snapshot, res.Trend)
	}
}

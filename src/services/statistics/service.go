package statistics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/store"
)

// Options ตั้งค่าการทำงานของ Service
type Options struct {
	// LegacyKeys mirrors every snapshot into calculatedStatistics.
	LegacyKeys bool
	// SyncProfile writes the computed counters back into userData whenever
	// raw attendance records exist.
	SyncProfile bool
	// Now overrides the clock used for LastUpdated and export dates.
	Now func() time.Time
}

// Inputs are the decoded source keys for one calculation.
type Inputs struct {
	Data    *models.AttendanceData
	Profile *models.UserProfile
}

// Service is the state of one execution context: its store handle, the last
// snapshot it published and the listeners to notify.
type Service struct {
	store       store.Store
	calc        *Calculator
	publisher   *Publisher
	log         logrus.FieldLogger
	syncProfile bool
	now         func() time.Time

	mu      sync.Mutex // serializes cycles within this context
	current *PublishResult
}

// NewService สร้าง Service สำหรับ context หนึ่ง
func NewService(s store.Store, opts Options, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log = log.WithField("origin", s.Origin())
	return &Service{
		store:       s,
		calc:        &Calculator{Now: now},
		publisher:   NewPublisher(s, opts.LegacyKeys, log),
		log:         log,
		syncProfile: opts.SyncProfile,
		now:         now,
	}
}

// Store returns the context's store handle.
func (s *Service) Store() store.Store { return s.store }

// AddListener registers a callback for every published snapshot.
func (s *Service) AddListener(l Listener) { s.publisher.AddListener(l) }

// Load reads studentAttendanceData and userData. Malformed JSON is logged and
// treated as missing; only store failures are returned.
func (s *Service) Load(ctx context.Context) (Inputs, error) {
	var in Inputs

	var data models.AttendanceData
	ok, err := store.GetJSON(ctx, s.store, store.KeyAttendanceData, &data)
	switch {
	case store.IsMalformed(err):
		s.log.WithError(err).Warn("⚠️ attendance data unreadable, using defaults")
	case err != nil:
		return in, err
	case ok:
		in.Data = &data
	}

	var profile models.UserProfile
	ok, err = store.GetJSON(ctx, s.store, store.KeyUserData, &profile)
	switch {
	case store.IsMalformed(err):
		s.log.WithError(err).Warn("⚠️ user data unreadable, using defaults")
	case err != nil:
		return in, err
	case ok:
		in.Profile = &profile
	}
	return in, nil
}

// Recompute is the single calculate-and-publish cycle shared by the ticker,
// change notifications, jobs and HTTP handlers. Listeners run after the cycle
// lock is released, so they may call back into the Service.
func (s *Service) Recompute(ctx context.Context) (PublishResult, error) {
	res, err := s.recompute(ctx)
	if err != nil {
		return PublishResult{}, err
	}
	s.publisher.notify(res)
	return res, nil
}

func (s *Service) recompute(ctx context.Context) (PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := s.Load(ctx)
	if err != nil {
		return PublishResult{}, errors.Wrap(err, "load attendance inputs")
	}

	snap := s.calc.Calculate(in.Data, in.Profile)
	res, err := s.publisher.write(ctx, snap)
	if err != nil {
		return PublishResult{}, errors.Wrap(err, "publish statistics")
	}
	s.current = &res

	if s.syncProfile && hasRecognisedRecords(in.Data) {
		if err := s.writeBackProfile(ctx, res.Snapshot); err != nil {
			s.log.WithError(err).Error("❌ failed to update userData")
		}
	}
	return res, nil
}

// Current returns the last snapshot of this context, then the stored one, and
// finally recomputes when nothing usable is stored.
func (s *Service) Current(ctx context.Context) (PublishResult, error) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		return *cur, nil
	}

	snap, err := s.publisher.readSnapshot(ctx, store.KeyAttendanceStatistics)
	if err != nil {
		return PublishResult{}, err
	}
	if snap == nil {
		return s.Recompute(ctx)
	}
	prev, err := s.publisher.readSnapshot(ctx, store.KeyPreviousStatistics)
	if err != nil {
		return PublishResult{}, err
	}
	return PublishResult{Snapshot: *snap, Trend: ComputeTrend(prev, *snap)}, nil
}

// UserStatistics computes the statistics of a single user without publishing.
func (s *Service) UserStatistics(ctx context.Context, username string) (models.StatisticsSnapshot, error) {
	in, err := s.Load(ctx)
	if err != nil {
		return models.StatisticsSnapshot{}, errors.Wrap(err, "load attendance inputs")
	}
	return s.calc.CalculateForUser(in.Data, username), nil
}

// Export packs the current snapshot and the raw userData.
func (s *Service) Export(ctx context.Context) (models.StatisticsExport, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return models.StatisticsExport{}, err
	}
	exp := models.StatisticsExport{
		Statistics: &cur.Snapshot,
		ExportDate: s.now(),
		User:       json.RawMessage("{}"),
	}
	raw, ok, err := s.store.Get(ctx, store.KeyUserData)
	if err != nil {
		return models.StatisticsExport{}, errors.Wrap(err, "read userData")
	}
	if ok && json.Valid([]byte(raw)) {
		exp.User = json.RawMessage(raw)
	}
	return exp, nil
}

// Import publishes the snapshot contained in an export file.
func (s *Service) Import(ctx context.Context, exp models.StatisticsExport) (PublishResult, error) {
	if exp.Statistics == nil {
		return PublishResult{}, errors.New("import: statistics missing")
	}
	res, err := s.replace(ctx, *exp.Statistics)
	if err != nil {
		return PublishResult{}, errors.Wrap(err, "import statistics")
	}
	s.log.Info("✅ statistics imported")
	s.publisher.notify(res)
	return res, nil
}

func (s *Service) replace(ctx context.Context, snap models.StatisticsSnapshot) (PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.publisher.write(ctx, snap)
	if err != nil {
		return PublishResult{}, err
	}
	s.current = &res
	return res, nil
}

// Reset drops every statistics key and publishes the default snapshot.
func (s *Service) Reset(ctx context.Context) (PublishResult, error) {
	res, err := s.reset(ctx)
	if err != nil {
		return PublishResult{}, err
	}
	s.log.Info("✅ statistics reset")
	s.publisher.notify(res)
	return res, nil
}

func (s *Service) reset(ctx context.Context) (PublishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{
		store.KeyAttendanceStatistics,
		store.KeyCalculatedStatistics,
		store.KeyPreviousStatistics,
	} {
		if err := s.store.Delete(ctx, key); err != nil {
			return PublishResult{}, errors.Wrapf(err, "reset %s", key)
		}
	}

	res, err := s.publisher.write(ctx, s.calc.Calculate(nil, nil))
	if err != nil {
		return PublishResult{}, errors.Wrap(err, "publish default statistics")
	}
	s.current = &res
	return res, nil
}

// SaveAttendanceData replaces studentAttendanceData.
func (s *Service) SaveAttendanceData(ctx context.Context, data models.AttendanceData) error {
	return store.SetJSON(ctx, s.store, store.KeyAttendanceData, data)
}

// SaveUserProfile merges profile into userData, keeping fields this service
// does not model. Fields named in cleared are removed; an unset pointer field in
// profile leaves the stored value alone.
func (s *Service) SaveUserProfile(ctx context.Context, profile models.UserProfile, cleared ...string) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	for _, k := range cleared {
		delete(fields, k)
	}
	return s.mergeUserData(ctx, fields, cleared...)
}

func (s *Service) writeBackProfile(ctx context.Context, snap models.StatisticsSnapshot) error {
	fields := map[string]json.RawMessage{}
	for k, v := range map[string]int{
		"attendedDays":   snap.TotalPresent,
		"absentDays":     snap.TotalAbsent,
		"lateDays":       snap.TotalLate,
		"attendanceRate": snap.AttendanceRate,
	} {
		b, _ := json.Marshal(v)
		fields[k] = b
	}
	return s.mergeUserData(ctx, fields)
}

func (s *Service) mergeUserData(ctx context.Context, fields map[string]json.RawMessage, cleared ...string) error {
	merged := map[string]json.RawMessage{}
	if _, err := store.GetJSON(ctx, s.store, store.KeyUserData, &merged); err != nil {
		if !store.IsMalformed(err) {
			return err
		}
		s.log.WithError(err).Warn("⚠️ replacing unreadable userData")
		merged = map[string]json.RawMessage{}
	}
	for _, k := range cleared {
		delete(merged, k)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return store.SetJSON(ctx, s.store, store.KeyUserData, merged)
}

func hasRecognisedRecords(data *models.AttendanceData) bool {
	if data == nil {
		return false
	}
	for _, records := range data.GradeData {
		for _, r := range records {
			if r.Status.Known() {
				return true
			}
		}
	}
	return false
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/services/statistics"
	"Backend-Attendance-Sync/src/store"
	"Backend-Attendance-Sync/test"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type(), Payload: task.Payload()}, nil
}

func newHandler(t *testing.T) (*Handler, store.Store) {
	t.Helper()
	s := store.NewMemoryBackend().Connect()
	svc := statistics.NewService(s, statistics.Options{}, test.QuietLogger())
	return NewHandler(svc, test.QuietLogger()), s
}

func TestNewRecalculateStatisticsTask(t *testing.T) {
	task, err := NewRecalculateStatisticsTask("import")
	require.NoError(t, err)
	assert.Equal(t, TypeRecalculateStatistics, task.Type())

	var p RecalculatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "import", p.Reason)
}

func TestHandleRecalculateStatisticsTask(t *testing.T) {
	ctx := context.Background()
	h, s := newHandler(t)
	require.NoError(t, store.SetJSON(ctx, s, store.KeyAttendanceData,
		test.Grades(map[string][]string{"G1": {"present", "absent"}})))

	task, err := NewRecalculateStatisticsTask("test")
	require.NoError(t, err)
	require.NoError(t, h.HandleRecalculateStatisticsTask(ctx, task))

	var snap models.StatisticsSnapshot
	ok, err := store.GetJSON(ctx, s, store.KeyAttendanceStatistics, &snap)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, snap.TotalPresent)
	assert.Equal(t, 50, snap.AttendanceRate)

	// periodic tasks may carry no payload
	require.NoError(t, h.HandleRecalculateStatisticsTask(ctx, asynq.NewTask(TypeRecalculateStatistics, nil)))
}

func TestHandleRecalculateBadPayloadSkipsRetry(t *testing.T) {
	h, _ := newHandler(t)
	err := h.HandleRecalculateStatisticsTask(context.Background(),
		asynq.NewTask(TypeRecalculateStatistics, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestRegisterStatisticsHandlers(t *testing.T) {
	h, s := newHandler(t)
	mux := asynq.NewServeMux()
	RegisterStatisticsHandlers(mux, h)

	task, err := NewRecalculateStatisticsTask("mux")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	_, ok, err := s.Get(context.Background(), store.KeyAttendanceStatistics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnqueueRecalculation(t *testing.T) {
	f := &fakeEnqueuer{}
	info, err := EnqueueRecalculation(f, "manual")
	require.NoError(t, err)
	assert.Equal(t, TypeRecalculateStatistics, info.Type)
	require.Len(t, f.tasks, 1)

	_, err = EnqueueRecalculation(&fakeEnqueuer{err: errors.New("redis down")}, "manual")
	assert.Error(t, err)
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Backend-Attendance-Sync/src/jobs"
	"Backend-Attendance-Sync/src/middleware"
	"Backend-Attendance-Sync/src/models"
	"Backend-Attendance-Sync/src/services/statistics"
	"Backend-Attendance-Sync/src/store"
	"Backend-Attendance-Sync/test"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task.Type())
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TaskID  string          `json:"taskId"`
}

type publishBody struct {
	Statistics models.StatisticsSnapshot `json:"statistics"`
	Trend      models.Trend              `json:"trend"`
	Changed    bool                      `json:"changed"`
}

// newTestApp mounts the controller without JWT; username is injected directly.
func newTestApp(t *testing.T, queue jobs.Enqueuer) (*fiber.App, store.Store) {
	t.Helper()
	s := store.NewMemoryBackend().Connect()
	svc := statistics.NewService(s, statistics.Options{LegacyKeys: true}, test.QuietLogger())
	sc := NewStatisticsController(svc, queue, test.QuietLogger())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUsername, c.Get("X-Username"))
		return c.Next()
	})
	app.Get("/statistics", sc.GetStatistics)
	app.Get("/statistics/me", sc.GetMyStatistics)
	app.Post("/statistics/recalculate", sc.Recalculate)
	app.Get("/statistics/export", sc.ExportStatistics)
	app.Post("/statistics/import", sc.ImportStatistics)
	app.Delete("/statistics", sc.ResetStatistics)
	app.Put("/attendance-data", sc.PutAttendanceData)
	app.Put("/user-data", sc.PutUserData)
	return app, s
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodePublish(t *testing.T, raw []byte) publishBody {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	var body publishBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body
}

func TestStatisticsEndpoints(t *testing.T) {
	suiteResult := test.NewTestSuiteResult("Statistics Controller Tests")
	defer suiteResult.PrintSummary()

	app, s := newTestApp(t, nil)

	t.Run("GetDefaults", func(t *testing.T) {
		defer suiteResult.Track(t, "Get defaults")()

		resp, raw := do(t, app, "GET", "/statistics", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodePublish(t, raw)
		assert.Equal(t, statistics.DefaultPresent, body.Statistics.TotalPresent)
		assert.Equal(t, statistics.DefaultRate, body.Statistics.AttendanceRate)
	})

	t.Run("PutAttendanceDataRecalculatesInline", func(t *testing.T) {
		defer suiteResult.Track(t, "Put attendance inline")()

		resp, raw := do(t, app, "PUT", "/attendance-data",
			test.Grades(map[string][]string{"G1": {"present", "present", "absent"}}))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodePublish(t, raw)
		assert.Equal(t, 2, body.Statistics.TotalPresent)
		assert.Equal(t, 67, body.Statistics.AttendanceRate)
		assert.True(t, body.Changed)
	})

	t.Run("RecalculateUnchanged", func(t *testing.T) {
		defer suiteResult.Track(t, "Recalculate")()

		resp, raw := do(t, app, "POST", "/statistics/recalculate", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodePublish(t, raw)
		assert.Equal(t, 67, body.Statistics.AttendanceRate)
		assert.False(t, body.Changed)
	})

	t.Run("MyStatistics", func(t *testing.T) {
		defer suiteResult.Track(t, "My statistics")()

		resp, _ := do(t, app, "GET", "/statistics/me", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, raw := do(t, app, "GET", "/statistics/me", nil, "X-Username", "somchai")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		var snap models.StatisticsSnapshot
		require.NoError(t, json.Unmarshal(env.Data, &snap))
		// grade records carry no username so they count for everyone
		assert.Equal(t, 2, snap.TotalPresent)
	})

	t.Run("ExportAttachment", func(t *testing.T) {
		defer suiteResult.Track(t, "Export")()

		resp, raw := do(t, app, "GET", "/statistics/export", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attendance_statistics_")

		var exp models.StatisticsExport
		require.NoError(t, json.Unmarshal(raw, &exp))
		require.NotNil(t, exp.Statistics)
		assert.Equal(t, 67, exp.Statistics.AttendanceRate)
	})

	t.Run("ImportValidation", func(t *testing.T) {
		defer suiteResult.Track(t, "Import validation")()

		resp, _ := do(t, app, "POST", "/statistics/import", "{not json")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, raw := do(t, app, "POST", "/statistics/import", map[string]interface{}{"exportDate": "2024-01-01T00:00:00Z"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		var er models.ErrorResponse
		require.NoError(t, json.Unmarshal(raw, &er))
		assert.NotEmpty(t, er.Errors)
	})

	t.Run("Import", func(t *testing.T) {
		defer suiteResult.Track(t, "Import")()

		resp, raw := do(t, app, "POST", "/statistics/import", models.StatisticsExport{
			Statistics: &models.StatisticsSnapshot{TotalPresent: 30, TotalAbsent: 10, AttendanceRate: 75},
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, 30, decodePublish(t, raw).Statistics.TotalPresent)
	})

	t.Run("Reset", func(t *testing.T) {
		defer suiteResult.Track(t, "Reset")()

		resp, raw := do(t, app, "DELETE", "/statistics", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, statistics.DefaultRate, decodePublish(t, raw).Statistics.AttendanceRate)

		_, ok, err := s.Get(context.Background(), store.KeyPreviousStatistics)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPutAttendanceDataQueued(t *testing.T) {
	q := &mockQueue{}
	q.On("Enqueue", jobs.TypeRecalculateStatistics).
		Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	app, s := newTestApp(t, q)
	resp, raw := do(t, app, "PUT", "/attendance-data", test.Grades(map[string][]string{"G1": {"late"}}))
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "task-1", env.TaskID)
	q.AssertExpectations(t)

	_, ok, err := s.Get(context.Background(), store.KeyAttendanceData)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = s.Get(context.Background(), store.KeyAttendanceStatistics)
	require.NoError(t, err)
	assert.False(t, ok, "queued path must not recalculate inline")
}

func TestPutAttendanceDataEnqueueFailureFallsBack(t *testing.T) {
	q := &mockQueue{}
	q.On("Enqueue", jobs.TypeRecalculateStatistics).Return(nil, errors.New("redis down"))

	app, _ := newTestApp(t, q)
	resp, raw := do(t, app, "PUT", "/attendance-data", test.Grades(map[string][]string{"G1": {"late"}}))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodePublish(t, raw).Statistics.TotalLate)
}

func TestPutAttendanceDataValidation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp, _ := do(t, app, "PUT", "/attendance-data", "[")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "PUT", "/attendance-data", `{"gradeData":{"":[{"status":"present"}]}}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPutUserData(t *testing.T) {
	app, s := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, store.KeyUserData, `{"username":"somchai","classroom":"M.4/2"}`))

	resp, _ := do(t, app, "PUT", "/user-data", `{"attendanceRate":101}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "PUT", "/user-data", `{"role":"janitor"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "PUT", "/user-data", `{"attendedDays":0,"attendanceRate":95}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _, err := s.Get(ctx, store.KeyUserData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"somchai","classroom":"M.4/2","attendedDays":0,"attendanceRate":95}`, raw)
}

func TestPutUserDataNullClearsField(t *testing.T) {
	app, s := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, store.KeyUserData, `{"username":"somchai","attendedDays":12,"attendanceRate":95}`))

	resp, _ := do(t, app, "PUT", "/user-data", `{"attendanceRate":null,"lateDays":1}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _, err := s.Get(ctx, store.KeyUserData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"somchai","attendedDays":12,"lateDays":1}`, raw)
}

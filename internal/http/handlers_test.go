package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/session-scheduler/internal/application"
	schedulerhttp "github.com/example/session-scheduler/internal/http"
	"github.com/example/session-scheduler/internal/metrics"
	"github.com/example/session-scheduler/internal/persistence/memory"
	"github.com/example/session-scheduler/internal/scheduler"
	"github.com/example/session-scheduler/internal/testfixtures"
)

type apiHarness struct {
	t      *testing.T
	engine *gin.Engine
	apiKey string
}

func newAPIHarness(t *testing.T, apiKeyHash string) *apiHarness {
	t.Helper()

	ctx := context.Background()
	store := memory.New()
	require.NoError(t, testfixtures.SeedAvailability(ctx, store,
		testfixtures.WorkdayRule("M1", time.Monday, "09:00", "17:00", 0),
		testfixtures.WorkdayRule("M2", time.Monday, "09:00", "17:00", 0),
	))

	factory := testfixtures.NewServiceFactory()
	services := factory.NewServices(t, store)
	collector := metrics.New()

	requests, sessions, members := schedulerhttp.HandlersFor(services, factory.Logger)
	engine := schedulerhttp.NewRouter(schedulerhttp.RouterConfig{
		Requests:       requests,
		Sessions:       sessions,
		Members:        members,
		Metrics:        collector,
		MetricsHandler: collector.Handler(),
		APIKeyHash:     apiKeyHash,
		Logger:         factory.Logger,
	})
	return &apiHarness{t: t, engine: engine}
}

func (h *apiHarness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.apiKey != "" {
		req.Header.Set("X-API-Key", h.apiKey)
	}
	recorder := httptest.NewRecorder()
	h.engine.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out), recorder.Body.String())
	return out
}

type requestEnvelope struct {
	Request struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		Date       string `json:"date"`
		Time       string `json:"time"`
		AssignedTo *struct {
			ID string `json:"id"`
		} `json:"assigned_to"`
		History []struct {
			To string `json:"to"`
		} `json:"history"`
	} `json:"request"`
}

type sessionEnvelope struct {
	Session struct {
		ID              string `json:"id"`
		RequestID       string `json:"request_id"`
		Date            string `json:"date"`
		Time            string `json:"time"`
		DurationMinutes int    `json:"duration_minutes"`
		Status          string `json:"status"`
		MeetingLink     string `json:"meeting_link"`
		RecordingURL    string `json:"recording_url"`
	} `json:"session"`
}

type errorEnvelope struct {
	ErrorCode          string            `json:"error_code"`
	Message            string            `json:"message"`
	Errors             map[string]string `json:"errors"`
	ConflictingSession *struct {
		ID string `json:"id"`
	} `json:"conflicting_session"`
}

type slotsEnvelope struct {
	MemberID string   `json:"member_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

func submitBody(at, kind string) map[string]string {
	return map[string]string{
		"name":  "Ada Lovelace",
		"email": "ada@example.com",
		"date":  testfixtures.Monday.String(),
		"time":  at,
		"type":  kind,
	}
}

func (h *apiHarness) submit(at, kind string) string {
	h.t.Helper()
	recorder := h.do(http.MethodPost, "/requests", submitBody(at, kind))
	require.Equal(h.t, http.StatusCreated, recorder.Code, recorder.Body.String())
	return decode[requestEnvelope](h.t, recorder).Request.ID
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	id := api.submit("10:00", "individual")

	recorder := api.do(http.MethodPost, "/requests/"+id+"/confirm", map[string]string{"member_id": "M1", "member_name": "Mina"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	confirmed := decode[requestEnvelope](t, recorder)
	assert.Equal(t, "confirmed", confirmed.Request.Status)
	require.NotNil(t, confirmed.Request.AssignedTo)
	assert.Equal(t, "M1", confirmed.Request.AssignedTo.ID)

	recorder = api.do(http.MethodGet, "/requests/"+id+"/session", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	session := decode[sessionEnvelope](t, recorder).Session
	assert.Equal(t, id, session.RequestID)
	assert.Equal(t, "10:00", session.Time)
	assert.Equal(t, 60, session.DurationMinutes)
	assert.NotEmpty(t, session.MeetingLink)

	recorder = api.do(http.MethodPost, "/requests/"+id+"/reschedule", map[string]string{"date": testfixtures.Monday.String(), "time": "2:00 PM"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "rescheduled", decode[requestEnvelope](t, recorder).Request.Status)

	recorder = api.do(http.MethodGet, "/sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "14:00", decode[sessionEnvelope](t, recorder).Session.Time)

	recorder = api.do(http.MethodPost, "/requests/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "completed", decode[requestEnvelope](t, recorder).Request.Status)

	recorder = api.do(http.MethodPost, "/requests/"+id+"/cancel", map[string]string{"reason": "too late"})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorEnvelope](t, recorder).ErrorCode)

	recorder = api.do(http.MethodGet, "/requests/"+id, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "completed", decode[requestEnvelope](t, recorder).Request.Status)
}

func TestConfirmConflictReturnsBlockingSession(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	first := api.submit("10:00", "individual")
	second := api.submit("10:30", "individual")

	recorder := api.do(http.MethodPost, "/requests/"+first+"/confirm", map[string]string{"member_id": "M1"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = api.do(http.MethodPost, "/requests/"+second+"/confirm", map[string]string{"member_id": "M1"})
	require.Equal(t, http.StatusConflict, recorder.Code, recorder.Body.String())
	body := decode[errorEnvelope](t, recorder)
	assert.Equal(t, "BOOKING_CONFLICT", body.ErrorCode)
	require.NotNil(t, body.ConflictingSession)

	recorder = api.do(http.MethodGet, "/requests/"+second, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "pending", decode[requestEnvelope](t, recorder).Request.Status)

	recorder = api.do(http.MethodPost, "/requests/"+second+"/confirm", map[string]string{"member_id": "M2"})
	assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestSlotsReflectBookings(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	path := "/members/M1/slots?date=" + testfixtures.Monday.String()
	recorder := api.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	before := decode[slotsEnvelope](t, recorder)
	assert.Equal(t, "M1", before.MemberID)
	assert.Len(t, before.Slots, 8)

	id := api.submit("10:00", "individual")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/requests/"+id+"/confirm", map[string]string{"member_id": "M1"}).Code)

	after := decode[slotsEnvelope](t, api.do(http.MethodGet, path, nil))
	assert.Len(t, after.Slots, 7)
	assert.NotContains(t, after.Slots, "10:00 AM")

	recorder = api.do(http.MethodGet, "/members/M9/slots?date="+testfixtures.Monday.String(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotNil(t, decode[slotsEnvelope](t, recorder).Slots)
	assert.Empty(t, decode[slotsEnvelope](t, recorder).Slots)

	recorder = api.do(http.MethodGet, "/members/M1/slots", nil)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "日付は必須です。", decode[errorEnvelope](t, recorder).Errors["date"])
}

func TestAvailabilityEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	recorder := api.do(http.MethodPut, "/members/M3/availability/2", map[string]any{
		"member_name":          "Mika",
		"start_time":           "10:00",
		"end_time":             "12:00",
		"max_sessions_per_day": 1,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = api.do(http.MethodGet, "/members/M3/availability", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	list := decode[struct {
		Availability []struct {
			DayOfWeek   int    `json:"day_of_week"`
			StartTime   string `json:"start_time"`
			IsAvailable bool   `json:"is_available"`
		} `json:"availability"`
	}](t, recorder)
	require.Len(t, list.Availability, 1)
	assert.Equal(t, int(time.Tuesday), list.Availability[0].DayOfWeek)
	assert.Equal(t, "10:00", list.Availability[0].StartTime)
	assert.True(t, list.Availability[0].IsAvailable)

	recorder = api.do(http.MethodPut, "/members/M3/availability/9", map[string]any{"start_time": "10:00", "end_time": "12:00"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = api.do(http.MethodPut, "/members/M3/availability/2", map[string]any{"start_time": "12:00", "end_time": "10:00"})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, decode[errorEnvelope](t, recorder).Errors, "end_time")
}

func TestRequestValidationOverHTTP(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	t.Run("binding errors use json field names", func(t *testing.T) {
		body := submitBody("10:00", "individual")
		body["email"] = "not-an-email"
		recorder := api.do(http.MethodPost, "/requests", body)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, decode[errorEnvelope](t, recorder).Errors, "email")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		api.engine.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unknown session type", func(t *testing.T) {
		recorder := api.do(http.MethodPost, "/requests", submitBody("10:00", "workshop"))
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Equal(t, "セッション種別が不正です。", decode[errorEnvelope](t, recorder).Errors["type"])
	})

	t.Run("unknown request", func(t *testing.T) {
		recorder := api.do(http.MethodPost, "/requests/missing/confirm", map[string]string{"member_id": "M1"})
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		recorder := api.do(http.MethodGet, "/requests?status=archived", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("bad reschedule target", func(t *testing.T) {
		id := api.submit("11:00", "individual")
		recorder := api.do(http.MethodPost, "/requests/"+id+"/reschedule", map[string]string{"date": "06/03/2024", "time": "25:99"})
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		errs := decode[errorEnvelope](t, recorder).Errors
		assert.Contains(t, errs, "date")
		assert.Contains(t, errs, "time")
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")

	id := api.submit("09:00", "couple")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/requests/"+id+"/confirm", map[string]string{"member_id": "M1"}).Code)
	session := decode[sessionEnvelope](t, api.do(http.MethodGet, "/requests/"+id+"/session", nil)).Session
	assert.Equal(t, 90, session.DurationMinutes)

	recorder := api.do(http.MethodGet, "/sessions?date="+testfixtures.Monday.String(), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	byDate := decode[struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}](t, recorder)
	require.Len(t, byDate.Sessions, 1)
	assert.Equal(t, session.ID, byDate.Sessions[0].ID)

	recorder = api.do(http.MethodGet, "/sessions?member_id=M2", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"sessions":[]}`, recorder.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodGet, "/sessions", nil).Code)

	recorder = api.do(http.MethodPut, "/sessions/"+session.ID+"/recording", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = api.do(http.MethodPut, "/sessions/"+session.ID+"/recording", map[string]string{"url": "https://video.example.com/r/1"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "https://video.example.com/r/1", decode[sessionEnvelope](t, recorder).Session.RecordingURL)

	recorder = api.do(http.MethodPost, "/sessions/"+session.ID+"/status", map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = api.do(http.MethodPost, "/sessions/"+session.ID+"/status", map[string]string{"status": string(scheduler.SessionInProgress)})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "in-progress", decode[sessionEnvelope](t, recorder).Session.Status)

	recorder = api.do(http.MethodPost, "/sessions/"+session.ID+"/status", map[string]string{"status": string(scheduler.SessionScheduled)})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/sessions/missing", nil).Code)
}

func TestRespondEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPIHarness(t, "")
	id := api.submit("13:00", "initial")

	recorder := api.do(http.MethodPut, "/requests/"+id+"/response", map[string]string{})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, decode[errorEnvelope](t, recorder).Errors, "message")

	recorder = api.do(http.MethodPut, "/requests/"+id+"/response", map[string]string{"message": "See you Monday"})
	assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestAPIKeyProtectsRoutesButNotProbes(t *testing.T) {
	t.Parallel()

	hash, err := application.HashAPIKey("s3cret", application.Argon2idParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16,
	})
	require.NoError(t, err)
	api := newAPIHarness(t, hash)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/requests", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", nil).Code)

	recorder := api.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "scheduler_http_requests_total")

	api.apiKey = "s3cret"
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/requests", nil).Code)
}

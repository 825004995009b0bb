package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/meigsy/shift/internal/auth"
	"github.com/meigsy/shift/internal/dedup"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/internal/repository/mock"
	"github.com/meigsy/shift/internal/service"
	"github.com/meigsy/shift/pkg/telemetry"
)

// stubVerifier accepts exactly one token and maps it to one user.
type stubVerifier struct {
	token  string
	userID string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if token != s.token {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return auth.Identity{UserID: s.userID}, nil
}

type alwaysClaimStore struct{}

func (alwaysClaimStore) Claim(_ context.Context, _ string, meta dedup.ClaimMetadata) (bool, dedup.ClaimMetadata, error) {
	return true, meta, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishWatchEvent(context.Context, events.WatchEventTrigger) error { return nil }
func (noopPublisher) PublishStateEstimate(context.Context, events.StateEstimateEvent) error {
	return nil
}

// newTestServer wires a gateway echo instance over a mock querier, with
// "valid-token" resolving to user u1.
func newTestServer(t *testing.T, q db.Querier) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)
	defects := telemetry.NewDefectCounter(logger)

	e := echo.New()
	authMW := BearerAuth(&stubVerifier{token: "valid-token", userID: "u1"}, logger)

	NewHealthHandler().Register(e)
	NewIngestHandler(service.NewIngestionService(q, alwaysClaimStore{}, noopPublisher{}, defects, logger), logger).Register(e, authMW)
	NewInteractionHandler(service.NewInteractionService(q, defects, logger), logger).Register(e, authMW)
	NewContextHandler(service.NewContextService(q, defects, logger), logger).Register(e, authMW)
	NewAccountHandler(service.NewAccountService(q, logger), logger).Register(e, authMW)
	return e
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingBearerIs401(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodGet, "/context", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidTokenIs401(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodGet, "/context", "forged-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitBatchAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().InsertWatchEventBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertWatchEventBatchParams) error {
			assert.Equal(t, "u1", arg.UserID)
			return nil
		})
	e := newTestServer(t, q)

	body := `{"heartRate":[{"value":72}],"fetchedAt":"2026-08-20T07:30:00Z","trace_id":"trace-1"}`
	rec := doJSON(e, http.MethodPost, "/watch_events", "valid-token", body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Health data received"`)
	assert.Contains(t, rec.Body.String(), `"samples_received":1`)
	assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)
}

func TestSubmitBatchMissingFetchedAtIs400(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodPost, "/watch_events", "valid-token", `{"heartRate":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordInteractionUserMismatchIs403(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	body := `{"user_id":"someone-else","event_type":"shown"}`
	rec := doJSON(e, http.MethodPost, "/app_interactions", "valid-token", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecordInteractionCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().InsertAppInteraction(gomock.Any(), gomock.Any()).Return(nil)
	e := newTestServer(t, q)

	body := `{"event_type":"shown","trace_id":"trace-1","timestamp":"2026-08-20T07:31:00Z"}`
	rec := doJSON(e, http.MethodPost, "/app_interactions", "valid-token", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"recorded"`)
	assert.Regexp(t, `"interaction_id":"[0-9a-f-]{36}"`, rec.Body.String())
}

func TestResetUnknownScopeIs400(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodPost, "/user/reset", "valid-token", `{"scope":"everything"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDefaultsToAllScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().InsertAppInteraction(gomock.Any(), gomock.Any()).Return(nil)
	e := newTestServer(t, q)

	rec := doJSON(e, http.MethodPost, "/user/reset", "valid-token", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scope":"all"`)
	assert.Regexp(t, `"interaction_id":"[0-9a-f-]{36}"`, rec.Body.String())
}

func TestGetContextWireKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").Return(db.StateEstimate{
		UserID:    "u1",
		Timestamp: time.Now().UTC(),
		TraceID:   "trace-1",
	}, nil)
	q.EXPECT().HasCompletedFlow(gomock.Any(), gomock.Any()).Return(true, nil)
	q.EXPECT().HasRecentFlowRequest(gomock.Any(), gomock.Any()).Return(false, nil)
	q.EXPECT().ListCreatedInterventions(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().ListSavedInterventionKeys(gomock.Any(), "u1").Return(nil, nil)
	e := newTestServer(t, q)

	rec := doJSON(e, http.MethodGet, "/context", "valid-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state_estimate":`)
	assert.Contains(t, rec.Body.String(), `"interventions":[]`)
	assert.Contains(t, rec.Body.String(), `"saved_interventions":[]`)
}

func TestGetMeUnknownUserIs404(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().GetUser(gomock.Any(), "u1").Return(db.User{}, pgx.ErrNoRows)
	e := newTestServer(t, q)

	rec := doJSON(e, http.MethodGet, "/me", "valid-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterDeviceMissingTokenIs400(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newTestServer(t, mock.NewMockQuerier(ctrl))

	rec := doJSON(e, http.MethodPost, "/devices", "valid-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDeviceOK(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)
	q.EXPECT().UpsertDeviceToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.UpsertDeviceTokenParams) error {
			assert.Equal(t, "u1", arg.UserID)
			assert.Equal(t, "apns-token", arg.DeviceToken)
			assert.WithinDuration(t, time.Now().UTC(), arg.UpdatedAt, 5*time.Second)
			return nil
		})
	e := newTestServer(t, q)

	rec := doJSON(e, http.MethodPost, "/devices", "valid-token", `{"device_token":"apns-token"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

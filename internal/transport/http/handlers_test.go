package httpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymnotifier/internal/entity"
	"gymnotifier/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubService answers each method via an optional function field, with
// zero-value fallbacks.
type stubService struct {
	list             func(ctx context.Context, userID uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error)
	unreadCount      func(ctx context.Context, userID uuid.UUID) (int64, error)
	dispatch         func(ctx context.Context, req service.DispatchRequest) (*service.DispatchResult, error)
	markRead         func(ctx context.Context, id uuid.UUID) error
	markAllRead      func(ctx context.Context, userID uuid.UUID) (int64, error)
	markClicked      func(ctx context.Context, id uuid.UUID) error
	markUnsubscribed func(ctx context.Context, id uuid.UUID) error
	delete           func(ctx context.Context, id uuid.UUID) error
	recipientStats   func(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error)
	globalStats      func(ctx context.Context) (*entity.CampaignStats, error)
	recentActivity   func(ctx context.Context, limit int) ([]entity.ActivityEntry, error)
	segments         func(ctx context.Context) ([]service.SegmentInfo, error)
}

func (s *stubService) List(ctx context.Context, userID uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error) {
	if s.list != nil {
		return s.list(ctx, userID, page, limit)
	}
	return nil, 0, nil
}

func (s *stubService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.unreadCount != nil {
		return s.unreadCount(ctx, userID)
	}
	return 0, nil
}

func (s *stubService) Dispatch(ctx context.Context, req service.DispatchRequest) (*service.DispatchResult, error) {
	if s.dispatch != nil {
		return s.dispatch(ctx, req)
	}
	return &service.DispatchResult{}, nil
}

func (s *stubService) MarkRead(ctx context.Context, id uuid.UUID) error {
	if s.markRead != nil {
		return s.markRead(ctx, id)
	}
	return nil
}

func (s *stubService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllRead != nil {
		return s.markAllRead(ctx, userID)
	}
	return 0, nil
}

func (s *stubService) MarkClicked(ctx context.Context, id uuid.UUID) error {
	if s.markClicked != nil {
		return s.markClicked(ctx, id)
	}
	return nil
}

func (s *stubService) MarkUnsubscribed(ctx context.Context, id uuid.UUID) error {
	if s.markUnsubscribed != nil {
		return s.markUnsubscribed(ctx, id)
	}
	return nil
}

func (s *stubService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.delete != nil {
		return s.delete(ctx, id)
	}
	return nil
}

func (s *stubService) RecipientStats(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error) {
	if s.recipientStats != nil {
		return s.recipientStats(ctx, userID)
	}
	return &entity.RecipientStats{}, nil
}

func (s *stubService) GlobalStats(ctx context.Context) (*entity.CampaignStats, error) {
	if s.globalStats != nil {
		return s.globalStats(ctx)
	}
	return &entity.CampaignStats{}, nil
}

func (s *stubService) RecentActivity(ctx context.Context, limit int) ([]entity.ActivityEntry, error) {
	if s.recentActivity != nil {
		return s.recentActivity(ctx, limit)
	}
	return nil, nil
}

func (s *stubService) Segments(ctx context.Context) ([]service.SegmentInfo, error) {
	if s.segments != nil {
		return s.segments(ctx)
	}
	return nil, nil
}

func (s *stubService) Templates() []entity.Template {
	return []entity.Template{{ID: "welcome", Name: "Welcome", Title: "Welcome!", Type: entity.TypeSuccess}}
}

func newTestRouter(t *testing.T, svc NotificationService, checks map[string]HealthCheck) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewNotifyHandler(svc, checks, zap.NewNop()).Engine()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListNotifications(t *testing.T) {
	userID := uuid.New()
	svc := &stubService{
		list: func(_ context.Context, gotUser uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, uint64(2), page)
			assert.Equal(t, uint64(10), limit)
			return []entity.Notification{{ID: uuid.New(), UserID: gotUser, Title: "Hello"}}, 25, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/notifications/"+userID.String()+"?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Notifications, 1)
	assert.Equal(t, int64(25), resp.Total)
	assert.Equal(t, uint64(2), resp.Page)
	assert.Equal(t, uint64(3), resp.Pages)
}

func TestListNotificationsBadUUID(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/notifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnreadCount(t *testing.T) {
	svc := &stubService{
		unreadCount: func(context.Context, uuid.UUID) (int64, error) { return 4, nil },
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/notifications/"+uuid.NewString()+"/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unreadCount":4}`, rec.Body.String())
}

func TestCreateNotification(t *testing.T) {
	svc := &stubService{
		dispatch: func(_ context.Context, req service.DispatchRequest) (*service.DispatchResult, error) {
			require.Len(t, req.UserIDs, 1)
			return &service.DispatchResult{CampaignID: "c-1", Created: 1}, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/notifications", gin.H{
		"user":    uuid.NewString(),
		"title":   "Welcome aboard",
		"message": "Your membership is active.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result service.DispatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.Created)
}

func TestCreateNotificationBindingRejected(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing user", gin.H{"title": "Hello you", "message": "body"}},
		{"short title", gin.H{"user": uuid.NewString(), "title": "ab", "message": "body"}},
		{"missing message", gin.H{"user": uuid.NewString(), "title": "Hello you"}},
		{"user not a uuid", gin.H{"user": "42", "title": "Hello you", "message": "body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatched := false
			svc := &stubService{
				dispatch: func(context.Context, service.DispatchRequest) (*service.DispatchResult, error) {
					dispatched = true
					return nil, nil
				},
			}
			router := newTestRouter(t, svc, nil)

			rec := doJSON(t, router, http.MethodPost, "/api/v1/notifications", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, dispatched, "binding failures never reach the engine")
		})
	}
}

func TestBulkSendEmptyUsersRejected(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/notifications/bulk", gin.H{
		"users":   []string{},
		"title":   "Hello you",
		"message": "body",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendToSegmentStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"unknown segment", entity.ErrInvalidSegment, http.StatusBadRequest},
		{"empty segment", entity.ErrEmptySegment, http.StatusNotFound},
		{"validation", entity.ErrInvalidData, http.StatusBadRequest},
		{"storage failure", fmt.Errorf("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				dispatch: func(context.Context, service.DispatchRequest) (*service.DispatchResult, error) {
					return nil, fmt.Errorf("service.NotifyService.Dispatch: %w", tt.serviceErr)
				},
			}
			router := newTestRouter(t, svc, nil)

			rec := doJSON(t, router, http.MethodPost, "/api/v1/send-to-segment", gin.H{
				"segment": "vip",
				"title":   "Hello you",
				"message": "body",
			})
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestMarkReadNotFound(t *testing.T) {
	svc := &stubService{
		markRead: func(context.Context, uuid.UUID) error {
			return fmt.Errorf("service.NotifyService.MarkRead: %w", entity.ErrDataNotFound)
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/notifications/"+uuid.NewString()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAllRead(t *testing.T) {
	svc := &stubService{
		markAllRead: func(context.Context, uuid.UUID) (int64, error) { return 6, nil },
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/notifications/"+uuid.NewString()+"/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":6}`, rec.Body.String())
}

func TestDeleteNotification(t *testing.T) {
	svc := &stubService{
		delete: func(context.Context, uuid.UUID) error { return nil },
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/notifications/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobalStats(t *testing.T) {
	svc := &stubService{
		globalStats: func(context.Context) (*entity.CampaignStats, error) {
			return &entity.CampaignStats{Sent: 10, Opened: 5, OpenRate: 50}, nil
		},
	}
	router := newTestRouter(t, svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/global-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats entity.CampaignStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(50), stats.OpenRate)
}

func TestActivityFeedEmptyIsArray(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/activity-feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestTemplates(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var templates []entity.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	require.Len(t, templates, 1)
	assert.Equal(t, "welcome", templates[0].ID)
}

func TestSystemHealth(t *testing.T) {
	healthy := map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	}
	router := newTestRouter(t, &stubService{}, healthy)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/system-health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return fmt.Errorf("connection refused") },
	}
	router = newTestRouter(t, &stubService{}, degraded)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/system-health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

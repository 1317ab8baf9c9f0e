package httpt

import (
	"context"
	"net/http"
	"strconv"

	"gymnotifier/internal/entity"
	"gymnotifier/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService is what the transport needs from the engine.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Dispatch(ctx context.Context, req service.DispatchRequest) (*service.DispatchResult, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkClicked(ctx context.Context, id uuid.UUID) error
	MarkUnsubscribed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecipientStats(ctx context.Context, userID uuid.UUID) (*entity.RecipientStats, error)
	GlobalStats(ctx context.Context) (*entity.CampaignStats, error)
	RecentActivity(ctx context.Context, limit int) ([]entity.ActivityEntry, error)
	Segments(ctx context.Context) ([]service.SegmentInfo, error)
	Templates() []entity.Template
}

// HealthCheck pings one dependency for /system-health.
type HealthCheck func(ctx context.Context) error

type NotifyHandler struct {
	svc    NotificationService
	checks map[string]HealthCheck
	log    *zap.Logger
	router *gin.Engine
}

func NewNotifyHandler(svc NotificationService, checks map[string]HealthCheck, log *zap.Logger) *NotifyHandler {
	h := &NotifyHandler{
		svc:    svc,
		checks: checks,
		log:    log,
	}

	router := gin.New()
	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.Recovery())

	h.router = router
	h.setupRoutes()

	return h
}

func (h *NotifyHandler) Engine() *gin.Engine {
	return h.router
}

// @Summary List a recipient's notifications
// @Tags Notifications
// @Produce json
// @Param id path string true "Recipient id"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} httpt.listResponse
// @Failure 400 {object} httpt.errorResponse
// @Router /api/v1/notifications/{id} [get]
func (h *NotifyHandler) listNotifications(c *gin.Context) {
	const op = "transport.http.listNotifications"

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	page := parseQueryUint(c, "page", 1)
	limit := parseQueryUint(c, "limit", 20)

	notifications, total, err := h.svc.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	if notifications == nil {
		notifications = []entity.Notification{}
	}

	pages := uint64(0)
	if limit > 0 {
		pages = (uint64(total) + limit - 1) / limit
	}

	c.JSON(http.StatusOK, listResponse{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		Pages:         pages,
	})
}

// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Param id path string true "Recipient id"
// @Success 200 {object} map[string]int64
// @Router /api/v1/notifications/{id}/unread-count [get]
func (h *NotifyHandler) unreadCount(c *gin.Context) {
	const op = "transport.http.unreadCount"

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// @Summary Create a single notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body httpt.createNotificationRequest true "Notification"
// @Success 201 {object} service.DispatchResult
// @Failure 400 {object} httpt.errorResponse
// @Router /api/v1/notifications [post]
func (h *NotifyHandler) createNotification(c *gin.Context) {
	const op = "transport.http.createNotification"

	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	userID, err := uuid.Parse(req.User)
	if err != nil {
		h.respondInvalidUUID(c, "user")
		return
	}

	result, err := h.svc.Dispatch(c.Request.Context(), service.DispatchRequest{
		UserIDs:     []uuid.UUID{userID},
		Title:       req.Title,
		Message:     req.Message,
		Type:        entity.Type(req.Type),
		Priority:    entity.Priority(req.Priority),
		Channels:    toChannels(req.Channels),
		Link:        req.Link,
		Segment:     entity.Segment(req.Segment),
		ScheduledAt: req.Schedule,
		Template:    req.Template,
		Campaign:    req.Campaign,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary Send to an explicit recipient list
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body httpt.bulkSendRequest true "Bulk send"
// @Success 201 {object} service.DispatchResult
// @Failure 400 {object} httpt.errorResponse
// @Router /api/v1/notifications/bulk [post]
func (h *NotifyHandler) bulkSend(c *gin.Context) {
	const op = "transport.http.bulkSend"

	var req bulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	userIDs := make([]uuid.UUID, 0, len(req.Users))
	for _, raw := range req.Users {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondInvalidUUID(c, "users")
			return
		}
		userIDs = append(userIDs, id)
	}

	result, err := h.svc.Dispatch(c.Request.Context(), service.DispatchRequest{
		UserIDs:     userIDs,
		Title:       req.Title,
		Message:     req.Message,
		Type:        entity.Type(req.Type),
		Priority:    entity.Priority(req.Priority),
		Channels:    toChannels(req.Channels),
		Link:        req.Link,
		ScheduledAt: req.Schedule,
		Template:    req.Template,
		Campaign:    req.Campaign,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary Dispatch a campaign to a named segment
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body httpt.segmentSendRequest true "Segment send"
// @Success 201 {object} service.DispatchResult
// @Failure 400 {object} httpt.errorResponse
// @Failure 404 {object} httpt.errorResponse
// @Router /api/v1/send-to-segment [post]
func (h *NotifyHandler) sendToSegment(c *gin.Context) {
	const op = "transport.http.sendToSegment"

	var req segmentSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.svc.Dispatch(c.Request.Context(), service.DispatchRequest{
		Segment:     entity.Segment(req.Segment),
		Title:       req.Title,
		Message:     req.Message,
		Type:        entity.Type(req.Type),
		Priority:    entity.Priority(req.Priority),
		Channels:    toChannels(req.Channels),
		Link:        req.Link,
		ScheduledAt: req.Schedule,
		Template:    req.Template,
		Campaign:    req.Campaign,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary Mark one notification read
// @Tags Notifications
// @Param id path string true "Notification id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httpt.errorResponse
// @Router /api/v1/notifications/{id}/read [put]
func (h *NotifyHandler) markRead(c *gin.Context) {
	const op = "transport.http.markRead"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// @Summary Mark all notifications read for a recipient
// @Tags Notifications
// @Param id path string true "Recipient id"
// @Success 200 {object} map[string]int64
// @Router /api/v1/notifications/{id}/read-all [put]
func (h *NotifyHandler) markAllRead(c *gin.Context) {
	const op = "transport.http.markAllRead"

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *NotifyHandler) markClicked(c *gin.Context) {
	const op = "transport.http.markClicked"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	if err := h.svc.MarkClicked(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Click recorded"})
}

func (h *NotifyHandler) unsubscribe(c *gin.Context) {
	const op = "transport.http.unsubscribe"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	if err := h.svc.MarkUnsubscribed(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribe recorded"})
}

// @Summary Delete a notification
// @Tags Notifications
// @Param id path string true "Notification id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httpt.errorResponse
// @Router /api/v1/notifications/{id} [delete]
func (h *NotifyHandler) deleteNotification(c *gin.Context) {
	const op = "transport.http.deleteNotification"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// @Summary Per-recipient notification stats
// @Tags Stats
// @Produce json
// @Param id path string true "Recipient id"
// @Success 200 {object} entity.RecipientStats
// @Router /api/v1/notifications/{id}/stats [get]
func (h *NotifyHandler) recipientStats(c *gin.Context) {
	const op = "transport.http.recipientStats"

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondInvalidUUID(c, "id")
		return
	}

	stats, err := h.svc.RecipientStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Global campaign stats
// @Tags Stats
// @Produce json
// @Success 200 {object} entity.CampaignStats
// @Router /api/v1/global-stats [get]
func (h *NotifyHandler) globalStats(c *gin.Context) {
	const op = "transport.http.globalStats"

	stats, err := h.svc.GlobalStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Recent delivery activity feed
// @Tags Stats
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {array} entity.ActivityEntry
// @Router /api/v1/activity-feed [get]
func (h *NotifyHandler) activityFeed(c *gin.Context) {
	const op = "transport.http.activityFeed"

	limit := int(parseQueryUint(c, "limit", 20))

	entries, err := h.svc.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	if entries == nil {
		entries = []entity.ActivityEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

func (h *NotifyHandler) templates(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Templates())
}

func (h *NotifyHandler) segments(c *gin.Context) {
	const op = "transport.http.segments"

	infos, err := h.svc.Segments(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, infos)
}

func (h *NotifyHandler) systemHealth(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":     map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"components": components,
	})
}

func (h *NotifyHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseQueryUint(c *gin.Context, name string, fallback uint64) uint64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || val == 0 {
		return fallback
	}
	return val
}

package httpt

import (
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Gym Campaign & Notification API
// @version         1.0
// @description     Campaign dispatch, delivery tracking and analytics for the gym back office
// @BasePath        /api/v1
func (h *NotifyHandler) setupRoutes() {
	h.router.GET("/health", h.health)
	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := h.router.Group("/api/v1")
	{
		api.GET("/notifications/:id", h.listNotifications)
		api.GET("/notifications/:id/unread-count", h.unreadCount)
		api.GET("/notifications/:id/stats", h.recipientStats)
		api.POST("/notifications", h.createNotification)
		api.POST("/notifications/bulk", h.bulkSend)
		api.PUT("/notifications/:id/read", h.markRead)
		api.PUT("/notifications/:id/read-all", h.markAllRead)
		api.PUT("/notifications/:id/clicked", h.markClicked)
		api.PUT("/notifications/:id/unsubscribe", h.unsubscribe)
		api.DELETE("/notifications/:id", h.deleteNotification)

		api.POST("/send-to-segment", h.sendToSegment)
		api.GET("/global-stats", h.globalStats)
		api.GET("/activity-feed", h.activityFeed)

		api.GET("/templates", h.templates)
		api.GET("/segments", h.segments)
		api.GET("/system-health", h.systemHealth)
	}
}

package handlers

import (
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the authenticated user's notifications
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications returns a page of notifications, newest first
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	page, limit := pagination(c)
	user := middleware.CurrentUser(c)

	items, total, err := h.notifications.List(c.Request.Context(), user.ID, page, limit)
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetUnreadCount returns how many notifications are unread
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead marks one notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, middleware.CurrentUser(c).ID); err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every notification read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/models"
	"linkvault/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DashboardHandler handles dashboard-related requests
type DashboardHandler struct {
	db            *gorm.DB
	notifications *service.NotificationService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(db *gorm.DB, notifications *service.NotificationService) *DashboardHandler {
	return &DashboardHandler{db: db, notifications: notifications}
}

// GetDashboard returns dashboard data for the authenticated user
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUser(c).ID

	// Get user stats
	var bookmarkCount, commentCount int64
	if err := h.db.WithContext(ctx).Model(&models.Bookmark{}).Where("user_id = ?", userID).Count(&bookmarkCount).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to count bookmarks", err))
		return
	}
	if err := h.db.WithContext(ctx).Model(&models.Comment{}).
		Where("user_id = ? AND deleted = ?", userID, false).Count(&commentCount).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to count comments", err))
		return
	}

	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	// Bookmarks with the liveliest threads
	var active []models.Bookmark
	if err := h.db.WithContext(ctx).Preload("User").
		Where("comment_count > 0").
		Order("comment_count DESC, updated_at DESC").
		Limit(10).Find(&active).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to fetch bookmarks", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_stats": gin.H{
			"bookmark_count":       bookmarkCount,
			"comment_count":        commentCount,
			"unread_notifications": unread,
		},
		"active_bookmarks": active,
	})
}

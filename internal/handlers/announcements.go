package handlers

import (
	"errors"
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AnnouncementHandler handles announcement-related requests
type AnnouncementHandler struct {
	db *gorm.DB
}

// NewAnnouncementHandler creates a new AnnouncementHandler
func NewAnnouncementHandler(db *gorm.DB) *AnnouncementHandler {
	return &AnnouncementHandler{db: db}
}

// GetAnnouncements returns paginated announcements, newest first
func (h *AnnouncementHandler) GetAnnouncements(c *gin.Context) {
	page, limit := pagination(c)

	var announcements []models.Announcement
	var total int64
	query := h.db.WithContext(c.Request.Context()).Model(&models.Announcement{})

	if err := query.Count(&total).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to count announcements", err))
		return
	}
	if err := query.Preload("Author").Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).Find(&announcements).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to fetch announcements", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"announcements": announcements,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetAnnouncement returns a single announcement by ID
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	var announcement models.Announcement
	if err := h.db.WithContext(c.Request.Context()).Preload("Author").First(&announcement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperror.HandleError(c, apperror.New(apperror.ErrEntityNotFound, "announcement not found"))
			return
		}
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to fetch announcement", err))
		return
	}

	c.JSON(http.StatusOK, announcement)
}

// CreateAnnouncement publishes an announcement (admins only)
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req models.CreateAnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	announcement := models.Announcement{
		AuthorID:       middleware.CurrentUser(c).ID,
		Title:          req.Title,
		Content:        req.Content,
		EnableComments: true,
	}
	if req.EnableComments != nil {
		announcement.EnableComments = *req.EnableComments
	}

	// Select keeps an explicit false from being replaced by the column default
	if err := h.db.WithContext(c.Request.Context()).
		Select("AuthorID", "Title", "Content", "EnableComments", "CreatedAt", "UpdatedAt").
		Create(&announcement).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to create announcement", err))
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

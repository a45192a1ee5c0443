package handlers

import (
	"errors"
	"net/http"
	"strings"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/models"
	"linkvault/internal/preview"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookmarkHandler handles bookmark-related requests
type BookmarkHandler struct {
	db      *gorm.DB
	preview *preview.Fetcher
}

// NewBookmarkHandler creates a new BookmarkHandler
func NewBookmarkHandler(db *gorm.DB, fetcher *preview.Fetcher) *BookmarkHandler {
	if fetcher == nil {
		fetcher = preview.NewFetcher(nil, true)
	}
	return &BookmarkHandler{db: db, preview: fetcher}
}

// GetBookmarks returns paginated bookmarks, newest first
func (h *BookmarkHandler) GetBookmarks(c *gin.Context) {
	page, limit := pagination(c)
	offset := (page - 1) * limit

	var bookmarks []models.Bookmark
	var total int64

	query := h.db.WithContext(c.Request.Context()).Model(&models.Bookmark{})
	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("title LIKE ? OR url LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to count bookmarks", err))
		return
	}

	if err := query.Preload("User").Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).Find(&bookmarks).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to fetch bookmarks", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookmarks": bookmarks,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetBookmark returns a single bookmark by ID
func (h *BookmarkHandler) GetBookmark(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	var bookmark models.Bookmark
	if err := h.db.WithContext(c.Request.Context()).Preload("User").First(&bookmark, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperror.HandleError(c, apperror.New(apperror.ErrEntityNotFound, "bookmark not found"))
			return
		}
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to fetch bookmark", err))
		return
	}

	c.JSON(http.StatusOK, bookmark)
}

// CreateBookmark saves a new bookmark for the authenticated user
func (h *BookmarkHandler) CreateBookmark(c *gin.Context) {
	var req models.CreateBookmarkRequest
	if !bindJSON(c, &req) {
		return
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	var favicon string
	if title == "" {
		if err := h.preview.Fill(c.Request.Context(), req.URL, &title, &description, &favicon); err != nil {
			middleware.Logger(c).Info("link preview unavailable", zap.String("url", req.URL), zap.Error(err))
		}
	}

	user := middleware.CurrentUser(c)
	bookmark := models.Bookmark{
		UserID:      user.ID,
		Title:       title,
		URL:         req.URL,
		Description: description,
		Favicon:     favicon,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&bookmark).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to create bookmark", err))
		return
	}

	h.db.WithContext(c.Request.Context()).Preload("User").First(&bookmark, bookmark.ID)
	c.JSON(http.StatusCreated, bookmark)
}

// DeleteBookmark removes a bookmark and its comment thread (owner or moderator)
func (h *BookmarkHandler) DeleteBookmark(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	var bookmark models.Bookmark
	if err := h.db.WithContext(c.Request.Context()).First(&bookmark, id).Error; err != nil {
		apperror.HandleError(c, apperror.New(apperror.ErrEntityNotFound, "bookmark not found"))
		return
	}
	if bookmark.UserID != user.ID && !user.CanModerate() {
		apperror.HandleError(c, apperror.New(apperror.ErrForbidden, "you can only delete your own bookmarks"))
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&models.Comment{}).Select("id").Where("bookmark_id = ?", id)
		if err := tx.Where("comment_id IN (?)", sub).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bookmark_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bookmark_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Bookmark{}, id).Error
	})
	if err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to delete bookmark", err))
		return
	}

	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes comment moderation to admins
type AdminHandler struct {
	comments *service.CommentService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(comments *service.CommentService) *AdminHandler {
	return &AdminHandler{comments: comments}
}

// GetComments lists every comment, deleted ones included, newest first
func (h *AdminHandler) GetComments(c *gin.Context) {
	all, err := h.comments.ListAll(c.Request.Context())
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// RestoreComment undoes a soft delete
func (h *AdminHandler) RestoreComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	if err := h.comments.Restore(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment restored"})
}

// PurgeComment permanently removes a soft-deleted comment
func (h *AdminHandler) PurgeComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	if err := h.comments.Purge(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

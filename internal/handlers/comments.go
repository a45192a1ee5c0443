package handlers

import (
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/middleware"
	"linkvault/internal/models"
	"linkvault/internal/service"

	"github.com/gin-gonic/gin"
)

// CommentHandler handles comment-related requests
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// GetThread returns the nested comment tree of a bookmark or announcement.
// The entity kind comes from the route.
func (h *CommentHandler) GetThread(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			apperror.HandleError(c, err)
			return
		}

		tree, err := h.comments.ListThread(c.Request.Context(),
			models.EntityRef{Kind: kind, ID: id}, middleware.CurrentUser(c))
		if err != nil {
			apperror.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, tree)
	}
}

// CreateComment creates a new comment or reply
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), req, middleware.CurrentUser(c))
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment replaces a comment's content
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	var req models.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), id, req.Content, middleware.CurrentUser(c))
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment soft-deletes a comment; its replies stay in place
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	if err := h.comments.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// VoteComment toggles the viewer's like or dislike
func (h *CommentHandler) VoteComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return
	}

	var req models.VoteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.comments.Vote(c.Request.Context(), id, req.VoteType, middleware.CurrentUser(c))
	if err != nil {
		apperror.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

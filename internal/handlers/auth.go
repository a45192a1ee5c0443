package handlers

import (
	"errors"
	"net/http"

	"linkvault/internal/apperror"
	"linkvault/internal/config"
	"linkvault/internal/middleware"
	"linkvault/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	ModeratorKey string `json:"moderator_key,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AppointModeratorRequest represents the appoint moderator request body
type AppointModeratorRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	// Check if user exists
	var existingUser models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", req.Username, req.Email).
		First(&existingUser).Error
	if err == nil {
		apperror.HandleError(c, apperror.New(apperror.ErrConflict, "user already exists"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to check user", err))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrInternal, "failed to hash password", err))
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}

	// A matching moderator key upgrades the account
	if req.ModeratorKey != "" && req.ModeratorKey == h.cfg.ModeratorKey {
		user.Role = models.RoleModerator
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to create user", err))
		return
	}

	h.respondWithToken(c, http.StatusCreated, &user)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", req.Username).First(&user).Error; err != nil {
		apperror.HandleError(c, apperror.New(apperror.ErrInvalidCredentials, "invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		apperror.HandleError(c, apperror.New(apperror.ErrInvalidCredentials, "invalid credentials"))
		return
	}

	h.respondWithToken(c, http.StatusOK, &user)
}

// Logout clears the browser token cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, viewer.ID).Error; err != nil {
		apperror.HandleError(c, apperror.New(apperror.ErrNotFound, "user not found"))
		return
	}
	c.JSON(http.StatusOK, userJSON(&user))
}

// AppointModerator appoints a user as moderator (admins only)
func (h *AuthHandler) AppointModerator(c *gin.Context) {
	var req AppointModeratorRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, req.UserID).Error; err != nil {
		apperror.HandleError(c, apperror.New(apperror.ErrNotFound, "user not found"))
		return
	}
	if user.Role == models.RoleAdmin {
		apperror.HandleError(c, apperror.New(apperror.ErrConflict, "user is already an admin"))
		return
	}

	user.Role = models.RoleModerator
	if err := h.db.WithContext(c.Request.Context()).Model(&user).Update("role", user.Role).Error; err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrDatabase, "failed to update user role", err))
		return
	}

	middleware.Logger(c).Info("moderator appointed")
	c.JSON(http.StatusOK, gin.H{"message": "user appointed as moderator"})
}

// respondWithToken issues a token, sets it as the browser cookie and writes it.
func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := middleware.GenerateJWT(user.ID, user.Username, user.Role)
	if err != nil {
		apperror.HandleError(c, apperror.Wrap(apperror.ErrInternal, "failed to generate token", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(middleware.TokenTTL.Seconds()), "/", "", false, true)
	c.JSON(status, gin.H{
		"token": token,
		"user":  userJSON(user),
	})
}

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
}

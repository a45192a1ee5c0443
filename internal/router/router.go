package router

import (
	"net/http"
	"time"

	"linkvault/internal/config"
	"linkvault/internal/handlers"
	"linkvault/internal/metrics"
	"linkvault/internal/middleware"
	"linkvault/internal/models"
	"linkvault/internal/preview"
	"linkvault/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup configures and returns the Gin router
func Setup(db *gorm.DB, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	middleware.SetJWTSecret(cfg)
	if err := handlers.RegisterValidators(); err != nil {
		log.Panic("register validators", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.RequestID(log), middleware.AccessLog(), middleware.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	// Services
	notifications := service.NewNotificationService(db)
	comments := service.NewCommentService(db, notifications, log, m)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	bookmarkHandler := handlers.NewBookmarkHandler(db, preview.NewFetcher(nil, cfg.PreviewAllowPrivate))
	announcementHandler := handlers.NewAnnouncementHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db, notifications)
	commentHandler := handlers.NewCommentHandler(comments)
	notificationHandler := handlers.NewNotificationHandler(notifications)
	adminHandler := handlers.NewAdminHandler(comments)
	pageHandler := handlers.NewThreadPageHandler(comments, m)

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", m.Handler())

	// API routes
	api := router.Group("/api")
	{
		// Authentication routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.AuthMiddleware(), authHandler.Me)
			auth.POST("/appoint-moderator", middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin), authHandler.AppointModerator)
		}

		// Dashboard routes (protected)
		api.GET("/dashboard", middleware.AuthMiddleware(), dashboardHandler.GetDashboard)

		// Bookmark routes
		bookmarks := api.Group("/bookmarks")
		{
			bookmarks.GET("", bookmarkHandler.GetBookmarks)
			bookmarks.GET("/:id", bookmarkHandler.GetBookmark)
			bookmarks.POST("", middleware.AuthMiddleware(), bookmarkHandler.CreateBookmark)
			bookmarks.DELETE("/:id", middleware.AuthMiddleware(), bookmarkHandler.DeleteBookmark)
		}

		// Announcement routes
		announcements := api.Group("/announcements")
		{
			announcements.GET("", announcementHandler.GetAnnouncements)
			announcements.GET("/:id", announcementHandler.GetAnnouncement)
			announcements.POST("", middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin), announcementHandler.CreateAnnouncement)
		}

		// Comments routes
		comments := api.Group("/comments")
		{
			comments.GET("/bookmark/:id", middleware.OptionalAuth(), commentHandler.GetThread(models.EntityBookmark))
			comments.GET("/announcement/:id", middleware.OptionalAuth(), commentHandler.GetThread(models.EntityAnnouncement))
			comments.POST("", middleware.AuthMiddleware(), commentHandler.CreateComment)
			comments.PUT("/:id", middleware.AuthMiddleware(), commentHandler.UpdateComment)
			comments.DELETE("/:id", middleware.AuthMiddleware(), commentHandler.DeleteComment)
			comments.POST("/:id/vote", middleware.AuthMiddleware(), commentHandler.VoteComment)
		}

		// Notification routes (protected)
		notes := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notes.GET("", notificationHandler.GetNotifications)
			notes.GET("/unread-count", notificationHandler.GetUnreadCount)
			notes.POST("/:id/read", notificationHandler.MarkRead)
			notes.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// Moderation routes
		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/comments", adminHandler.GetComments)
			admin.POST("/comments/:id/restore", adminHandler.RestoreComment)
			admin.DELETE("/comments/:id", adminHandler.PurgeComment)
		}
	}

	// Server-rendered thread pages
	for _, kind := range []models.EntityKind{models.EntityBookmark, models.EntityAnnouncement} {
		pages := router.Group("/"+string(kind)+"s/:id/comments", middleware.OptionalAuth())
		pages.GET("", pageHandler.Page(kind))
		pages.POST("/new", pageHandler.New(kind))
		pages.POST("/:cid/edit", pageHandler.Edit(kind))
		pages.POST("/:cid/delete", pageHandler.Delete(kind))
		pages.POST("/:cid/vote", pageHandler.Vote(kind))
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	c.MaxAge = 12 * time.Hour
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	} else {
		c.AllowAllOrigins = true
	}
	return c
}

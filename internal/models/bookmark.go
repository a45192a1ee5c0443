package models

import "time"

// Bookmark represents a saved link that other users can comment on
type Bookmark struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"not null" json:"title"`
	URL          string    `gorm:"not null" json:"url"`
	Description  string    `json:"description"`
	Favicon      string    `json:"favicon"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"` // live (not deleted) comments
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
}

// Announcement represents a site announcement that can carry a comment thread
type Announcement struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AuthorID       uint      `gorm:"not null" json:"author_id"`
	Title          string    `gorm:"not null" json:"title"`
	Content        string    `gorm:"not null" json:"content"`
	EnableComments bool      `gorm:"not null;default:true" json:"enable_comments"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Author         User      `gorm:"foreignKey:AuthorID" json:"author"`
}

// CreateBookmarkRequest represents the request body for creating a bookmark.
// An empty title is filled from the linked page.
type CreateBookmarkRequest struct {
	Title       string `json:"title" binding:"max=200"`
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description"`
}

// CreateAnnouncementRequest represents the request body for creating an announcement
type CreateAnnouncementRequest struct {
	Title          string `json:"title" binding:"required,notblank"`
	Content        string `json:"content" binding:"required,notblank"`
	EnableComments *bool  `json:"enable_comments"`
}

// EntityKind names the kind of entity a comment thread hangs off.
type EntityKind string

const (
	EntityBookmark     EntityKind = "bookmark"
	EntityAnnouncement EntityKind = "announcement"
)

// EntityRef identifies the parent entity of a comment thread.
type EntityRef struct {
	Kind EntityKind
	ID   uint
}

// ParseEntityKind accepts the path segment used by the API.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case EntityBookmark, EntityAnnouncement:
		return EntityKind(s), true
	}
	return "", false
}

package models

import "time"

// Roles
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User represents a registered account
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CanModerate reports whether the user may edit or delete other users' comments.
func (u *User) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationReply   NotificationType = "REPLY"
	NotificationMention NotificationType = "MENTION"
	NotificationVote    NotificationType = "VOTE"
	NotificationComment NotificationType = "COMMENT"
)

// Notification tells a user that someone interacted with their content
type Notification struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	RecipientID    uint             `gorm:"not null;index" json:"recipient_id"`
	SourceUserID   uint             `gorm:"not null" json:"source_user_id"`
	Type           NotificationType `gorm:"size:16;not null" json:"type"`
	Message        string           `gorm:"not null" json:"message"`
	BookmarkID     *uint            `json:"bookmark_id,omitempty"`
	AnnouncementID *uint            `json:"announcement_id,omitempty"`
	CommentID      *uint            `json:"comment_id,omitempty"`
	Read           bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt      time.Time        `json:"created_at"`
}

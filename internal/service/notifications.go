package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"linkvault/internal/apperror"
	"linkvault/internal/models"

	"gorm.io/gorm"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// NotificationService records and serves user notifications
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// create skips self-notifications.
func (s *NotificationService) create(ctx context.Context, recipientID uint, source *models.User, typ models.NotificationType, message string, c *models.Comment) error {
	if recipientID == source.ID {
		return nil
	}
	n := models.Notification{
		RecipientID:  recipientID,
		SourceUserID: source.ID,
		Type:         typ,
		Message:      message,
	}
	if c != nil {
		id := c.ID
		n.CommentID = &id
		n.BookmarkID = c.BookmarkID
		n.AnnouncementID = c.AnnouncementID
	}
	return s.db.WithContext(ctx).Create(&n).Error
}

// NotifyReply tells the parent's author about a reply. Deleted parents are skipped.
func (s *NotificationService) NotifyReply(ctx context.Context, reply, parent *models.Comment, actor *models.User) error {
	if parent == nil || parent.Deleted {
		return nil
	}
	return s.create(ctx, parent.UserID, actor, models.NotificationReply,
		actor.Username+" replied to your comment", reply)
}

// NotifyComment tells a bookmark's owner about a new top-level comment.
func (s *NotificationService) NotifyComment(ctx context.Context, c *models.Comment, bookmarkID uint, actor *models.User) error {
	var bookmark models.Bookmark
	if err := s.db.WithContext(ctx).First(&bookmark, bookmarkID).Error; err != nil {
		return err
	}
	msg := fmt.Sprintf("%s commented on your bookmark %q", actor.Username, bookmark.Title)
	return s.create(ctx, bookmark.UserID, actor, models.NotificationComment, msg, c)
}

// NotifyMentions notifies every existing user named as @username in the content.
func (s *NotificationService) NotifyMentions(ctx context.Context, c *models.Comment, actor *models.User) error {
	seen := make(map[string]bool)
	var errs []error
	for _, m := range mentionPattern.FindAllStringSubmatch(c.Content, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		var user models.User
		err := s.db.WithContext(ctx).Where("username = ?", name).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, s.create(ctx, user.ID, actor, models.NotificationMention,
			actor.Username+" mentioned you in a comment", c))
	}
	return errors.Join(errs...)
}

// NotifyVote tells a comment's author about a new like.
func (s *NotificationService) NotifyVote(ctx context.Context, c *models.Comment, voter *models.User) error {
	if c.Deleted {
		return nil
	}
	return s.create(ctx, c.UserID, voter, models.NotificationVote,
		voter.Username+" liked your comment", c)
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	var total int64
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Wrap(apperror.ErrDatabase, "failed to count notifications", err)
	}
	var out []models.Notification
	if err := query.Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&out).Error; err != nil {
		return nil, 0, apperror.Wrap(apperror.ErrDatabase, "failed to fetch notifications", err)
	}
	return out, total, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, apperror.Wrap(apperror.ErrDatabase, "failed to count notifications", err)
	}
	return n, nil
}

// MarkRead marks one notification read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.ErrNotFound, "notification not found")
		}
		return apperror.Wrap(apperror.ErrDatabase, "failed to load notification", err)
	}
	if n.RecipientID != userID {
		return apperror.New(apperror.ErrForbidden, "not authorized")
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
		return apperror.Wrap(apperror.ErrDatabase, "failed to update notification", err)
	}
	return nil
}

// MarkAllRead marks every notification of the user read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true).Error; err != nil {
		return apperror.Wrap(apperror.ErrDatabase, "failed to update notifications", err)
	}
	return nil
}

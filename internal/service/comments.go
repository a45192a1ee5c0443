package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"linkvault/internal/apperror"
	"linkvault/internal/metrics"
	"linkvault/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxDepth is the deepest structural depth a reply may have.
	MaxDepth = 5
	// MaxContentLength is counted in runes.
	MaxContentLength = 2000
)

// CommentService is the comment persistence layer behind the JSON API and the
// server-rendered thread pages.
type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
	log           *zap.Logger
	metrics       *metrics.Metrics
}

// NewCommentService creates a new CommentService
func NewCommentService(db *gorm.DB, notifications *NotificationService, log *zap.Logger, m *metrics.Metrics) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{db: db, notifications: notifications, log: log, metrics: m}
}

// ListThread returns the root comments of an entity, oldest first, each with
// its replies nested. Viewer may be nil for anonymous readers.
func (s *CommentService) ListThread(ctx context.Context, ref models.EntityRef, viewer *models.User) ([]*models.CommentResponse, error) {
	if err := s.entityExists(ctx, ref); err != nil {
		return nil, err
	}

	var all []models.Comment
	if err := s.db.WithContext(ctx).
		Where(entityColumn(ref.Kind)+" = ?", ref.ID).
		Preload("User").
		Order("created_at ASC, id ASC").
		Find(&all).Error; err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to fetch comments", err)
	}

	votes, err := s.viewerVotes(ctx, all, viewer)
	if err != nil {
		return nil, err
	}

	return buildTree(all, votes, viewer), nil
}

func (s *CommentService) viewerVotes(ctx context.Context, comments []models.Comment, viewer *models.User) (map[uint]models.VoteType, error) {
	votes := make(map[uint]models.VoteType)
	if viewer == nil || len(comments) == 0 {
		return votes, nil
	}
	ids := make([]uint, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	var rows []models.CommentVote
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND comment_id IN ?", viewer.ID, ids).
		Find(&rows).Error; err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to fetch votes", err)
	}
	for _, v := range rows {
		votes[v.CommentID] = v.VoteType
	}
	return votes, nil
}

// buildTree indexes comments by parent id and attaches children in one pass.
// Comments whose parent is missing from the set become roots.
func buildTree(all []models.Comment, votes map[uint]models.VoteType, viewer *models.User) []*models.CommentResponse {
	byID := make(map[uint]*models.Comment, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	nodes := make(map[uint]*models.CommentResponse, len(all))
	for i := range all {
		c := &all[i]
		resp := toResponse(c, viewer)
		if v, ok := votes[c.ID]; ok {
			v := v
			resp.UserVote = &v
		}
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				if parent.Deleted {
					resp.ParentUsername = models.DeletedPlaceholder
				} else {
					resp.ParentUsername = parent.User.Username
				}
			}
		}
		nodes[c.ID] = resp
	}

	roots := make([]*models.CommentResponse, 0)
	for i := range all {
		c := &all[i]
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	for _, r := range roots {
		countReplies(r)
	}
	return roots
}

func countReplies(n *models.CommentResponse) int {
	total := 0
	for _, child := range n.Replies {
		total += 1 + countReplies(child)
	}
	n.ReplyCount = total
	return total
}

func toResponse(c *models.Comment, viewer *models.User) *models.CommentResponse {
	owner := viewer != nil && viewer.ID == c.UserID
	return &models.CommentResponse{
		ID:             c.ID,
		Content:        c.Content,
		Username:       c.User.Username,
		UserID:         c.UserID,
		BookmarkID:     c.BookmarkID,
		AnnouncementID: c.AnnouncementID,
		ParentID:       c.ParentID,
		Depth:          c.Depth,
		LikeCount:      c.LikeCount,
		DislikeCount:   c.DislikeCount,
		Score:          c.LikeCount - c.DislikeCount,
		Deleted:        c.Deleted,
		Edited:         c.Edited,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		CanEdit:        owner && !c.Deleted,
		CanDelete:      !c.Deleted && (owner || (viewer != nil && viewer.CanModerate())),
		Replies:        []*models.CommentResponse{},
	}
}

// Create stores a top-level comment or a reply.
func (s *CommentService) Create(ctx context.Context, req models.CreateCommentRequest, user *models.User) (resp *models.CommentResponse, err error) {
	defer func() { s.metrics.ObserveOp("create", err) }()

	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	ref, err := refFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.entityAcceptsComments(ctx, ref); err != nil {
		return nil, err
	}

	comment := models.Comment{
		UserID:  user.ID,
		Content: content,
	}
	setEntity(&comment, ref)

	var parent *models.Comment
	if req.ParentID != nil {
		parent = &models.Comment{}
		if err := s.db.WithContext(ctx).Preload("User").First(parent, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.New(apperror.ErrParentNotFound, "parent comment not found")
			}
			return nil, apperror.Wrap(apperror.ErrDatabase, "failed to load parent comment", err)
		}
		if !sameEntity(parent, ref) {
			return nil, apperror.New(apperror.ErrBadRequest, "parent comment does not belong to this thread")
		}
		comment.ParentID = &parent.ID
		comment.Depth = parent.Depth + 1
		if comment.Depth > MaxDepth {
			return nil, apperror.New(apperror.ErrMaxDepthExceeded, "maximum comment depth exceeded")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return err
		}
		if ref.Kind == models.EntityBookmark {
			return tx.Model(&models.Bookmark{}).Where("id = ?", ref.ID).
				UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to create comment", err)
	}
	comment.User = *user

	s.notifyCreated(ctx, &comment, parent, ref, user)

	s.log.Info("comment created",
		zap.Uint("comment_id", comment.ID),
		zap.String("entity", string(ref.Kind)),
		zap.Uint("entity_id", ref.ID),
		zap.Int("depth", comment.Depth),
	)
	resp = toResponse(&comment, user)
	if parent != nil {
		resp.ParentUsername = parent.User.Username
		if parent.Deleted {
			resp.ParentUsername = models.DeletedPlaceholder
		}
	}
	return resp, nil
}

// notifyCreated is best effort; a failed notification never fails the comment.
func (s *CommentService) notifyCreated(ctx context.Context, c *models.Comment, parent *models.Comment, ref models.EntityRef, actor *models.User) {
	if s.notifications == nil {
		return
	}
	var errs []error
	if parent != nil {
		errs = append(errs, s.notifications.NotifyReply(ctx, c, parent, actor))
	} else if ref.Kind == models.EntityBookmark {
		errs = append(errs, s.notifications.NotifyComment(ctx, c, ref.ID, actor))
	}
	errs = append(errs, s.notifications.NotifyMentions(ctx, c, actor))
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("comment notifications failed", zap.Uint("comment_id", c.ID), zap.Error(err))
	}
}

// Update replaces the content of a comment (author or moderator only)
func (s *CommentService) Update(ctx context.Context, id uint, content string, user *models.User) (resp *models.CommentResponse, err error) {
	defer func() { s.metrics.ObserveOp("update", err) }()

	content, err = normalizeContent(content)
	if err != nil {
		return nil, err
	}

	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != user.ID && !user.CanModerate() {
		return nil, apperror.New(apperror.ErrForbidden, "you can only edit your own comments")
	}
	if comment.Deleted {
		return nil, apperror.New(apperror.ErrCommentDeleted, "deleted comments cannot be edited")
	}

	comment.Content = content
	comment.Edited = true
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(comment).Error; err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to update comment", err)
	}
	return toResponse(comment, user), nil
}

// Delete soft-deletes a comment (author or moderator only). Replies stay.
func (s *CommentService) Delete(ctx context.Context, id uint, user *models.User) (err error) {
	defer func() { s.metrics.ObserveOp("delete", err) }()

	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	owner := comment.UserID == user.ID
	if !owner && !user.CanModerate() {
		return apperror.New(apperror.ErrForbidden, "you can only delete your own comments")
	}
	if comment.Deleted {
		return nil
	}

	comment.SoftDelete()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(comment).Error; err != nil {
			return err
		}
		return adjustBookmarkCount(tx, comment, -1)
	})
	if err != nil {
		return apperror.Wrap(apperror.ErrDatabase, "failed to delete comment", err)
	}

	if !owner {
		s.log.Info("comment soft-deleted by moderator",
			zap.Uint("comment_id", comment.ID),
			zap.String("moderator", user.Username),
			zap.String("owner", comment.User.Username),
		)
	}
	return nil
}

// Vote applies a viewer's vote: the same vote again clears it, the other vote
// switches it.
func (s *CommentService) Vote(ctx context.Context, id uint, voteType models.VoteType, user *models.User) (resp *models.VoteResponse, err error) {
	defer func() { s.metrics.ObserveOp("vote", err) }()

	if voteType != models.VoteLike && voteType != models.VoteDislike {
		return nil, apperror.New(apperror.ErrValidation, "vote type must be LIKE or DISLIKE")
	}
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *models.VoteType
	newLike := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommentVote
		lookup := tx.Where("user_id = ? AND comment_id = ?", user.ID, id).Limit(1).Find(&existing)
		if lookup.Error != nil {
			return lookup.Error
		}

		switch {
		case lookup.RowsAffected == 0:
			if err := tx.Create(&models.CommentVote{UserID: user.ID, CommentID: id, VoteType: voteType}).Error; err != nil {
				return err
			}
			if err := bumpTally(tx, id, voteType, 1); err != nil {
				return err
			}
			result = &voteType
			newLike = voteType == models.VoteLike
		case existing.VoteType == voteType:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := bumpTally(tx, id, voteType, -1); err != nil {
				return err
			}
		default:
			if err := bumpTally(tx, id, existing.VoteType, -1); err != nil {
				return err
			}
			if err := bumpTally(tx, id, voteType, 1); err != nil {
				return err
			}
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			result = &voteType
		}
		return tx.First(comment, id).Error
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to record vote", err)
	}

	if newLike && s.notifications != nil {
		if err := s.notifications.NotifyVote(ctx, comment, user); err != nil {
			s.log.Warn("vote notification failed", zap.Uint("comment_id", id), zap.Error(err))
		}
	}

	return &models.VoteResponse{
		LikeCount:    comment.LikeCount,
		DislikeCount: comment.DislikeCount,
		Score:        comment.LikeCount - comment.DislikeCount,
		UserVote:     result,
	}, nil
}

// ListAll returns every comment, newest first, for the moderation panel.
func (s *CommentService) ListAll(ctx context.Context) ([]*models.CommentResponse, error) {
	var all []models.Comment
	if err := s.db.WithContext(ctx).Preload("User").Order("created_at DESC, id DESC").Find(&all).Error; err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to fetch comments", err)
	}
	out := make([]*models.CommentResponse, len(all))
	for i := range all {
		out[i] = toResponse(&all[i], nil)
		out[i].Replies = nil
	}
	return out, nil
}

// Restore brings a soft-deleted comment back.
func (s *CommentService) Restore(ctx context.Context, id uint, actor *models.User) (err error) {
	defer func() { s.metrics.ObserveOp("restore", err) }()

	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !comment.Deleted {
		return apperror.New(apperror.ErrCommentNotDeleted, "comment is not deleted")
	}
	comment.Restore()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(comment).Error; err != nil {
			return err
		}
		return adjustBookmarkCount(tx, comment, 1)
	})
	if err != nil {
		return apperror.Wrap(apperror.ErrDatabase, "failed to restore comment", err)
	}
	s.log.Info("comment restored", zap.Uint("comment_id", id), zap.String("actor", actor.Username))
	return nil
}

// Purge permanently removes a soft-deleted comment. Its votes go with it and
// its direct replies become top-level comments.
func (s *CommentService) Purge(ctx context.Context, id uint, actor *models.User) (err error) {
	defer func() { s.metrics.ObserveOp("purge", err) }()

	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !comment.Deleted {
		return apperror.New(apperror.ErrCommentNotDeleted, "cannot purge a comment that is not soft-deleted")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		return apperror.Wrap(apperror.ErrDatabase, "failed to purge comment", err)
	}
	s.log.Info("comment purged",
		zap.Uint("comment_id", id),
		zap.String("actor", actor.Username),
		zap.String("owner", comment.User.Username),
	)
	return nil
}

func (s *CommentService) load(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.ErrCommentNotFound, "comment not found")
		}
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to load comment", err)
	}
	return &comment, nil
}

func (s *CommentService) entityExists(ctx context.Context, ref models.EntityRef) error {
	_, err := s.loadEntity(ctx, ref)
	return err
}

func (s *CommentService) entityAcceptsComments(ctx context.Context, ref models.EntityRef) error {
	ann, err := s.loadEntity(ctx, ref)
	if err != nil {
		return err
	}
	if ann != nil && !ann.EnableComments {
		return apperror.New(apperror.ErrForbidden, "comments are disabled for this announcement")
	}
	return nil
}

// loadEntity returns the announcement when ref points at one, nil for bookmarks.
func (s *CommentService) loadEntity(ctx context.Context, ref models.EntityRef) (*models.Announcement, error) {
	var err error
	var ann *models.Announcement
	switch ref.Kind {
	case models.EntityBookmark:
		err = s.db.WithContext(ctx).Select("id").First(&models.Bookmark{}, ref.ID).Error
	case models.EntityAnnouncement:
		ann = &models.Announcement{}
		err = s.db.WithContext(ctx).First(ann, ref.ID).Error
	default:
		return nil, apperror.New(apperror.ErrBadRequest, "unknown entity kind")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.New(apperror.ErrEntityNotFound, string(ref.Kind)+" not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrDatabase, "failed to load "+string(ref.Kind), err)
	}
	return ann, nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.New(apperror.ErrValidation, "comment content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", apperror.New(apperror.ErrValidation, "comment must be 2000 characters or less")
	}
	return content, nil
}

func refFromRequest(req models.CreateCommentRequest) (models.EntityRef, error) {
	switch {
	case req.AnnouncementID != nil && req.BookmarkID != nil:
		return models.EntityRef{}, apperror.New(apperror.ErrValidation, "only one of bookmarkId or announcementId may be set")
	case req.AnnouncementID != nil:
		return models.EntityRef{Kind: models.EntityAnnouncement, ID: *req.AnnouncementID}, nil
	case req.BookmarkID != nil:
		return models.EntityRef{Kind: models.EntityBookmark, ID: *req.BookmarkID}, nil
	}
	return models.EntityRef{}, apperror.New(apperror.ErrValidation, "either bookmarkId or announcementId is required")
}

func entityColumn(kind models.EntityKind) string {
	if kind == models.EntityAnnouncement {
		return "announcement_id"
	}
	return "bookmark_id"
}

func setEntity(c *models.Comment, ref models.EntityRef) {
	id := ref.ID
	if ref.Kind == models.EntityAnnouncement {
		c.AnnouncementID = &id
	} else {
		c.BookmarkID = &id
	}
}

func sameEntity(c *models.Comment, ref models.EntityRef) bool {
	if ref.Kind == models.EntityAnnouncement {
		return c.AnnouncementID != nil && *c.AnnouncementID == ref.ID
	}
	return c.BookmarkID != nil && *c.BookmarkID == ref.ID
}

func bumpTally(tx *gorm.DB, id uint, vote models.VoteType, delta int) error {
	col := "like_count"
	if vote == models.VoteDislike {
		col = "dislike_count"
	}
	expr := gorm.Expr(col + " + 1")
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN " + col + " > 0 THEN " + col + " - 1 ELSE 0 END")
	}
	return tx.Model(&models.Comment{}).Where("id = ?", id).UpdateColumn(col, expr).Error
}

func adjustBookmarkCount(tx *gorm.DB, c *models.Comment, delta int) error {
	if c.BookmarkID == nil {
		return nil
	}
	expr := gorm.Expr("comment_count + 1")
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END")
	}
	return tx.Model(&models.Bookmark{}).Where("id = ?", *c.BookmarkID).
		UpdateColumn("comment_count", expr).Error
}

package models

import "time"

// DeletedPlaceholder replaces the content of a soft-deleted comment and is
// reported as the parent username of replies to it.
const DeletedPlaceholder = "[deleted]"

// VoteType is a viewer's vote on a comment.
type VoteType string

const (
	VoteLike    VoteType = "LIKE"
	VoteDislike VoteType = "DISLIKE"
)

// Comment is a node in a reply tree attached to exactly one bookmark or one
// announcement. Deleted comments stay in place as tombstones.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	BookmarkID      *uint     `gorm:"index" json:"bookmark_id"`
	AnnouncementID  *uint     `gorm:"index" json:"announcement_id"`
	ParentID        *uint     `gorm:"index" json:"parent_id"` // nil for top-level comments
	Content         string    `gorm:"size:2000;not null" json:"content"`
	OriginalContent string    `gorm:"size:2000" json:"-"` // kept while soft-deleted so moderators can restore
	Deleted         bool      `gorm:"not null;default:false" json:"deleted"`
	Edited          bool      `gorm:"not null;default:false" json:"edited"`
	Depth           int       `gorm:"not null;default:0" json:"depth"`
	LikeCount       int       `gorm:"not null;default:0" json:"like_count"`
	DislikeCount    int       `gorm:"not null;default:0" json:"dislike_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	User            User      `gorm:"foreignKey:UserID" json:"user"`
	Parent          *Comment  `gorm:"foreignKey:ParentID" json:"-"`
}

// SoftDelete turns the comment into a tombstone.
func (c *Comment) SoftDelete() {
	c.OriginalContent = c.Content
	c.Content = DeletedPlaceholder
	c.Deleted = true
}

// Restore undoes SoftDelete.
func (c *Comment) Restore() {
	if c.OriginalContent != "" {
		c.Content = c.OriginalContent
		c.OriginalContent = ""
	}
	c.Deleted = false
}

// CommentVote records one viewer's vote on one comment.
type CommentVote struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	UserID    uint     `gorm:"not null;uniqueIndex:idx_vote_user_comment" json:"user_id"`
	CommentID uint     `gorm:"not null;uniqueIndex:idx_vote_user_comment;index" json:"comment_id"`
	VoteType  VoteType `gorm:"size:16;not null" json:"vote_type"`
}

// CommentResponse is the JSON shape of a comment in a thread listing. The
// viewer-relative fields (UserVote, CanEdit, CanDelete) are computed per
// request.
type CommentResponse struct {
	ID             uint               `json:"id"`
	Content        string             `json:"content"`
	Username       string             `json:"username"`
	UserID         uint               `json:"userId"`
	BookmarkID     *uint              `json:"bookmarkId"`
	AnnouncementID *uint              `json:"announcementId"`
	ParentID       *uint              `json:"parentId"`
	ParentUsername string             `json:"parentUsername,omitempty"`
	Depth          int                `json:"depth"`
	LikeCount      int                `json:"likeCount"`
	DislikeCount   int                `json:"dislikeCount"`
	Score          int                `json:"score"`
	ReplyCount     int                `json:"replyCount"`
	Deleted        bool               `json:"deleted"`
	Edited         bool               `json:"edited"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	UserVote       *VoteType          `json:"userVote"`
	CanEdit        bool               `json:"canEdit"`
	CanDelete      bool               `json:"canDelete"`
	Replies        []*CommentResponse `json:"replies"`
}

// VoteResponse reports tallies after a vote.
type VoteResponse struct {
	LikeCount    int       `json:"likeCount"`
	DislikeCount int       `json:"dislikeCount"`
	Score        int       `json:"score"`
	UserVote     *VoteType `json:"userVote"`
}

// CreateCommentRequest represents the request body for creating a comment.
// Exactly one of BookmarkID and AnnouncementID must be set.
type CreateCommentRequest struct {
	Content        string `json:"content" form:"content" binding:"required,notblank,max=2000"`
	BookmarkID     *uint  `json:"bookmarkId" form:"bookmark_id"`
	AnnouncementID *uint  `json:"announcementId" form:"announcement_id"`
	ParentID       *uint  `json:"parentId" form:"parent_id"` // Optional - nil for top-level, set for replies
}

// UpdateCommentRequest represents the request body for editing a comment
type UpdateCommentRequest struct {
	Content string `json:"content" form:"content" binding:"required,notblank,max=2000"`
}

// VoteRequest represents the request body for voting on a comment
type VoteRequest struct {
	VoteType VoteType `json:"voteType" form:"vote_type" binding:"required,oneof=LIKE DISLIKE"`
}

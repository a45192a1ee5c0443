// Package thread turns a comment tree fetched from the comment API into a
// renderable view: it caps visual indentation, collapses long reply lists,
// projects the result to HTML or text, and runs every mutation as a round
// trip followed by a full reload of the tree.
package thread

import "time"

const (
	// MaxVisualDepth is the deepest indentation level. Deeper replies render
	// flat with a "replying to @user" backlink.
	MaxVisualDepth = 2
	// CollapseThreshold is the largest reply list shown without collapsing.
	CollapseThreshold = 3
	// PreviewCount is how many of the newest replies stay visible when a
	// reply list is collapsed.
	PreviewCount = 2
	// MaxReplyDepth mirrors the server's depth ceiling: comments at this
	// structural depth or deeper offer no Reply action.
	MaxReplyDepth = 5
)

const (
	// DeletedName is shown instead of the author of a deleted comment.
	DeletedName = "[deleted]"
	// DeletedContent replaces the body of a deleted comment.
	DeletedContent = "[deleted]"
	// DeletedAvatar is the avatar glyph of a deleted comment.
	DeletedAvatar = "?"
)

// VoteType is a viewer's vote. The empty value means no vote.
type VoteType string

const (
	VoteNone    VoteType = ""
	VoteLike    VoteType = "LIKE"
	VoteDislike VoteType = "DISLIKE"
)

// Entity kinds a thread can hang off.
const (
	KindBookmark     = "bookmark"
	KindAnnouncement = "announcement"
)

// Ref identifies the entity whose thread is shown.
type Ref struct {
	Kind string
	ID   uint
}

// Comment is one node of the tree as served by the comment API. The API
// returns the tree already nested; Replies are in the order served (oldest
// first) and are never re-sorted here.
type Comment struct {
	ID             uint       `json:"id"`
	Content        string     `json:"content"`
	Username       string     `json:"username"`
	CreatedAt      time.Time  `json:"createdAt"`
	Edited         bool       `json:"edited"`
	Deleted        bool       `json:"deleted"`
	ParentID       *uint      `json:"parentId"`
	ParentUsername string     `json:"parentUsername"`
	Depth          int        `json:"depth"`
	LikeCount      int        `json:"likeCount"`
	DislikeCount   int        `json:"dislikeCount"`
	UserVote       VoteType   `json:"userVote"`
	CanEdit        bool       `json:"canEdit"`
	CanDelete      bool       `json:"canDelete"`
	Replies        []*Comment `json:"replies"`
}

// Find returns the comment with the given id anywhere under roots.
func Find(roots []*Comment, id uint) *Comment {
	for _, c := range roots {
		if c == nil {
			continue
		}
		if c.ID == id {
			return c
		}
		if found := Find(c.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// Options tunes rendering. Zero numeric fields take the package defaults.
type Options struct {
	MaxVisualDepth    int
	CollapseThreshold int
	PreviewCount      int
	MaxReplyDepth     int
	// EnableVoting shows like/dislike controls.
	EnableVoting bool
	// PrefillMention seeds reply forms with "@username ".
	PrefillMention bool
	// Now is the clock used for relative timestamps.
	Now func() time.Time
}

// DefaultOptions has voting on and mention prefill off.
func DefaultOptions() Options {
	return Options{EnableVoting: true}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.MaxVisualDepth <= 0 {
		o.MaxVisualDepth = MaxVisualDepth
	}
	if o.CollapseThreshold <= 0 {
		o.CollapseThreshold = CollapseThreshold
	}
	if o.PreviewCount <= 0 {
		o.PreviewCount = PreviewCount
	}
	if o.MaxReplyDepth <= 0 {
		o.MaxReplyDepth = MaxReplyDepth
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

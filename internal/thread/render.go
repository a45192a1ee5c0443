package thread

import (
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"
)

// Node is one rendered comment. Content is raw text; projections escape it.
type Node struct {
	ID          uint
	VisualDepth int
	Avatar      string
	DisplayName string
	Time        string
	CreatedAt   time.Time
	Edited      bool
	Deleted     bool
	Content     string

	ReplyTo *Backlink
	Votes   *Votes

	CanReply  bool
	CanEdit   bool
	CanDelete bool

	// Editing replaces the content with an edit field seeded with Content.
	Editing bool
	// ReplyForm is set while the viewer has the reply form of this node open.
	ReplyForm *ReplyForm
	// ConfirmDelete asks the viewer to confirm deleting this node.
	ConfirmDelete bool

	Thread *Thread
}

// Backlink points a flattened reply at its parent.
type Backlink struct {
	ParentID uint
	Username string
	// ParentDeleted renders the backlink as plain text.
	ParentDeleted bool
}

// Votes are the vote controls of a node.
type Votes struct {
	Likes    int
	Dislikes int
	Liked    bool
	Disliked bool
}

// Score is likes minus dislikes.
func (v *Votes) Score() int { return v.Likes - v.Dislikes }

// ReplyForm is an open reply form.
type ReplyForm struct {
	ParentID uint
	Username string
	Prefill  string
}

// Thread is the reply container below a node. Expand renders before the
// replies, Collapse after them.
type Thread struct {
	ParentID uint
	// Indented is false once the container would exceed the visual depth cap.
	Indented bool
	Expand   *Toggle
	Replies  []*Node
	Collapse *Toggle
}

// Toggle is an expand or collapse control of a reply list.
type Toggle struct {
	CommentID uint
	Label     string
	// Hidden is the number of replies the expand control reveals.
	Hidden int
}

// ExpandLabel is the wording of an expand control hiding n replies.
func ExpandLabel(n int) string {
	if n == 1 {
		return "View 1 more reply"
	}
	return "View " + strconv.Itoa(n) + " more replies"
}

// HideLabel is the wording of a collapse control.
const HideLabel = "Hide replies"

// Renderer turns comments into nodes. It is cheap and meant to be built per
// render.
type Renderer struct {
	Options Options
	State   *State
	// Editing is the id of the comment whose edit field is open, or zero.
	Editing uint
	// Replying is the id of the comment whose reply form is open, or zero.
	Replying uint
	// Deleting is the id of the comment awaiting delete confirmation, or zero.
	Deleting uint
	// Draft replaces the seed text of the open edit or reply form.
	Draft string
}

// RenderAll renders root comments at visual depth zero.
func (r *Renderer) RenderAll(roots []*Comment) []*Node {
	nodes := make([]*Node, 0, len(roots))
	for _, c := range roots {
		if n := r.Render(c, 0); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Render renders c and its replies. visualDepth is the indentation level c is
// drawn at; it is independent of c.Depth once the visual cap is reached.
func (r *Renderer) Render(c *Comment, visualDepth int) *Node {
	if c == nil {
		return nil
	}
	o := r.Options.withDefaults()

	n := &Node{
		ID:          c.ID,
		VisualDepth: visualDepth,
		CreatedAt:   c.CreatedAt,
		Time:        RelativeTime(c.CreatedAt, o.Now()),
		Edited:      c.Edited,
		Deleted:     c.Deleted,
	}

	if c.Deleted {
		n.Avatar = DeletedAvatar
		n.DisplayName = DeletedName
		n.Content = DeletedContent
	} else {
		n.Avatar = avatar(c.Username)
		n.DisplayName = c.Username
		n.Content = c.Content
		n.CanReply = c.Depth < o.MaxReplyDepth
		n.CanEdit = c.CanEdit
		n.CanDelete = c.CanDelete
		n.Editing = c.CanEdit && r.Editing != 0 && r.Editing == c.ID
		if n.Editing && r.Draft != "" {
			n.Content = r.Draft
		}
		n.ConfirmDelete = c.CanDelete && r.Deleting != 0 && r.Deleting == c.ID
		if o.EnableVoting {
			n.Votes = &Votes{
				Likes:    c.LikeCount,
				Dislikes: c.DislikeCount,
				Liked:    c.UserVote == VoteLike,
				Disliked: c.UserVote == VoteDislike,
			}
		}
		if n.CanReply && r.Replying != 0 && r.Replying == c.ID {
			n.ReplyForm = &ReplyForm{ParentID: c.ID, Username: c.Username}
			if o.PrefillMention {
				n.ReplyForm.Prefill = "@" + c.Username + " "
			}
			if r.Draft != "" {
				n.ReplyForm.Prefill = r.Draft
			}
		}
	}

	if visualDepth >= o.MaxVisualDepth && c.ParentUsername != "" && c.ParentID != nil {
		n.ReplyTo = &Backlink{
			ParentID:      *c.ParentID,
			Username:      c.ParentUsername,
			ParentDeleted: c.ParentUsername == DeletedName,
		}
	}

	n.Thread = r.thread(c, visualDepth, o)
	return n
}

func (r *Renderer) thread(c *Comment, visualDepth int, o Options) *Thread {
	if len(c.Replies) == 0 {
		return nil
	}
	next := visualDepth + 1
	t := &Thread{ParentID: c.ID, Indented: next <= o.MaxVisualDepth}

	shown := c.Replies
	if total := len(c.Replies); total > o.CollapseThreshold {
		if r.State.Expanded(c.ID) {
			t.Collapse = &Toggle{CommentID: c.ID, Label: HideLabel}
		} else if hidden := total - o.PreviewCount; hidden > 0 {
			shown = c.Replies[hidden:]
			t.Expand = &Toggle{CommentID: c.ID, Label: ExpandLabel(hidden), Hidden: hidden}
		}
	}

	t.Replies = make([]*Node, 0, len(shown))
	for _, reply := range shown {
		if n := r.Render(reply, next); n != nil {
			t.Replies = append(t.Replies, n)
		}
	}
	return t
}

func avatar(username string) string {
	r, size := utf8.DecodeRuneInString(username)
	if size == 0 || r == utf8.RuneError {
		return DeletedAvatar
	}
	return string(unicode.ToUpper(r))
}

package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Source is the comment service as seen by a thread view. Every call is a
// network or database round trip.
type Source interface {
	ListThread(ctx context.Context, ref Ref) ([]*Comment, error)
	CreateComment(ctx context.Context, in CreateInput) (*Comment, error)
	EditComment(ctx context.Context, id uint, content string) (*Comment, error)
	DeleteComment(ctx context.Context, id uint) error
	VoteComment(ctx context.Context, id uint, vote VoteType) (*VoteResult, error)
}

// CreateInput is a new comment or reply.
type CreateInput struct {
	Ref      Ref
	ParentID *uint
	Content  string
}

// VoteResult is the tally after a vote.
type VoteResult struct {
	LikeCount    int      `json:"likeCount"`
	DislikeCount int      `json:"dislikeCount"`
	UserVote     VoteType `json:"userVote"`
}

// ServiceError is a non-success answer from a Source. Message, when set, is
// shown to the viewer instead of the generic notice.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("comment service: status %d", e.Status)
	}
	return fmt.Sprintf("comment service: status %d: %s", e.Status, e.Message)
}

// Level of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notice is a transient message for the viewer.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices as they are raised.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Confirmer asks the viewer to confirm a destructive action.
type Confirmer func(prompt string) bool

// Always confirms without asking.
func Always(string) bool { return true }

// DeletePrompt is shown before a delete.
const DeletePrompt = "Are you sure you want to delete this comment?"

// Notice wording.
const (
	msgLoadFailed    = "Error loading comments"
	msgEmptyComment  = "Please enter a comment"
	msgEmptyReply    = "Please enter a reply"
	msgBadParent     = "Invalid reply target"
	msgPosted        = "Comment posted"
	msgPostFailed    = "Error posting comment"
	msgReplied       = "Reply posted"
	msgReplyFailed   = "Error posting reply"
	msgUpdated       = "Comment updated"
	msgUpdateFailed  = "Error updating comment"
	msgDeleted       = "Comment deleted"
	msgDeleteFailed  = "Error deleting comment"
	msgVoteFailed    = "Error voting"
	msgNotFound      = "Comment not found"
	msgNotEditable   = "You cannot edit this comment"
	msgInvalidVote   = "Invalid vote"
	msgUnknownEntity = "Unknown comment thread"
)

// Validation errors returned by engine actions. The viewer also gets a notice.
var (
	ErrEmptyContent = errors.New("thread: empty content")
	ErrInvalidInput = errors.New("thread: invalid input")
)

// Config configures an Engine.
type Config struct {
	Source  Source
	Ref     Ref
	Options Options
	// State carries expansion across reloads. Nil starts empty.
	State    *State
	Notifier Notifier
	Logger   *zap.Logger
}

// Engine drives one thread view. Each mutation calls the Source and then
// reloads the whole tree; there is no optimistic local patching. An Engine
// is not safe for concurrent use.
type Engine struct {
	src      Source
	ref      Ref
	opts     Options
	state    *State
	notifier Notifier
	log      *zap.Logger

	roots    []*Comment
	loaded   bool
	editing  uint
	replying uint
	deleting uint
	draft    string
	notice   *Notice
}

// New creates an Engine. Nothing is fetched until Load.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	state := cfg.State
	if state == nil {
		state = NewState()
	}
	return &Engine{
		src:      cfg.Source,
		ref:      cfg.Ref,
		opts:     cfg.Options.withDefaults(),
		state:    state,
		notifier: cfg.Notifier,
		log:      log.With(zap.String("kind", cfg.Ref.Kind), zap.Uint("entity_id", cfg.Ref.ID)),
	}
}

// State returns the live expansion state.
func (e *Engine) State() *State { return e.state }

// Roots returns the tree from the last successful load.
func (e *Engine) Roots() []*Comment { return e.roots }

// Loaded reports whether a load ever succeeded.
func (e *Engine) Loaded() bool { return e.loaded }

// Editing returns the id of the comment being edited, or zero.
func (e *Engine) Editing() uint { return e.editing }

// Replying returns the id of the comment whose reply form is open, or zero.
func (e *Engine) Replying() uint { return e.replying }

// LastNotice returns the most recent notice, if any.
func (e *Engine) LastNotice() *Notice { return e.notice }

// Load fetches the tree. On failure the previously loaded tree stays in place.
func (e *Engine) Load(ctx context.Context) (err error) {
	defer e.guard(&err, msgLoadFailed)
	if e.src == nil || e.ref.ID == 0 {
		e.raise(LevelError, msgUnknownEntity)
		return ErrInvalidInput
	}
	roots, err := e.src.ListThread(ctx, e.ref)
	if err != nil {
		e.fail(err, msgLoadFailed)
		return err
	}
	e.roots = roots
	e.loaded = true
	return nil
}

// Expand shows every reply of id and reloads.
func (e *Engine) Expand(ctx context.Context, id uint) error {
	e.state.Expand(id)
	return e.Load(ctx)
}

// Collapse returns id to showing a preview and reloads.
func (e *Engine) Collapse(ctx context.Context, id uint) error {
	e.state.Collapse(id)
	return e.Load(ctx)
}

// Post creates a top-level comment.
func (e *Engine) Post(ctx context.Context, content string) (err error) {
	defer e.guard(&err, msgPostFailed)
	content = strings.TrimSpace(content)
	if content == "" {
		e.raise(LevelWarning, msgEmptyComment)
		return ErrEmptyContent
	}
	if _, err := e.src.CreateComment(ctx, CreateInput{Ref: e.ref, Content: content}); err != nil {
		e.fail(err, msgPostFailed)
		return err
	}
	e.raise(LevelSuccess, msgPosted)
	return e.Load(ctx)
}

// OpenReply opens the reply form of id. It returns false when id is not in
// the tree or cannot be replied to.
func (e *Engine) OpenReply(id uint) bool {
	c := Find(e.roots, id)
	if c == nil || c.Deleted || c.Depth >= e.opts.MaxReplyDepth {
		return false
	}
	e.replying = id
	return true
}

// CloseReply closes the open reply form.
func (e *Engine) CloseReply() { e.replying = 0 }

// AskDelete shows the delete confirmation of id. It returns false when id is
// not in the tree or cannot be deleted.
func (e *Engine) AskDelete(id uint) bool {
	c := Find(e.roots, id)
	if c == nil || c.Deleted || !c.CanDelete {
		return false
	}
	e.deleting = id
	return true
}

// SetDraft seeds the open edit or reply form with text the viewer submitted
// before, or the new comment form when neither is open.
func (e *Engine) SetDraft(text string) { e.draft = strings.TrimSpace(text) }

// Reply posts a reply to parentID. On success parentID is expanded so the new
// reply is visible even when the list is past the collapse threshold.
func (e *Engine) Reply(ctx context.Context, parentID uint, content string) (err error) {
	defer e.guard(&err, msgReplyFailed)
	if parentID == 0 {
		e.raise(LevelWarning, msgBadParent)
		return ErrInvalidInput
	}
	content = strings.TrimSpace(content)
	if content == "" {
		e.raise(LevelWarning, msgEmptyReply)
		return ErrEmptyContent
	}
	pid := parentID
	if _, err := e.src.CreateComment(ctx, CreateInput{Ref: e.ref, ParentID: &pid, Content: content}); err != nil {
		e.fail(err, msgReplyFailed)
		return err
	}
	e.state.Expand(parentID)
	e.replying = 0
	e.raise(LevelSuccess, msgReplied)
	return e.Load(ctx)
}

// StartEdit opens the edit field of id and returns the raw content to seed it
// with. It returns false when id is not in the tree or not editable.
func (e *Engine) StartEdit(id uint) (string, bool) {
	c := Find(e.roots, id)
	if c == nil || c.Deleted || !c.CanEdit {
		return "", false
	}
	e.editing = id
	return c.Content, true
}

// CancelEdit discards the edit and reloads.
func (e *Engine) CancelEdit(ctx context.Context) error {
	e.editing = 0
	return e.Load(ctx)
}

// SaveEdit submits new content for id. The edit field stays open on failure.
func (e *Engine) SaveEdit(ctx context.Context, id uint, content string) (err error) {
	defer e.guard(&err, msgUpdateFailed)
	if id == 0 {
		e.raise(LevelWarning, msgNotFound)
		return ErrInvalidInput
	}
	content = strings.TrimSpace(content)
	if content == "" {
		e.raise(LevelWarning, msgEmptyComment)
		return ErrEmptyContent
	}
	if _, err := e.src.EditComment(ctx, id, content); err != nil {
		e.fail(err, msgUpdateFailed)
		return err
	}
	e.editing = 0
	e.raise(LevelSuccess, msgUpdated)
	return e.Load(ctx)
}

// Delete removes id after confirm agrees. A declined confirmation is a no-op.
func (e *Engine) Delete(ctx context.Context, id uint, confirm Confirmer) (err error) {
	defer e.guard(&err, msgDeleteFailed)
	if id == 0 {
		e.raise(LevelWarning, msgNotFound)
		return ErrInvalidInput
	}
	if confirm != nil && !confirm(DeletePrompt) {
		return nil
	}
	if err := e.src.DeleteComment(ctx, id); err != nil {
		e.fail(err, msgDeleteFailed)
		return err
	}
	if e.editing == id {
		e.editing = 0
	}
	if e.replying == id {
		e.replying = 0
	}
	e.deleting = 0
	e.raise(LevelSuccess, msgDeleted)
	return e.Load(ctx)
}

// Vote casts vote on id. The service toggles: repeating the current vote
// clears it.
func (e *Engine) Vote(ctx context.Context, id uint, vote VoteType) (err error) {
	defer e.guard(&err, msgVoteFailed)
	if id == 0 || (vote != VoteLike && vote != VoteDislike) {
		e.raise(LevelWarning, msgInvalidVote)
		return ErrInvalidInput
	}
	if _, err := e.src.VoteComment(ctx, id, vote); err != nil {
		e.fail(err, msgVoteFailed)
		return err
	}
	return e.Load(ctx)
}

// Surface is everything a projection needs to draw the thread.
type Surface struct {
	Ref    Ref
	Loaded bool
	// Empty is set when the thread loaded and has no comments.
	Empty  bool
	Roots  []*Node
	Notice *Notice
	State  *State
	// Draft prefills the new comment form.
	Draft string
}

// Surface renders the current tree.
func (e *Engine) Surface() *Surface {
	r := Renderer{
		Options:  e.opts,
		State:    e.state,
		Editing:  e.editing,
		Replying: e.replying,
		Deleting: e.deleting,
		Draft:    e.draft,
	}
	s := &Surface{
		Ref:    e.ref,
		Loaded: e.loaded,
		Notice: e.notice,
		State:  e.state,
	}
	if e.editing == 0 && e.replying == 0 {
		s.Draft = e.draft
	}
	if e.loaded {
		s.Roots = r.RenderAll(e.roots)
		s.Empty = len(s.Roots) == 0
	}
	return s
}

// Notify raises a notice from outside the engine, for example a message
// carried across a redirect.
func (e *Engine) Notify(level Level, message string) {
	if message == "" {
		return
	}
	e.raise(level, message)
}

func (e *Engine) raise(level Level, message string) {
	n := Notice{Level: level, Message: message}
	e.notice = &n
	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}

// fail reports err to the viewer, preferring the service's own message.
func (e *Engine) fail(err error, fallback string) {
	msg := fallback
	var se *ServiceError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	e.log.Warn("thread action failed", zap.String("notice", msg), zap.Error(err))
	e.raise(LevelError, msg)
}

// guard turns a panic inside an action into an error and a notice.
func (e *Engine) guard(errp *error, fallback string) {
	if r := recover(); r != nil {
		e.log.Error("thread action panicked", zap.Any("panic", r))
		e.raise(LevelError, fallback)
		*errp = fmt.Errorf("thread: %v", r)
	}
}

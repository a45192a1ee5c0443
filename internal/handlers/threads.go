package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"linkvault/internal/apperror"
	"linkvault/internal/metrics"
	"linkvault/internal/middleware"
	"linkvault/internal/models"
	"linkvault/internal/service"
	"linkvault/internal/thread"

	"github.com/gin-gonic/gin"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · LinkVault</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; color: #111827; }
header { padding: .75rem 1.5rem; border-bottom: 1px solid #e5e7eb; display: flex; justify-content: space-between; }
header a { color: inherit; font-weight: 600; text-decoration: none; }
main { padding: 1.5rem; }
{{.Styles}}
</style>
</head>
<body>
<header>
<a href="/">LinkVault</a>
{{with .Viewer}}<span>Signed in as <strong>{{.Username}}</strong></span>{{else}}<span>Log in to join the discussion.</span>{{end}}
</header>
<main>
<h1>{{.Title}}</h1>
{{.Thread}}
</main>
</body>
</html>
`

var page = template.Must(template.New("page").Parse(pageTemplate))

type pageView struct {
	Title  string
	Styles template.CSS
	Viewer *models.User
	Thread template.HTML
}

// ThreadPageHandler serves comment threads as plain HTML pages. Every form
// posts back, runs one engine action and redirects to the page again, so the
// browser always shows a freshly loaded tree.
type ThreadPageHandler struct {
	comments *service.CommentService
	metrics  *metrics.Metrics
}

// NewThreadPageHandler creates a new ThreadPageHandler
func NewThreadPageHandler(comments *service.CommentService, m *metrics.Metrics) *ThreadPageHandler {
	return &ThreadPageHandler{comments: comments, metrics: m}
}

// Page renders the thread. Query parameters: expanded (comma separated ids),
// reply, edit and delete (open a form or confirmation), draft (text to put
// back into the open form), notice and level (message from a redirect).
func (h *ThreadPageHandler) Page(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := threadRef(c, kind)
		if !ok {
			return
		}
		e := h.engine(c, ref, c.Query("expanded"))
		e.Notify(noticeLevel(c.Query("level")), c.Query("notice"))

		status := http.StatusOK
		loadErr := e.Load(c.Request.Context())
		if loadErr != nil {
			var se *thread.ServiceError
			if errors.As(loadErr, &se) && se.Status == http.StatusNotFound {
				status = http.StatusNotFound
			}
		}
		h.metrics.ObserveRender(string(kind), loadErr != nil)

		if id := queryID(c, "reply"); id != 0 {
			e.OpenReply(id)
		}
		if id := queryID(c, "edit"); id != 0 {
			e.StartEdit(id)
		}
		if id := queryID(c, "delete"); id != 0 {
			e.AskDelete(id)
		}
		e.SetDraft(c.Query("draft"))

		surface := e.Surface()

		var frag bytes.Buffer
		viewer := middleware.CurrentUser(c)
		if err := thread.WriteHTML(&frag, surface, thread.HTMLOptions{
			BasePath: basePath(ref),
			CanPost:  viewer != nil,
		}); err != nil {
			apperror.HandleError(c, apperror.Wrap(apperror.ErrInternal, "failed to render thread", err))
			return
		}

		var out bytes.Buffer
		if err := page.Execute(&out, pageView{
			Title:  pageTitle(kind, ref.ID),
			Styles: template.CSS(thread.Styles),
			Viewer: viewer,
			Thread: template.HTML(frag.String()),
		}); err != nil {
			apperror.HandleError(c, apperror.Wrap(apperror.ErrInternal, "failed to render page", err))
			return
		}
		c.Data(status, "text/html; charset=utf-8", out.Bytes())
	}
}

// New posts a top-level comment, or a reply when parent_id is set. A failed
// submit lands back on the same form with the text still in it.
func (h *ThreadPageHandler) New(kind models.EntityKind) gin.HandlerFunc {
	return h.action(kind, func(c *gin.Context, e *thread.Engine) (string, url.Values) {
		content := c.PostForm("content")
		if pid, err := strconv.ParseUint(c.PostForm("parent_id"), 10, 64); err == nil && pid > 0 {
			id := strconv.FormatUint(pid, 10)
			if err := e.Reply(c.Request.Context(), uint(pid), content); err != nil {
				return "comment-" + id, withDraft(url.Values{"reply": {id}}, content)
			}
			return "thread-" + id, nil
		}
		if err := e.Post(c.Request.Context(), content); err != nil {
			return "comments", withDraft(url.Values{}, content)
		}
		return "comments", nil
	})
}

// Edit saves new content for a comment. On failure the edit field reopens.
func (h *ThreadPageHandler) Edit(kind models.EntityKind) gin.HandlerFunc {
	return h.commentAction(kind, func(c *gin.Context, e *thread.Engine, id uint) url.Values {
		content := c.PostForm("content")
		if err := e.SaveEdit(c.Request.Context(), id, content); err != nil {
			return withDraft(url.Values{"edit": {strconv.FormatUint(uint64(id), 10)}}, content)
		}
		return nil
	})
}

// Delete soft-deletes a comment once the form carries confirm=yes. Without
// it the page comes back asking for confirmation.
func (h *ThreadPageHandler) Delete(kind models.EntityKind) gin.HandlerFunc {
	return h.commentAction(kind, func(c *gin.Context, e *thread.Engine, id uint) url.Values {
		confirmed := c.PostForm("confirm") == "yes"
		_ = e.Delete(c.Request.Context(), id, func(string) bool { return confirmed })
		if !confirmed && id != 0 {
			return url.Values{"delete": {strconv.FormatUint(uint64(id), 10)}}
		}
		return nil
	})
}

// Vote toggles the viewer's vote.
func (h *ThreadPageHandler) Vote(kind models.EntityKind) gin.HandlerFunc {
	return h.commentAction(kind, func(c *gin.Context, e *thread.Engine, id uint) url.Values {
		_ = e.Vote(c.Request.Context(), id, thread.VoteType(c.PostForm("vote_type")))
		return nil
	})
}

// action runs fn and redirects back to the page with the resulting notice.
// fn returns the anchor to land on and query to add, such as a form to reopen.
func (h *ThreadPageHandler) action(kind models.EntityKind, fn func(*gin.Context, *thread.Engine) (string, url.Values)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := threadRef(c, kind)
		if !ok {
			return
		}
		e := h.engine(c, ref, c.PostForm("expanded"))
		anchor, extra := fn(c, e)
		links := thread.NewLinks(basePath(ref), e.State())
		c.Redirect(http.StatusSeeOther, links.Redirect(e.LastNotice(), anchor, extra))
	}
}

func (h *ThreadPageHandler) commentAction(kind models.EntityKind, fn func(*gin.Context, *thread.Engine, uint) url.Values) gin.HandlerFunc {
	return h.action(kind, func(c *gin.Context, e *thread.Engine) (string, url.Values) {
		id, err := strconv.ParseUint(c.Param("cid"), 10, 64)
		if err != nil {
			id = 0
		}
		extra := fn(c, e, uint(id))
		return "comment-" + strconv.FormatUint(id, 10), extra
	})
}

// withDraft keeps non-blank submitted text so the reopened form shows it.
func withDraft(q url.Values, content string) url.Values {
	if strings.TrimSpace(content) != "" {
		q.Set("draft", content)
	}
	return q
}

func (h *ThreadPageHandler) engine(c *gin.Context, ref thread.Ref, expanded string) *thread.Engine {
	opts := thread.DefaultOptions()
	opts.PrefillMention = ref.Kind == thread.KindAnnouncement
	return thread.New(thread.Config{
		Source:  &serviceSource{comments: h.comments, viewer: middleware.CurrentUser(c)},
		Ref:     ref,
		Options: opts,
		State:   thread.ParseState(expanded),
		Logger:  middleware.Logger(c),
	})
}

func threadRef(c *gin.Context, kind models.EntityKind) (thread.Ref, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		apperror.HandleError(c, err)
		return thread.Ref{}, false
	}
	return thread.Ref{Kind: string(kind), ID: id}, true
}

func basePath(ref thread.Ref) string {
	return "/" + ref.Kind + "s/" + strconv.FormatUint(uint64(ref.ID), 10) + "/comments"
}

func pageTitle(kind models.EntityKind, id uint) string {
	name := "Bookmark"
	if kind == models.EntityAnnouncement {
		name = "Announcement"
	}
	return name + " #" + strconv.FormatUint(uint64(id), 10) + " · Comments"
}

func queryID(c *gin.Context, key string) uint {
	id, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func noticeLevel(raw string) thread.Level {
	switch l := thread.Level(raw); l {
	case thread.LevelSuccess, thread.LevelWarning, thread.LevelError:
		return l
	}
	return thread.LevelSuccess
}

// serviceSource is the in-process thread.Source: it calls the comment service
// directly on behalf of one viewer.
type serviceSource struct {
	comments *service.CommentService
	viewer   *models.User
}

var errLoginRequired = &thread.ServiceError{Status: http.StatusUnauthorized, Message: "Please log in to comment"}

func (s *serviceSource) ListThread(ctx context.Context, ref thread.Ref) ([]*thread.Comment, error) {
	kind, ok := models.ParseEntityKind(ref.Kind)
	if !ok {
		return nil, &thread.ServiceError{Status: http.StatusNotFound, Message: "unknown thread"}
	}
	tree, err := s.comments.ListThread(ctx, models.EntityRef{Kind: kind, ID: ref.ID}, s.viewer)
	if err != nil {
		return nil, serviceError(err)
	}
	out := make([]*thread.Comment, 0, len(tree))
	for _, r := range tree {
		out = append(out, toThreadComment(r))
	}
	return out, nil
}

func (s *serviceSource) CreateComment(ctx context.Context, in thread.CreateInput) (*thread.Comment, error) {
	if s.viewer == nil {
		return nil, errLoginRequired
	}
	req := models.CreateCommentRequest{Content: in.Content, ParentID: in.ParentID}
	id := in.Ref.ID
	switch models.EntityKind(in.Ref.Kind) {
	case models.EntityBookmark:
		req.BookmarkID = &id
	case models.EntityAnnouncement:
		req.AnnouncementID = &id
	}
	resp, err := s.comments.Create(ctx, req, s.viewer)
	if err != nil {
		return nil, serviceError(err)
	}
	return toThreadComment(resp), nil
}

func (s *serviceSource) EditComment(ctx context.Context, id uint, content string) (*thread.Comment, error) {
	if s.viewer == nil {
		return nil, errLoginRequired
	}
	resp, err := s.comments.Update(ctx, id, content, s.viewer)
	if err != nil {
		return nil, serviceError(err)
	}
	return toThreadComment(resp), nil
}

func (s *serviceSource) DeleteComment(ctx context.Context, id uint) error {
	if s.viewer == nil {
		return errLoginRequired
	}
	if err := s.comments.Delete(ctx, id, s.viewer); err != nil {
		return serviceError(err)
	}
	return nil
}

func (s *serviceSource) VoteComment(ctx context.Context, id uint, vote thread.VoteType) (*thread.VoteResult, error) {
	if s.viewer == nil {
		return nil, errLoginRequired
	}
	resp, err := s.comments.Vote(ctx, id, models.VoteType(vote), s.viewer)
	if err != nil {
		return nil, serviceError(err)
	}
	result := &thread.VoteResult{LikeCount: resp.LikeCount, DislikeCount: resp.DislikeCount}
	if resp.UserVote != nil {
		result.UserVote = thread.VoteType(*resp.UserVote)
	}
	return result, nil
}

// serviceError keeps client-facing messages and hides server failures behind
// the engine's generic notice.
func serviceError(err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	se := &thread.ServiceError{Status: appErr.Status()}
	if se.Status < http.StatusInternalServerError {
		se.Message = appErr.Message
	}
	return se
}

func toThreadComment(r *models.CommentResponse) *thread.Comment {
	c := &thread.Comment{
		ID:             r.ID,
		Content:        r.Content,
		Username:       r.Username,
		CreatedAt:      r.CreatedAt,
		Edited:         r.Edited,
		Deleted:        r.Deleted,
		ParentID:       r.ParentID,
		ParentUsername: r.ParentUsername,
		Depth:          r.Depth,
		LikeCount:      r.LikeCount,
		DislikeCount:   r.DislikeCount,
		CanEdit:        r.CanEdit,
		CanDelete:      r.CanDelete,
		Replies:        make([]*thread.Comment, 0, len(r.Replies)),
	}
	if r.UserVote != nil {
		c.UserVote = thread.VoteType(*r.UserVote)
	}
	for _, reply := range r.Replies {
		c.Replies = append(c.Replies, toThreadComment(reply))
	}
	return c
}

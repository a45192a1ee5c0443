package thread

import (
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTMLOptions controls the HTML projection.
type HTMLOptions struct {
	// BasePath is the page URL the thread lives at, e.g.
	// "/bookmarks/7/comments". Forms post to paths below it.
	BasePath string
	// CanPost shows the new comment form.
	CanPost bool
}

// Styles is the stylesheet the projection's class names expect. Pages embed
// it once.
const Styles = `
.comments { max-width: 760px; }
.comment-wrapper { margin-top: .75rem; }
.comment-item { padding: .6rem .8rem; border-radius: 6px; border: 1px solid #e5e7eb; }
.comment-item:target { background: #fef3c7; transition: background .6s; }
.comment-header { display: flex; gap: .5rem; align-items: center; font-size: .9rem; }
.comment-avatar { width: 1.75rem; height: 1.75rem; border-radius: 50%; background: #6366f1; color: #fff; display: inline-flex; align-items: center; justify-content: center; font-weight: 600; }
.comment-deleted .comment-avatar { background: #9ca3af; }
.comment-time, .comment-edited { color: #6b7280; font-size: .8rem; }
.comment-reply-to { color: #6b7280; font-size: .8rem; margin-top: .25rem; }
.comment-content { margin: .4rem 0; white-space: pre-wrap; word-break: break-word; }
.deleted-content { color: #9ca3af; font-style: italic; }
.comment-actions { display: flex; gap: .5rem; align-items: center; font-size: .85rem; }
.comment-actions form { display: inline; margin: 0; }
.comment-action-btn, .vote-btn { background: none; border: none; color: #4b5563; cursor: pointer; padding: 0; text-decoration: none; }
.vote-active { color: #4f46e5; font-weight: 600; }
.delete-confirm span { color: #b91c1c; }
.comment-thread { margin-left: 1.5rem; padding-left: .75rem; border-left: 2px solid #e5e7eb; }
.comment-thread-flat { margin-left: 0; }
.comment-collapse-btn { display: inline-block; margin-top: .5rem; font-size: .85rem; color: #4f46e5; text-decoration: none; }
.reply-form, .comment-edit, .comment-new { margin-top: .5rem; }
.reply-form textarea, .comment-edit textarea, .comment-new textarea { width: 100%; }
.no-comments { color: #6b7280; }
.toast { padding: .5rem .75rem; border-radius: 6px; margin-bottom: .75rem; }
.toast-success { background: #dcfce7; }
.toast-warning { background: #fef9c3; }
.toast-error { background: #fee2e2; }
`

const threadTemplate = `
{{define "surface"}}
<section class="comments" id="comments">
{{with .Surface.Notice}}<div class="toast toast-{{.Level}}" role="status">{{.Message}}</div>{{end}}
{{if .Surface.Loaded}}
{{if .CanPost}}
<form class="comment-new" method="post" action="{{.Links.NewURL}}">
<input type="hidden" name="expanded" value="{{.Links.Expanded}}">
<textarea name="content" rows="3" placeholder="Write a comment..." maxlength="2000">{{.Surface.Draft}}</textarea>
<button type="submit" class="btn btn-primary">Post</button>
</form>
{{end}}
<div id="commentsContainer">
{{if .Surface.Empty}}<p class="no-comments" id="noComments">No comments yet. Be the first to comment!</p>
{{else}}{{range .Surface.Roots}}{{template "comment" (view $.Links .)}}{{end}}{{end}}
</div>
{{end}}
</section>
{{end}}

{{define "comment"}}{{$n := .Node}}{{$l := .Links}}
<div class="comment-wrapper">
<div class="comment-item{{if $n.Deleted}} comment-deleted{{end}}" id="comment-{{$n.ID}}" data-id="{{$n.ID}}">
<div class="comment-header">
<span class="comment-avatar">{{$n.Avatar}}</span>
<strong class="comment-author">{{$n.DisplayName}}</strong>
<span class="comment-time" title="{{stamp $n.CreatedAt}}">{{$n.Time}}</span>
{{if $n.Edited}}<span class="comment-edited">(edited)</span>{{end}}
</div>
{{with $n.ReplyTo}}<div class="comment-reply-to">&#8627; replying to {{if .ParentDeleted}}<em>{{.Username}}</em>{{else}}<a href="#comment-{{.ParentID}}">@{{.Username}}</a>{{end}}</div>{{end}}
{{if $n.Editing}}
<form class="comment-edit" method="post" action="{{$l.EditURL $n.ID}}">
<input type="hidden" name="expanded" value="{{$l.Expanded}}">
<textarea name="content" rows="2" maxlength="2000" autofocus>{{$n.Content}}</textarea>
<a class="comment-action-btn" href="{{$l.ReloadURL}}">Cancel</a>
<button type="submit" class="btn btn-primary">Save</button>
</form>
{{else}}
<div class="comment-content{{if $n.Deleted}} deleted-content{{end}}" id="content-{{$n.ID}}">{{$n.Content}}</div>
{{end}}
{{if not $n.Deleted}}
<div class="comment-actions">
{{with $n.Votes}}
<form class="vote-form" method="post" action="{{$l.VoteURL $n.ID}}">
<input type="hidden" name="expanded" value="{{$l.Expanded}}">
<button type="submit" class="vote-btn{{if .Liked}} vote-active{{end}}" name="vote_type" value="LIKE">&#9650; {{.Likes}}</button>
<button type="submit" class="vote-btn{{if .Disliked}} vote-active{{end}}" name="vote_type" value="DISLIKE">&#9660; {{.Dislikes}}</button>
</form>
{{end}}
{{if $n.CanReply}}<a class="comment-action-btn" href="{{$l.ReplyURL $n.ID}}">Reply</a>{{end}}
{{if $n.CanEdit}}<a class="comment-action-btn" href="{{$l.EditFormURL $n.ID}}">Edit</a>{{end}}
{{if $n.ConfirmDelete}}
<form class="delete-confirm" method="post" action="{{$l.DeleteURL $n.ID}}">
<span>Are you sure you want to delete this comment?</span>
<input type="hidden" name="expanded" value="{{$l.Expanded}}">
<input type="hidden" name="confirm" value="yes">
<a class="comment-action-btn" href="{{$l.ReloadURL}}">Cancel</a>
<button type="submit" class="comment-action-btn">Delete</button>
</form>
{{else if $n.CanDelete}}
<form class="delete-form" method="post" action="{{$l.DeleteURL $n.ID}}" onsubmit="if (!window.confirm('Are you sure you want to delete this comment?')) return false; this.elements.confirm.value = 'yes';">
<input type="hidden" name="expanded" value="{{$l.Expanded}}">
<input type="hidden" name="confirm" value="">
<button type="submit" class="comment-action-btn">Delete</button>
</form>
{{end}}
</div>
{{end}}
{{with $n.ReplyForm}}
<form class="reply-form" method="post" action="{{$l.NewURL}}">
<div class="reply-form-label">Replying to <strong>{{.Username}}</strong> <a class="comment-action-btn" href="{{$l.ReloadURL}}">&times;</a></div>
<input type="hidden" name="expanded" value="{{$l.Expanded}}">
<input type="hidden" name="parent_id" value="{{.ParentID}}">
<textarea name="content" rows="2" maxlength="2000" placeholder="Write a reply..." autofocus>{{.Prefill}}</textarea>
<a class="comment-action-btn" href="{{$l.ReloadURL}}">Cancel</a>
<button type="submit" class="btn btn-primary">Reply</button>
</form>
{{end}}
</div>
{{with $n.Thread}}
<div class="{{if .Indented}}comment-thread{{else}}comment-thread-flat{{end}}" id="thread-{{.ParentID}}">
{{with .Expand}}<a class="comment-collapse-btn" href="{{$l.ExpandURL .CommentID}}">{{.Label}}</a>{{end}}
{{range .Replies}}{{template "comment" (view $l .)}}{{end}}
{{with .Collapse}}<a class="comment-collapse-btn" href="{{$l.CollapseURL .CommentID}}">{{.Label}}</a>{{end}}
</div>
{{end}}
</div>
{{end}}
`

var tmpl = template.Must(template.New("thread").Funcs(template.FuncMap{
	"view":  func(l *Links, n *Node) commentView { return commentView{Node: n, Links: l} },
	"stamp": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}).Parse(threadTemplate))

type commentView struct {
	Node  *Node
	Links *Links
}

type surfaceView struct {
	Surface *Surface
	Links   *Links
	CanPost bool
}

// WriteHTML writes the thread as an HTML fragment. All comment text is
// escaped. A nil surface writes nothing.
func WriteHTML(w io.Writer, s *Surface, opts HTMLOptions) error {
	if w == nil || s == nil {
		return nil
	}
	return tmpl.ExecuteTemplate(w, "surface", surfaceView{
		Surface: s,
		Links:   NewLinks(opts.BasePath, s.State),
		CanPost: opts.CanPost,
	})
}

// Links builds the URLs of a server-rendered thread page. Every link and
// form carries the expansion state so it survives the reload.
type Links struct {
	base  string
	state *State
}

// NewLinks returns links rooted at base.
func NewLinks(base string, state *State) *Links {
	return &Links{base: strings.TrimRight(base, "/"), state: state}
}

// Expanded is the encoded expansion state.
func (l *Links) Expanded() string { return l.state.String() }

// ReloadURL reloads the page with the current state.
func (l *Links) ReloadURL() string { return l.page(l.state, nil, "") }

// ExpandURL reloads with id expanded.
func (l *Links) ExpandURL(id uint) string {
	return l.page(l.state.With(id), nil, "thread-"+idString(id))
}

// CollapseURL reloads with id collapsed.
func (l *Links) CollapseURL(id uint) string {
	return l.page(l.state.Without(id), nil, "comment-"+idString(id))
}

// ReplyURL reloads with the reply form of id open.
func (l *Links) ReplyURL(id uint) string {
	return l.page(l.state, url.Values{"reply": {idString(id)}}, "comment-"+idString(id))
}

// EditFormURL reloads with the edit field of id open.
func (l *Links) EditFormURL(id uint) string {
	return l.page(l.state, url.Values{"edit": {idString(id)}}, "comment-"+idString(id))
}

// NewURL is the form target for comments and replies.
func (l *Links) NewURL() string { return l.base + "/new" }

// EditURL is the form target for saving an edit.
func (l *Links) EditURL(id uint) string { return l.base + "/" + idString(id) + "/edit" }

// DeleteURL is the form target for deleting.
func (l *Links) DeleteURL(id uint) string { return l.base + "/" + idString(id) + "/delete" }

// VoteURL is the form target for voting.
func (l *Links) VoteURL(id uint) string { return l.base + "/" + idString(id) + "/vote" }

// Redirect is the page URL after a form post, carrying state, a notice and
// any extra query such as a form to reopen.
func (l *Links) Redirect(n *Notice, anchor string, extra url.Values) string {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = append(q[k], vs...)
	}
	if n != nil && n.Message != "" {
		q.Set("notice", n.Message)
		q.Set("level", string(n.Level))
	}
	return l.page(l.state, q, anchor)
}

func (l *Links) page(state *State, extra url.Values, anchor string) string {
	q := url.Values{}
	if enc := state.String(); enc != "" {
		q.Set("expanded", enc)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u := l.base
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

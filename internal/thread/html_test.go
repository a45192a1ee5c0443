package thread

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderHTML(t *testing.T, s *Surface, canPost bool) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, s, HTMLOptions{BasePath: "/bookmarks/7/comments", CanPost: canPost}))
	return buf.String()
}

func surfaceOf(roots []*Comment, state *State) *Surface {
	r := Renderer{Options: testOptions(), State: state}
	nodes := r.RenderAll(roots)
	return &Surface{Ref: bookmark7, Loaded: true, Empty: len(nodes) == 0, Roots: nodes, State: state}
}

func TestHTMLEscapesContent(t *testing.T) {
	root := cm(1, "<b>mallory</b>")
	root.Content = `<script>alert("x")</script>`
	out := renderHTML(t, surfaceOf(tree(root), nil), false)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>mallory")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&lt;b&gt;mallory&lt;/b&gt;")
}

func TestHTMLEmptyPlaceholder(t *testing.T) {
	out := renderHTML(t, surfaceOf(nil, nil), true)
	assert.Contains(t, out, "No comments yet. Be the first to comment!")
	assert.Contains(t, out, `action="/bookmarks/7/comments/new"`)

	notLoaded := renderHTML(t, &Surface{Notice: &Notice{Level: LevelError, Message: "Error loading comments"}}, true)
	assert.NotContains(t, notLoaded, "No comments yet")
	assert.NotContains(t, notLoaded, "comment-new")
	assert.Contains(t, notLoaded, "toast-error")
	assert.Contains(t, notLoaded, "Error loading comments")
}

func TestHTMLCapsIndentation(t *testing.T) {
	out := renderHTML(t, surfaceOf(tree(chain(5)), nil), false)
	assert.Equal(t, 2, strings.Count(out, `class="comment-thread"`))
	assert.Equal(t, 2, strings.Count(out, `class="comment-thread-flat"`))
	assert.Contains(t, out, `href="#comment-3"`)
	assert.Contains(t, out, "@userc")
}

func TestHTMLCollapseControls(t *testing.T) {
	out := renderHTML(t, surfaceOf(fourReplies(), nil), false)
	expand := strings.Index(out, "View 2 more replies")
	first := strings.Index(out, `id="comment-4"`)
	require.NotEqual(t, -1, expand)
	require.NotEqual(t, -1, first)
	assert.Less(t, expand, first, "expand control renders above the preview")
	assert.NotContains(t, out, `id="comment-2"`)
	assert.Contains(t, out, `href="/bookmarks/7/comments?expanded=1#thread-1"`)

	out = renderHTML(t, surfaceOf(fourReplies(), NewState(1)), false)
	hide := strings.Index(out, HideLabel)
	last := strings.Index(out, `id="comment-5"`)
	assert.Greater(t, hide, last, "hide control renders below the replies")
	assert.Contains(t, out, `value="1"`)
}

func TestHTMLDeletedParentBacklink(t *testing.T) {
	mid := cm(2, "bob", cm(3, "carol"))
	mid.Deleted = true
	out := renderHTML(t, surfaceOf(tree(cm(1, "alice", mid)), nil), false)
	assert.Contains(t, out, "replying to <em>[deleted]</em>")
	assert.NotContains(t, out, `href="#comment-2"`)
}

func TestLinks(t *testing.T) {
	l := NewLinks("/announcements/3/comments/", NewState(4))
	assert.Equal(t, "/announcements/3/comments?expanded=4", l.ReloadURL())
	assert.Equal(t, "/announcements/3/comments?expanded=4%2C9#thread-9", l.ExpandURL(9))
	assert.Equal(t, "/announcements/3/comments#comment-4", l.CollapseURL(4))
	assert.Equal(t, "/announcements/3/comments?expanded=4&reply=8#comment-8", l.ReplyURL(8))
	assert.Equal(t, "/announcements/3/comments/8/delete", l.DeleteURL(8))
	assert.Equal(t, "/announcements/3/comments?expanded=4&level=success&notice=Reply+posted#comment-8",
		l.Redirect(&Notice{Level: LevelSuccess, Message: "Reply posted"}, "comment-8", nil))
	assert.Equal(t, "/announcements/3/comments?draft=hi+there&expanded=4&level=warning&notice=Please+enter+a+reply&reply=8#comment-8",
		l.Redirect(&Notice{Level: LevelWarning, Message: "Please enter a reply"}, "comment-8",
			url.Values{"reply": {"8"}, "draft": {"hi there"}}))
}

func TestHTMLDeleteNeedsConfirmation(t *testing.T) {
	roots := tree(cm(1, "alice"), cm(2, "bob"))
	doc := parseHTML(t, renderHTML(t, surfaceOf(roots, nil), false))

	form := doc.Find("#comment-1 form.delete-form")
	require.Equal(t, 1, form.Length())
	assert.Contains(t, form.AttrOr("onsubmit", ""), "window.confirm")
	confirm := form.Find(`input[name="confirm"]`)
	require.Equal(t, 1, confirm.Length())
	assert.Equal(t, "", confirm.AttrOr("value", "missing"))
	assert.Equal(t, 0, doc.Find(".delete-confirm").Length())

	s := surfaceOf(roots, nil)
	s.Roots = (&Renderer{Options: testOptions(), Deleting: 2}).RenderAll(roots)
	doc = parseHTML(t, renderHTML(t, s, false))
	ask := doc.Find("#comment-2 form.delete-confirm")
	require.Equal(t, 1, ask.Length())
	assert.Equal(t, "/bookmarks/7/comments/2/delete", ask.AttrOr("action", ""))
	assert.Equal(t, "yes", ask.Find(`input[name="confirm"]`).AttrOr("value", ""))
	assert.Contains(t, ask.Text(), DeletePrompt)
	assert.Equal(t, 1, doc.Find("#comment-1 form.delete-form").Length())
	assert.Equal(t, 0, doc.Find("#comment-2 form.delete-form").Length())
}

func TestHTMLNewCommentDraft(t *testing.T) {
	s := surfaceOf(nil, nil)
	s.Draft = "<i>draft</i>"
	doc := parseHTML(t, renderHTML(t, s, true))
	assert.Equal(t, "<i>draft</i>", doc.Find(".comment-new textarea").Text())
}

func TestWriteText(t *testing.T) {
	root := cm(1, "alice", cm(2, "bob", cm(3, "carol", cm(4, "dave"))))
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, surfaceOf(tree(root), nil)))
	out := buf.String()

	assert.Contains(t, out, "[A] alice · 1h ago  #1\n")
	assert.Contains(t, out, "\n  [B] bob")
	assert.Contains(t, out, "\n    [C] carol")
	assert.Contains(t, out, "\n    [D] dave")
	assert.Contains(t, out, "↳ replying to @carol (#3)")

	buf.Reset()
	require.NoError(t, WriteText(&buf, surfaceOf(nil, nil)))
	assert.Equal(t, "No comments yet. Be the first to comment!\n", buf.String())
}

func parseHTML(t *testing.T, out string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	return doc
}

func TestHTMLNesting(t *testing.T) {
	doc := parseHTML(t, renderHTML(t, surfaceOf(tree(chain(5)), nil), false))

	deepest := doc.Find("#comment-5")
	require.Equal(t, 1, deepest.Length())
	assert.Equal(t, 2, deepest.ParentsFiltered(".comment-thread").Length())
	assert.Equal(t, 2, deepest.ParentsFiltered(".comment-thread-flat").Length())
	assert.True(t, doc.Find("#thread-2").HasClass("comment-thread"))
	assert.True(t, doc.Find("#thread-3").HasClass("comment-thread-flat"))
	assert.Equal(t, 0, doc.Find("#comment-1 .comment-reply-to").Length())
	assert.Equal(t, "@userb", doc.Find("#comment-3 .comment-reply-to a").Text())

	doc = parseHTML(t, renderHTML(t, surfaceOf(fourReplies(), nil), false))
	thread := doc.Find("#thread-1")
	assert.True(t, thread.Children().First().Is("a.comment-collapse-btn"))
	var shown []string
	thread.ChildrenFiltered(".comment-wrapper").Each(func(_ int, s *goquery.Selection) {
		shown = append(shown, s.Find(".comment-item").First().AttrOr("id", ""))
	})
	assert.Equal(t, []string{"comment-4", "comment-5"}, shown)
}

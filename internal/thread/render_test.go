package thread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	o := DefaultOptions()
	o.Now = func() time.Time { return testNow }
	return o
}

// cm builds a comment owned by user with the given replies.
func cm(id uint, user string, replies ...*Comment) *Comment {
	return &Comment{
		ID:        id,
		Username:  user,
		Content:   "comment " + user,
		CreatedAt: testNow.Add(-time.Hour),
		CanEdit:   true,
		CanDelete: true,
		Replies:   replies,
	}
}

// tree fills in depth and parent fields the way the comment API serves them.
func tree(roots ...*Comment) []*Comment {
	var walk func(c *Comment, parent *Comment, depth int)
	walk = func(c *Comment, parent *Comment, depth int) {
		c.Depth = depth
		if parent != nil {
			pid := parent.ID
			c.ParentID = &pid
			c.ParentUsername = parent.Username
			if parent.Deleted {
				c.ParentUsername = DeletedName
			}
		}
		for _, r := range c.Replies {
			walk(r, c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, nil, 0)
	}
	return roots
}

func chain(n int) *Comment {
	var leaf *Comment
	for i := n; i >= 1; i-- {
		if leaf == nil {
			leaf = cm(uint(i), "user"+string(rune('a'+i-1)))
		} else {
			leaf = cm(uint(i), "user"+string(rune('a'+i-1)), leaf)
		}
	}
	return leaf
}

func TestRenderFlattensPastVisualDepth(t *testing.T) {
	roots := tree(chain(5))
	r := Renderer{Options: testOptions()}
	nodes := r.RenderAll(roots)
	require.Len(t, nodes, 1)

	n0 := nodes[0]
	require.NotNil(t, n0.Thread)
	assert.True(t, n0.Thread.Indented, "depth 1 container is indented")
	n1 := n0.Thread.Replies[0]
	assert.True(t, n1.Thread.Indented, "depth 2 container is indented")
	n2 := n1.Thread.Replies[0]
	assert.False(t, n2.Thread.Indented, "no indentation past depth 2")
	n3 := n2.Thread.Replies[0]
	assert.False(t, n3.Thread.Indented)
	n4 := n3.Thread.Replies[0]

	assert.Nil(t, n0.ReplyTo)
	assert.Nil(t, n1.ReplyTo)
	for _, n := range []*Node{n2, n3, n4} {
		require.NotNil(t, n.ReplyTo, "node %d", n.ID)
		assert.Equal(t, n.ID-1, n.ReplyTo.ParentID)
		assert.False(t, n.ReplyTo.ParentDeleted)
	}
	assert.Equal(t, "userc", n3.ReplyTo.Username)
	assert.Equal(t, 4, n4.VisualDepth)
}

func TestRenderCollapseBoundary(t *testing.T) {
	three := tree(cm(1, "root", cm(2, "a"), cm(3, "b"), cm(4, "c")))
	four := tree(cm(1, "root", cm(2, "a"), cm(3, "b"), cm(4, "c"), cm(5, "d")))
	r := Renderer{Options: testOptions()}

	n := r.Render(three[0], 0)
	assert.Len(t, n.Thread.Replies, 3)
	assert.Nil(t, n.Thread.Expand)
	assert.Nil(t, n.Thread.Collapse)

	n = r.Render(four[0], 0)
	require.NotNil(t, n.Thread.Expand)
	assert.Equal(t, "View 2 more replies", n.Thread.Expand.Label)
	assert.Equal(t, 2, n.Thread.Expand.Hidden)
	assert.Nil(t, n.Thread.Collapse)
	require.Len(t, n.Thread.Replies, 2)
	assert.Equal(t, uint(4), n.Thread.Replies[0].ID, "preview keeps the newest replies")
	assert.Equal(t, uint(5), n.Thread.Replies[1].ID)
}

func TestRenderSingularExpandLabel(t *testing.T) {
	roots := tree(cm(1, "root", cm(2, "a"), cm(3, "b"), cm(4, "c"), cm(5, "d")))
	o := testOptions()
	o.PreviewCount = 3
	r := Renderer{Options: o}

	n := r.Render(roots[0], 0)
	require.NotNil(t, n.Thread.Expand)
	assert.Equal(t, "View 1 more reply", n.Thread.Expand.Label)
	assert.Len(t, n.Thread.Replies, 3)
}

func TestRenderExpandedShowsAllWithHide(t *testing.T) {
	roots := tree(cm(1, "root", cm(2, "a"), cm(3, "b"), cm(4, "c"), cm(5, "d")))
	r := Renderer{Options: testOptions(), State: NewState(1)}

	n := r.Render(roots[0], 0)
	assert.Nil(t, n.Thread.Expand)
	require.NotNil(t, n.Thread.Collapse)
	assert.Equal(t, HideLabel, n.Thread.Collapse.Label)
	assert.Len(t, n.Thread.Replies, 4)
}

func TestRenderTombstone(t *testing.T) {
	root := cm(1, "alice", cm(2, "bob"))
	root.Deleted = true
	root.Content = "secret"
	root.LikeCount = 3
	roots := tree(root)
	r := Renderer{Options: testOptions(), Editing: 1, Replying: 1}

	n := r.Render(roots[0], 0)
	assert.Equal(t, DeletedAvatar, n.Avatar)
	assert.Equal(t, DeletedName, n.DisplayName)
	assert.Equal(t, DeletedContent, n.Content)
	assert.False(t, n.CanReply)
	assert.False(t, n.CanEdit)
	assert.False(t, n.CanDelete)
	assert.False(t, n.Editing)
	assert.Nil(t, n.Votes)
	assert.Nil(t, n.ReplyForm)

	require.NotNil(t, n.Thread)
	require.Len(t, n.Thread.Replies, 1)
	assert.Equal(t, "bob", n.Thread.Replies[0].DisplayName)
}

func TestRenderNestedCollapseUnderExpandedRoot(t *testing.T) {
	gone := cm(2, "bob", cm(6, "e"), cm(7, "f"), cm(8, "g"), cm(9, "h"), cm(10, "i"))
	gone.Deleted = true
	roots := tree(cm(1, "root", gone, cm(3, "a"), cm(4, "b"), cm(5, "c")))
	r := Renderer{Options: testOptions(), State: NewState(1)}

	n := r.Render(roots[0], 0)
	require.NotNil(t, n.Thread.Collapse)
	require.Len(t, n.Thread.Replies, 4)

	tomb := n.Thread.Replies[0]
	assert.Equal(t, DeletedName, tomb.DisplayName)
	require.NotNil(t, tomb.Thread)
	require.NotNil(t, tomb.Thread.Expand, "a deleted comment still collapses its replies")
	assert.Equal(t, "View 3 more replies", tomb.Thread.Expand.Label)
	assert.Nil(t, tomb.Thread.Collapse)
	require.Len(t, tomb.Thread.Replies, 2)
	assert.Equal(t, uint(9), tomb.Thread.Replies[0].ID)
	assert.Equal(t, uint(10), tomb.Thread.Replies[1].ID)

	r.State = NewState(1, 2)
	tomb = r.Render(roots[0], 0).Thread.Replies[0]
	assert.Len(t, tomb.Thread.Replies, 5)
	assert.NotNil(t, tomb.Thread.Collapse)

	r.State = NewState(2)
	n = r.Render(roots[0], 0)
	require.NotNil(t, n.Thread.Expand)
	assert.Equal(t, []uint{4, 5}, []uint{n.Thread.Replies[0].ID, n.Thread.Replies[1].ID})
}

func TestRenderBacklinkToDeletedParent(t *testing.T) {
	mid := cm(2, "bob", cm(3, "carol"))
	mid.Deleted = true
	roots := tree(cm(1, "alice", mid))
	r := Renderer{Options: testOptions()}

	n := r.Render(roots[0], 0)
	leaf := n.Thread.Replies[0].Thread.Replies[0]
	require.NotNil(t, leaf.ReplyTo)
	assert.True(t, leaf.ReplyTo.ParentDeleted)
	assert.Equal(t, DeletedName, leaf.ReplyTo.Username)
}

func TestRenderActions(t *testing.T) {
	root := cm(1, "alice")
	root.CanEdit = false
	root.CanDelete = false
	root.UserVote = VoteLike
	root.LikeCount = 2
	root.DislikeCount = 1
	deep := cm(2, "bob")
	deep.Depth = MaxReplyDepth

	r := Renderer{Options: testOptions()}
	n := r.Render(root, 0)
	assert.True(t, n.CanReply)
	assert.False(t, n.CanEdit)
	assert.False(t, n.CanDelete)
	require.NotNil(t, n.Votes)
	assert.True(t, n.Votes.Liked)
	assert.False(t, n.Votes.Disliked)
	assert.Equal(t, 1, n.Votes.Score())
	assert.Equal(t, "A", n.Avatar)
	assert.Equal(t, "1h ago", n.Time)

	assert.False(t, r.Render(deep, 0).CanReply, "no reply at the depth ceiling")

	noVotes := testOptions()
	noVotes.EnableVoting = false
	r = Renderer{Options: noVotes}
	assert.Nil(t, r.Render(root, 0).Votes)
}

func TestRenderOpenForms(t *testing.T) {
	roots := tree(cm(1, "alice"), cm(2, "bob"))

	r := Renderer{Options: testOptions(), Editing: 1, Replying: 2}
	nodes := r.RenderAll(roots)
	assert.True(t, nodes[0].Editing)
	assert.Nil(t, nodes[0].ReplyForm)
	assert.False(t, nodes[1].Editing)
	require.NotNil(t, nodes[1].ReplyForm)
	assert.Equal(t, "", nodes[1].ReplyForm.Prefill)

	o := testOptions()
	o.PrefillMention = true
	r = Renderer{Options: o, Replying: 2}
	nodes = r.RenderAll(roots)
	assert.Equal(t, "@bob ", nodes[1].ReplyForm.Prefill)
}

func TestRenderDraftAndDeleteConfirmation(t *testing.T) {
	roots := tree(cm(1, "alice"), cm(2, "bob"))

	o := testOptions()
	o.PrefillMention = true
	r := Renderer{Options: o, Editing: 1, Replying: 2, Draft: "kept text"}
	nodes := r.RenderAll(roots)
	assert.Equal(t, "kept text", nodes[0].Content)
	require.NotNil(t, nodes[1].ReplyForm)
	assert.Equal(t, "kept text", nodes[1].ReplyForm.Prefill)

	r = Renderer{Options: testOptions(), Deleting: 2}
	nodes = r.RenderAll(roots)
	assert.False(t, nodes[0].ConfirmDelete)
	assert.True(t, nodes[1].ConfirmDelete)

	roots[1].CanDelete = false
	assert.False(t, r.RenderAll(roots)[1].ConfirmDelete)
}

func TestRenderNil(t *testing.T) {
	r := Renderer{}
	assert.Nil(t, r.Render(nil, 0))
	assert.Empty(t, r.RenderAll([]*Comment{nil}))
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(testNow.Add(-tt.ago), testNow))
	}
	old := testNow.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Local().Format("Jan 2, 2006"), RelativeTime(old, testNow))
	assert.Equal(t, "", RelativeTime(time.Time{}, testNow))
}

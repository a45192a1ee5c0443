package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListThread(ctx context.Context, ref Ref) ([]*Comment, error) {
	args := m.Called(ctx, ref)
	roots, _ := args.Get(0).([]*Comment)
	return roots, args.Error(1)
}

func (m *mockSource) CreateComment(ctx context.Context, in CreateInput) (*Comment, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*Comment)
	return c, args.Error(1)
}

func (m *mockSource) EditComment(ctx context.Context, id uint, content string) (*Comment, error) {
	args := m.Called(ctx, id, content)
	c, _ := args.Get(0).(*Comment)
	return c, args.Error(1)
}

func (m *mockSource) DeleteComment(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSource) VoteComment(ctx context.Context, id uint, vote VoteType) (*VoteResult, error) {
	args := m.Called(ctx, id, vote)
	r, _ := args.Get(0).(*VoteResult)
	return r, args.Error(1)
}

var bookmark7 = Ref{Kind: KindBookmark, ID: 7}

func newTestEngine(src Source, notices *[]Notice) *Engine {
	var n Notifier
	if notices != nil {
		n = NotifierFunc(func(x Notice) { *notices = append(*notices, x) })
	}
	return New(Config{Source: src, Ref: bookmark7, Options: testOptions(), Notifier: n})
}

func fourReplies() []*Comment {
	return tree(cm(1, "root", cm(2, "a"), cm(3, "b"), cm(4, "c"), cm(5, "d")))
}

func TestEngineLoadAndSurface(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(fourReplies(), nil).Once()

	e := newTestEngine(src, nil)
	require.NoError(t, e.Load(context.Background()))

	s := e.Surface()
	assert.True(t, s.Loaded)
	assert.False(t, s.Empty)
	require.Len(t, s.Roots, 1)
	assert.Equal(t, "View 2 more replies", s.Roots[0].Thread.Expand.Label)
	src.AssertExpectations(t)
}

func TestEngineEmptyThread(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return([]*Comment{}, nil)

	e := newTestEngine(src, nil)
	require.NoError(t, e.Load(context.Background()))
	s := e.Surface()
	assert.True(t, s.Empty)
	assert.Empty(t, s.Roots)
}

func TestEngineExpandSurvivesReloads(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(fourReplies(), nil)
	src.On("VoteComment", mock.Anything, uint(3), VoteLike).
		Return(&VoteResult{LikeCount: 1, UserVote: VoteLike}, nil).Once()

	e := newTestEngine(src, nil)
	require.NoError(t, e.Load(context.Background()))
	require.NoError(t, e.Expand(context.Background(), 1))

	n := e.Surface().Roots[0]
	assert.Len(t, n.Thread.Replies, 4)
	assert.Equal(t, HideLabel, n.Thread.Collapse.Label)

	require.NoError(t, e.Vote(context.Background(), 3, VoteLike))
	n = e.Surface().Roots[0]
	assert.Len(t, n.Thread.Replies, 4, "expansion persists across the reload after a mutation")

	require.NoError(t, e.Collapse(context.Background(), 1))
	n = e.Surface().Roots[0]
	assert.Len(t, n.Thread.Replies, 2)
	src.AssertNumberOfCalls(t, "ListThread", 4)
}

func TestEngineReplyRoundTrip(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return([]*Comment{}, nil)
	src.On("CreateComment", mock.Anything, mock.MatchedBy(func(in CreateInput) bool {
		return in.Ref == bookmark7 && in.ParentID != nil && *in.ParentID == 42 && in.Content == "hi there"
	})).Return(&Comment{ID: 43}, nil).Once()

	var notices []Notice
	e := newTestEngine(src, &notices)
	require.NoError(t, e.Reply(context.Background(), 42, "  hi there \n"))

	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "ListThread", 1)
	assert.True(t, e.State().Expanded(42))
	assert.Equal(t, []Notice{{Level: LevelSuccess, Message: "Reply posted"}}, notices)
}

func TestEngineValidation(t *testing.T) {
	src := new(mockSource)
	var notices []Notice
	e := newTestEngine(src, &notices)
	ctx := context.Background()

	assert.ErrorIs(t, e.Post(ctx, "   "), ErrEmptyContent)
	assert.ErrorIs(t, e.Reply(ctx, 1, ""), ErrEmptyContent)
	assert.ErrorIs(t, e.Reply(ctx, 0, "hello"), ErrInvalidInput)
	assert.ErrorIs(t, e.SaveEdit(ctx, 1, "\t"), ErrEmptyContent)
	assert.ErrorIs(t, e.Vote(ctx, 1, "MEH"), ErrInvalidInput)

	require.Len(t, notices, 5)
	assert.Equal(t, "Please enter a comment", notices[0].Message)
	assert.Equal(t, "Please enter a reply", notices[1].Message)
	assert.Equal(t, LevelWarning, notices[0].Level)
	src.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "ListThread", mock.Anything, mock.Anything)
}

func TestEngineLoadFailureKeepsTree(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(fourReplies(), nil).Once()
	src.On("ListThread", mock.Anything, bookmark7).Return(nil, errors.New("connection refused")).Once()

	var notices []Notice
	e := newTestEngine(src, &notices)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))
	require.Error(t, e.Load(ctx))

	s := e.Surface()
	assert.True(t, s.Loaded)
	assert.Len(t, s.Roots, 1)
	require.NotNil(t, s.Notice)
	assert.Equal(t, Notice{Level: LevelError, Message: "Error loading comments"}, *s.Notice)
}

func TestEngineSurfacesServiceMessage(t *testing.T) {
	src := new(mockSource)
	src.On("CreateComment", mock.Anything, mock.Anything).
		Return(nil, &ServiceError{Status: 400, Message: "maximum reply depth exceeded"}).Once()
	src.On("EditComment", mock.Anything, uint(9), "new").
		Return(nil, &ServiceError{Status: 502}).Once()

	var notices []Notice
	e := newTestEngine(src, &notices)
	ctx := context.Background()

	require.Error(t, e.Reply(ctx, 5, "deep"))
	require.Error(t, e.SaveEdit(ctx, 9, "new"))

	require.Len(t, notices, 2)
	assert.Equal(t, "maximum reply depth exceeded", notices[0].Message)
	assert.Equal(t, "Error updating comment", notices[1].Message)
	assert.False(t, e.State().Expanded(5), "failed reply leaves the state alone")
	src.AssertNotCalled(t, "ListThread", mock.Anything, mock.Anything)
}

func TestEngineDeleteNeedsConfirmation(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return([]*Comment{}, nil)
	src.On("DeleteComment", mock.Anything, uint(4)).Return(nil).Once()

	e := newTestEngine(src, nil)
	ctx := context.Background()

	var prompt string
	decline := func(p string) bool { prompt = p; return false }
	require.NoError(t, e.Delete(ctx, 4, decline))
	assert.Equal(t, DeletePrompt, prompt)
	src.AssertNotCalled(t, "DeleteComment", mock.Anything, mock.Anything)

	require.NoError(t, e.Delete(ctx, 4, Always))
	src.AssertExpectations(t)
	assert.Equal(t, "Comment deleted", e.LastNotice().Message)
}

func TestEngineEditLifecycle(t *testing.T) {
	roots := tree(cm(1, "alice"), cm(2, "bob"))
	roots[1].CanEdit = false
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(roots, nil)
	src.On("EditComment", mock.Anything, uint(1), "updated").Return(&Comment{ID: 1}, nil).Once()

	e := newTestEngine(src, nil)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	_, ok := e.StartEdit(2)
	assert.False(t, ok)
	seed, ok := e.StartEdit(1)
	require.True(t, ok)
	assert.Equal(t, "comment alice", seed)
	assert.True(t, e.Surface().Roots[0].Editing)

	require.NoError(t, e.CancelEdit(ctx))
	assert.False(t, e.Surface().Roots[0].Editing)

	e.StartEdit(1)
	require.NoError(t, e.SaveEdit(ctx, 1, "updated"))
	assert.Zero(t, e.Editing())
	src.AssertExpectations(t)
}

func TestEngineOpenReply(t *testing.T) {
	deep := cm(2, "bob")
	roots := tree(cm(1, "alice"), deep)
	deep.Depth = MaxReplyDepth
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(roots, nil)

	e := newTestEngine(src, nil)
	require.NoError(t, e.Load(context.Background()))
	assert.False(t, e.OpenReply(2))
	assert.False(t, e.OpenReply(99))
	assert.True(t, e.OpenReply(1))
	assert.NotNil(t, e.Surface().Roots[0].ReplyForm)
	e.CloseReply()
	assert.Nil(t, e.Surface().Roots[0].ReplyForm)
}

func TestEngineAskDelete(t *testing.T) {
	gone := cm(3, "carol")
	gone.Deleted = true
	roots := tree(cm(1, "alice"), cm(2, "bob"), gone)
	roots[1].CanDelete = false
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(roots, nil)
	src.On("DeleteComment", mock.Anything, uint(1)).Return(nil).Once()

	e := newTestEngine(src, nil)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	assert.False(t, e.AskDelete(2))
	assert.False(t, e.AskDelete(3))
	assert.False(t, e.AskDelete(99))
	require.True(t, e.AskDelete(1))
	assert.True(t, e.Surface().Roots[0].ConfirmDelete)
	assert.False(t, e.Surface().Roots[1].ConfirmDelete)

	require.NoError(t, e.Delete(ctx, 1, Always))
	for _, n := range e.Surface().Roots {
		assert.False(t, n.ConfirmDelete)
	}
}

func TestEngineDraftReopensForm(t *testing.T) {
	src := new(mockSource)
	src.On("ListThread", mock.Anything, bookmark7).Return(tree(cm(1, "alice"), cm(2, "bob")), nil)

	e := newTestEngine(src, nil)
	require.NoError(t, e.Load(context.Background()))

	e.SetDraft("  half written  ")
	assert.Equal(t, "half written", e.Surface().Draft)

	e.StartEdit(1)
	s := e.Surface()
	assert.Empty(t, s.Draft, "an open edit takes the draft")
	assert.Equal(t, "half written", s.Roots[0].Content)
	assert.Equal(t, "comment bob", s.Roots[1].Content)

	require.NoError(t, e.CancelEdit(context.Background()))
	require.True(t, e.OpenReply(2))
	s = e.Surface()
	assert.Empty(t, s.Draft)
	require.NotNil(t, s.Roots[1].ReplyForm)
	assert.Equal(t, "half written", s.Roots[1].ReplyForm.Prefill)
}

type panicSource struct{ mockSource }

func (p *panicSource) ListThread(context.Context, Ref) ([]*Comment, error) {
	panic("boom")
}

func TestEngineRecoversFromPanics(t *testing.T) {
	var notices []Notice
	e := newTestEngine(&panicSource{}, &notices)
	err := e.Load(context.Background())
	require.Error(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "Error loading comments", notices[0].Message)
}

func TestEngineWithoutEntity(t *testing.T) {
	e := New(Config{Source: new(mockSource)})
	assert.ErrorIs(t, e.Load(context.Background()), ErrInvalidInput)
	assert.False(t, e.Surface().Loaded)
}

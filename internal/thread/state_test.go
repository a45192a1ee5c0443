package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	s := NewState(9, 3, 42)
	assert.Equal(t, "3,9,42", s.String())

	parsed := ParseState(s.String())
	assert.Equal(t, []uint{3, 9, 42}, parsed.IDs())
	assert.True(t, parsed.Expanded(42))
	assert.False(t, parsed.Expanded(4))
}

func TestParseStateIgnoresJunk(t *testing.T) {
	s := ParseState(" 5, x,,0,-1, 7 ")
	assert.Equal(t, []uint{5, 7}, s.IDs())
	assert.Empty(t, ParseState("").IDs())
}

func TestStateCopies(t *testing.T) {
	s := NewState(1)
	with := s.With(2)
	without := s.Without(1)

	assert.Equal(t, "1", s.String())
	assert.Equal(t, "1,2", with.String())
	assert.Equal(t, "", without.String())
}

func TestNilState(t *testing.T) {
	var s *State
	assert.False(t, s.Expanded(1))
	assert.Equal(t, "", s.String())
	assert.Equal(t, "1", s.With(1).String())
}

func TestBuildTree(t *testing.T) {
	id := func(v uint) *uint { return &v }
	flat := []*Comment{
		{ID: 1},
		{ID: 2, ParentID: id(1)},
		{ID: 3},
		{ID: 4, ParentID: id(2)},
		{ID: 5, ParentID: id(1)},
		{ID: 6, ParentID: id(99)},
	}

	roots := BuildTree(flat)
	require.Len(t, roots, 3)
	assert.Equal(t, uint(1), roots[0].ID)
	assert.Equal(t, uint(3), roots[1].ID)
	assert.Equal(t, uint(6), roots[2].ID, "orphans become roots")

	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, uint(2), roots[0].Replies[0].ID)
	assert.Equal(t, uint(5), roots[0].Replies[1].ID)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, uint(4), roots[0].Replies[0].Replies[0].ID)

	assert.Equal(t, uint(4), Find(roots, 4).ID)
	assert.Nil(t, Find(roots, 100))
}

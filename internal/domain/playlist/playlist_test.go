package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/localbox/internal/domain/track"
)

func testTracks() []track.Track {
	return []track.Track{
		track.New("file:///m/a.mp3", "A", "", "", "a.mp3", 120000),
		track.New("file:///m/b.mp3", "B", "", "", "b.mp3", 210000),
		track.New("file:///m/c.mp3", "C", "", "", "c.mp3", 0),
	}
}

func TestList_InRange(t *testing.T) {
	l := New(testTracks())

	tests := []struct {
		index    int
		expected bool
	}{
		{index: -1, expected: false},
		{index: 0, expected: true},
		{index: 2, expected: true},
		{index: 3, expected: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, l.InRange(tt.index), "index %d", tt.index)
	}
}

func TestList_At(t *testing.T) {
	l := New(testTracks())

	got, ok := l.At(1)
	require.True(t, ok)
	assert.Equal(t, "B", got.Title)

	_, ok = l.At(5)
	assert.False(t, ok)

	var empty List
	assert.Equal(t, 0, empty.Len())
	_, ok = empty.At(0)
	assert.False(t, ok)
}

func TestList_IsolatedFromCaller(t *testing.T) {
	src := testTracks()
	l := New(src)

	src[0].Title = "mutated"
	first, _ := l.At(0)
	assert.Equal(t, "A", first.Title)

	out := l.Tracks()
	out[1].Title = "mutated"
	second, _ := l.At(1)
	assert.Equal(t, "B", second.Title)
}

func TestList_IndexOf(t *testing.T) {
	l := New(testTracks())

	assert.Equal(t, 2, l.IndexOf("file:///m/c.mp3"))
	assert.Equal(t, -1, l.IndexOf("file:///m/missing.mp3"))
}

func TestList_Aggregates(t *testing.T) {
	tracks := testTracks()
	l := New(tracks)

	assert.Equal(t, []string{tracks[0].ID, tracks[1].ID, tracks[2].ID}, l.TrackIDs())
	assert.Equal(t, int64(330000), l.TotalDurationMs())
}

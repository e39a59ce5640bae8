package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/app/stream"
	"github.com/osa030/localbox/internal/domain/track"
)

type fakeController struct {
	hub          *stream.Hub
	tracks       []track.Track
	sent         []playback.PlayerEvent
	unsubscribed []string
}

func newFakeController(tracks []track.Track) *fakeController {
	return &fakeController{hub: stream.NewHub(16), tracks: tracks}
}

func (c *fakeController) Send(ev playback.PlayerEvent) error {
	c.sent = append(c.sent, ev)
	return nil
}

func (c *fakeController) Subscribe() stream.Subscription { return c.hub.Subscribe() }

func (c *fakeController) Unsubscribe(id string) {
	c.unsubscribed = append(c.unsubscribed, id)
	c.hub.Unsubscribe(id)
}

func (c *fakeController) Tracks() []track.Track {
	return append([]track.Track(nil), c.tracks...)
}

func testTracks() []track.Track {
	return []track.Track{
		track.New("file:///m/a.mp3", "Alpha", "Artist", "", "a", 0),
		track.New("file:///m/b.mp3", "Beta", "", "", "b", 0),
	}
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_KeysSendIntents(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want []playback.PlayerEvent
	}{
		{"space toggles", []tea.KeyMsg{{Type: tea.KeySpace}}, []playback.PlayerEvent{playback.PlayPause{}}},
		{"arrows seek", []tea.KeyMsg{{Type: tea.KeyLeft}, {Type: tea.KeyRight}}, []playback.PlayerEvent{playback.Backward{}, playback.Forward{}}},
		{"next", []tea.KeyMsg{runeKey('n')}, []playback.PlayerEvent{playback.SeekToNext{}}},
		{"digit jumps", []tea.KeyMsg{runeKey('5')}, []playback.PlayerEvent{playback.SeekTo{Fraction: 0.5}}},
		{"enter selects cursor", []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyEnter}}, []playback.PlayerEvent{playback.SelectedAudioChange{Index: 1}}},
		{"cursor stays in range", []tea.KeyMsg{{Type: tea.KeyUp}, {Type: tea.KeyEnter}}, []playback.PlayerEvent{playback.SelectedAudioChange{Index: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newFakeController(testTracks())
			m := New(ctrl, 0, 0)
			for _, k := range tt.keys {
				m.Update(k)
			}
			assert.Equal(t, tt.want, ctrl.sent)
		})
	}
}

func TestModel_QuitSendsStop(t *testing.T) {
	ctrl := newFakeController(testTracks())
	m := New(ctrl, 0, 0)

	_, cmd := m.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, []playback.PlayerEvent{playback.Stop{}}, ctrl.sent)
	assert.Len(t, ctrl.unsubscribed, 1)
	assert.Empty(t, m.View())
}

func TestModel_AppliesStates(t *testing.T) {
	ctrl := newFakeController(testTracks())
	m := New(ctrl, 0, 0)

	states := []playback.AudioPlayerState{
		playback.CurrentPlaying{Index: 1},
		playback.Ready{DurationMs: 180000},
		playback.Playing{IsPlaying: true},
		playback.Progress{PositionMs: 90000},
	}
	for i, s := range states {
		m.Update(stateMsg{env: stream.Envelope{SequenceNo: uint64(i + 1), State: s}})
	}

	assert.Equal(t, 1, m.selected)
	assert.Equal(t, 1, m.cursor)
	assert.True(t, m.playing)
	assert.False(t, m.buffering)
	assert.Equal(t, uint64(4), m.lastSeq)

	view := m.View()
	assert.Contains(t, view, "01:30 / 03:00")
	assert.Contains(t, view, "▶")
	assert.Contains(t, view, "Beta")

	m.Update(stateMsg{env: stream.Envelope{SequenceNo: 5, State: playback.Error{Reason: "decode failed", Cause: playback.ErrorEngine}}})
	assert.False(t, m.playing)
	assert.Contains(t, m.View(), "decode failed")
}

func TestModel_InitialReloadsTracks(t *testing.T) {
	ctrl := newFakeController(testTracks())
	m := New(ctrl, 1, 0)
	m.Update(stateMsg{env: stream.Envelope{SequenceNo: 1, State: playback.CurrentPlaying{Index: 1}}})

	ctrl.tracks = ctrl.tracks[:1]
	m.Update(stateMsg{env: stream.Envelope{SequenceNo: 2, State: playback.Initial{}}})

	assert.Len(t, m.tracks, 1)
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, -1, m.selected)
	assert.Contains(t, m.View(), "stopped")
}

func TestModel_ResumeHint(t *testing.T) {
	ctrl := newFakeController(testTracks())
	m := New(ctrl, 1, 65000)

	assert.Contains(t, m.View(), "resume Beta at 01:05")
}

func TestModel_StreamFromSubscription(t *testing.T) {
	ctrl := newFakeController(testTracks())
	m := New(ctrl, 0, 0)

	ctrl.hub.Publish(playback.Playing{IsPlaying: true})
	msg := m.Init()()
	require.IsType(t, stateMsg{}, msg)
	assert.Equal(t, playback.Playing{IsPlaying: true}, msg.(stateMsg).env.State)

	ctrl.hub.Close()
	_, cmd := m.Update(m.Init()())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, 10, len([]rune(stripANSI(progressBar(0, 0, 10)))))
	assert.Equal(t, "━━━━━─────", stripANSI(progressBar(50, 100, 10)))
	assert.Equal(t, "━━━━━━━━━━", stripANSI(progressBar(500, 100, 10)))
}

func TestWindow(t *testing.T) {
	start, end := window(0, 5, 12)
	assert.Equal(t, [2]int{0, 5}, [2]int{start, end})

	start, end = window(50, 100, 12)
	assert.Equal(t, [2]int{44, 56}, [2]int{start, end})

	start, end = window(99, 100, 12)
	assert.Equal(t, [2]int{88, 100}, [2]int{start, end})
}

// stripANSI removes escape sequences added by lipgloss.
func stripANSI(s string) string {
	var b []rune
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		default:
			b = append(b, r)
		}
	}
	return string(b)
}

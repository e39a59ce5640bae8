// Package tui renders the player state in the terminal and turns key presses into intents.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/app/stream"
	"github.com/osa030/localbox/internal/domain/track"
)

const (
	barWidth    = 30
	visibleRows = 12
)

// Controller is the session surface the UI drives.
type Controller interface {
	Send(ev playback.PlayerEvent) error
	Subscribe() stream.Subscription
	Unsubscribe(subscriptionID string)
	Tracks() []track.Track
}

// stateMsg carries one published state into the update loop.
type stateMsg struct {
	env stream.Envelope
}

// streamClosedMsg reports that the state stream ended.
type streamClosedMsg struct{}

// Model is the bubbletea model of the player screen.
type Model struct {
	ctrl Controller
	sub  stream.Subscription

	tracks []track.Track
	cursor int

	selected   int // -1 when nothing is selected
	positionMs int64
	durationMs int64
	playing    bool
	buffering  bool
	errMsg     string
	resumeMs   int64
	lastSeq    uint64
	quitting   bool
}

// New creates the model. cursor places the list cursor, resumeMs is shown
// as the saved position of that track.
func New(ctrl Controller, cursor int, resumeMs int64) *Model {
	tracks := ctrl.Tracks()
	return &Model{
		ctrl:     ctrl,
		sub:      ctrl.Subscribe(),
		tracks:   tracks,
		cursor:   clampCursor(cursor, len(tracks)),
		selected: -1,
		resumeMs: resumeMs,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForState(m.sub)
}

func waitForState(sub stream.Subscription) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-sub.C
		if !ok {
			return streamClosedMsg{}
		}
		return stateMsg{env: env}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case stateMsg:
		m.apply(msg.env)
		return m, waitForState(m.sub)
	case streamClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		m.send(playback.Stop{})
		m.ctrl.Unsubscribe(m.sub.ID)
		m.quitting = true
		return tea.Quit
	case " ":
		m.send(playback.PlayPause{})
	case "left", "h":
		m.send(playback.Backward{})
	case "right", "l":
		m.send(playback.Forward{})
	case "n":
		m.send(playback.SeekToNext{})
	case "up", "k":
		m.cursor = clampCursor(m.cursor-1, len(m.tracks))
	case "down", "j":
		m.cursor = clampCursor(m.cursor+1, len(m.tracks))
	case "enter":
		if len(m.tracks) > 0 {
			m.send(playback.SelectedAudioChange{Index: m.cursor})
		}
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.send(playback.SeekTo{Fraction: float64(key[0]-'0') / 10})
	}
	return nil
}

func (m *Model) send(ev playback.PlayerEvent) {
	if err := m.ctrl.Send(ev); err != nil {
		zlog.Debug().Err(err).Msgf("tui: %s not sent", ev)
	}
}

func (m *Model) apply(env stream.Envelope) {
	m.lastSeq = env.SequenceNo

	switch s := env.State.(type) {
	case playback.Initial:
		m.tracks = m.ctrl.Tracks()
		m.cursor = clampCursor(m.cursor, len(m.tracks))
		m.selected = -1
		m.positionMs, m.durationMs = 0, 0
		m.playing, m.buffering = false, false
		m.errMsg = ""
	case playback.Buffering:
		m.buffering = true
		m.positionMs = s.PositionMs
	case playback.Ready:
		m.buffering = false
		m.durationMs = s.DurationMs
	case playback.Playing:
		m.playing = s.IsPlaying
	case playback.Progress:
		m.positionMs = s.PositionMs
	case playback.CurrentPlaying:
		m.selected = s.Index
		m.cursor = clampCursor(s.Index, len(m.tracks))
		m.positionMs, m.durationMs = 0, 0
		m.buffering = true
		m.resumeMs = 0
		m.errMsg = ""
	case playback.Error:
		m.errMsg = s.Reason
		if s.Cause == playback.ErrorEngine {
			m.playing, m.buffering = false, false
		}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("localbox"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d tracks", len(m.tracks))))
	b.WriteString("\n\n")

	if len(m.tracks) == 0 {
		b.WriteString(dimStyle.Render("  library is empty"))
		b.WriteString("\n")
	}
	start, end := window(m.cursor, len(m.tracks), visibleRows)
	for i := start; i < end; i++ {
		b.WriteString(m.row(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render("  " + m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("  space play/pause · ←/→ seek · n next · enter select · 0-9 jump · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) row(i int) string {
	t := m.tracks[i]
	title := t.Metadata().Title
	marker := "  "
	if i == m.selected {
		marker = "♪ "
		title = selectedStyle.Render(title)
	}
	label := title
	if t.Artist != "" {
		label += dimStyle.Render(" - " + t.Artist)
	}

	if i == m.cursor {
		return cursorStyle.Render(">") + marker + label
	}
	return " " + marker + label
}

func (m *Model) status() string {
	if m.selected < 0 {
		if m.resumeMs > 0 && len(m.tracks) > 0 {
			return dimStyle.Render(fmt.Sprintf("  resume %s at %s", m.tracks[m.cursor].Metadata().Title, track.FormatMs(m.resumeMs)))
		}
		return dimStyle.Render("  stopped")
	}

	icon := "⏸"
	switch {
	case m.buffering:
		icon = "…"
	case m.playing:
		icon = "▶"
	}
	return fmt.Sprintf("  %s %s %s / %s", icon, progressBar(m.positionMs, m.durationMs, barWidth),
		track.FormatMs(m.positionMs), track.FormatMs(m.durationMs))
}

func progressBar(positionMs, durationMs int64, width int) string {
	filled := 0
	if durationMs > 0 {
		filled = int(lo.Clamp(positionMs*int64(width)/durationMs, 0, int64(width)))
	}
	return barStyle.Render(strings.Repeat("━", filled)) + dimStyle.Render(strings.Repeat("─", width-filled))
}

// window returns the visible slice of rows keeping cursor in view.
func window(cursor, total, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	start := lo.Clamp(cursor-rows/2, 0, total-rows)
	return start, start + rows
}

func clampCursor(cursor, total int) int {
	if total == 0 {
		return 0
	}
	return lo.Clamp(cursor, 0, total-1)
}

package session

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
)

func snapshotOf(phase playback.Phase, playing bool, trk track.Track) playback.Snapshot {
	return playback.Snapshot{
		Session: playback.Session{
			SelectedIndex: mo.Some(0),
			Phase:         phase,
			IsPlaying:     playing,
		},
		Track: mo.Some(trk),
	}
}

func newTestCoordinator() (*Coordinator, *scriptEngine, *fakeTicker, *fakeForeground) {
	engine := newScriptEngine()
	ticker := &fakeTicker{}
	fg := &fakeForeground{}
	return NewCoordinator(engine, ticker, fg), engine, ticker, fg
}

func TestCoordinator_AttachesOnceReadyAndPlaying(t *testing.T) {
	c, _, _, fg := newTestCoordinator()
	a := threeTracks()[0]

	c.OnState(playback.CurrentPlaying{Index: 0}, snapshotOf(playback.PhaseBuffering, false, a))
	c.OnState(playback.Ready{DurationMs: 1000}, snapshotOf(playback.PhaseReady, false, a))
	assert.Empty(t, fg.Calls())

	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))
	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))
	c.OnState(playback.Progress{PositionMs: 500}, snapshotOf(playback.PhaseReady, true, a))

	assert.Equal(t, []string{"promote", "attach(A)"}, fg.Calls())
	assert.True(t, c.Attached())
	assert.True(t, c.Promoted())
}

func TestCoordinator_ReattachesOnTrackChange(t *testing.T) {
	c, _, _, fg := newTestCoordinator()
	tracks := threeTracks()

	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, tracks[0]))
	c.OnState(playback.CurrentPlaying{Index: 1}, snapshotOf(playback.PhaseBuffering, false, tracks[1]))
	c.OnState(playback.Ready{DurationMs: 1000}, snapshotOf(playback.PhaseReady, false, tracks[1]))
	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, tracks[1]))

	assert.Equal(t, []string{"promote", "attach(A)", "attach(B)"}, fg.Calls())
}

func TestCoordinator_Errors(t *testing.T) {
	tests := []struct {
		name      string
		state     playback.AudioPlayerState
		wantCalls []string
		attached  bool
	}{
		{
			name:      "engine error detaches",
			state:     playback.Error{Reason: "decode failed", Cause: playback.ErrorEngine},
			wantCalls: []string{"promote", "attach(A)", "detach", "release_fg"},
			attached:  false,
		},
		{
			name:      "validation error keeps notification",
			state:     playback.Error{Reason: "index out of range", Cause: playback.ErrorValidation},
			wantCalls: []string{"promote", "attach(A)"},
			attached:  true,
		},
		{
			name:      "reset detaches",
			state:     playback.Initial{},
			wantCalls: []string{"promote", "attach(A)", "detach", "release_fg"},
			attached:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, engine, _, fg := newTestCoordinator()
			a := threeTracks()[0]
			c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))

			c.OnState(tt.state, snapshotOf(playback.PhaseError, false, a))

			assert.Equal(t, tt.wantCalls, fg.Calls())
			assert.Equal(t, tt.attached, c.Attached())
			assert.Zero(t, engine.Releases())
		})
	}
}

func TestCoordinator_AttachFailureRetries(t *testing.T) {
	c, _, _, fg := newTestCoordinator()
	a := threeTracks()[0]
	fg.attachErr = errors.New("no notification daemon")

	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))
	assert.False(t, c.Attached())

	fg.attachErr = nil
	c.OnState(playback.Ready{DurationMs: 1000}, snapshotOf(playback.PhaseReady, true, a))

	assert.Equal(t, []string{"promote", "attach(A)", "attach(A)"}, fg.Calls())
	assert.True(t, c.Attached())
}

func TestCoordinator_Teardown(t *testing.T) {
	c, engine, ticker, fg := newTestCoordinator()
	a := threeTracks()[0]
	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))

	require.NoError(t, c.Teardown())
	require.NoError(t, c.Teardown())

	assert.Equal(t, []string{"promote", "attach(A)", "detach", "release_fg"}, fg.Calls())
	assert.Equal(t, 1, engine.Releases())
	assert.Equal(t, 1, ticker.stops)
	assert.False(t, c.Attached())

	// Nothing is attached after teardown
	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))
	assert.Len(t, fg.Calls(), 4)
}

func TestCoordinator_TeardownAttemptsEveryStep(t *testing.T) {
	c, engine, ticker, fg := newTestCoordinator()
	a := threeTracks()[0]
	c.OnState(playback.Playing{IsPlaying: true}, snapshotOf(playback.PhaseReady, true, a))
	fg.detachErr = errors.New("detach failed")
	fg.releaseErr = errors.New("release failed")

	err := c.Teardown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detach failed")

	assert.Equal(t, 1, engine.Releases())
	assert.Equal(t, 1, ticker.stops)
	assert.Contains(t, fg.Calls(), "release_fg")
}

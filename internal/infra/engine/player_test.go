package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
)

type stateLog struct {
	mu     sync.Mutex
	states []playback.AudioPlayerState
}

func (l *stateLog) Publish(state playback.AudioPlayerState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, state)
}

func (l *stateLog) take() []playback.AudioPlayerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.states
	l.states = nil
	return out
}

func (l *stateLog) has(state playback.AudioPlayerState) func() bool {
	return func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, s := range l.states {
			if s == state {
				return true
			}
		}
		return false
	}
}

func TestPlayer_PlayAgainAfterEndOfList(t *testing.T) {
	out := &fakeOutput{}
	e := NewWithOutput(out)
	t.Cleanup(func() { _ = e.Release() })

	log := &stateLog{}
	p := playback.NewPlayer(playback.Config{
		TickInterval: time.Hour,
		SeekStep:     time.Second,
		InboxSize:    16,
	}, e, log)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-p.Done()
	})

	require.NoError(t, p.SetTracks([]track.Track{writeWav(t, t.TempDir(), "only.wav", 4410)}))
	require.NoError(t, p.Send(playback.SelectedAudioChange{Index: 0}))
	require.Eventually(t, log.has(playback.Playing{IsPlaying: true}), time.Second, 5*time.Millisecond)
	log.take()

	out.drain()
	require.Eventually(t, log.has(playback.Ready{DurationMs: 100}), time.Second, 5*time.Millisecond)
	assert.Equal(t, []playback.AudioPlayerState{
		playback.Playing{IsPlaying: false},
		playback.CurrentPlaying{Index: 0},
		playback.Buffering{PositionMs: 0},
		playback.Ready{DurationMs: 100},
	}, log.take())

	require.NoError(t, p.Send(playback.PlayPause{}))
	require.Eventually(t, log.has(playback.Playing{IsPlaying: true}), time.Second, 5*time.Millisecond)
	for _, s := range log.take() {
		assert.NotEqual(t, playback.KindError, s.Kind(), "unexpected %s", s)
	}
}

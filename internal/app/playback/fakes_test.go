package playback

import (
	"fmt"
	"sync"

	"github.com/osa030/localbox/internal/domain/track"
)

// fakeEngine records commands and lets tests inject events and failures.
type fakeEngine struct {
	mu sync.Mutex

	calls       []string
	position    int64
	positionErr error
	loadErr     error
	playErr     error
	items       []track.Track

	events chan EngineEvent
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan EngineEvent, 32)}
}

func (e *fakeEngine) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *fakeEngine) SetPosition(ms int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = ms
}

func (e *fakeEngine) SetPositionErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positionErr = err
}

func (e *fakeEngine) SetItems(tracks []track.Track) error {
	e.mu.Lock()
	e.items = tracks
	e.mu.Unlock()
	e.record(fmt.Sprintf("set_items(%d)", len(tracks)))
	return nil
}

func (e *fakeEngine) Load(index int) error {
	e.record(fmt.Sprintf("load(%d)", index))
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

func (e *fakeEngine) Play() error {
	e.record("play")
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playErr
}

func (e *fakeEngine) Pause() error {
	e.record("pause")
	return nil
}

func (e *fakeEngine) SeekTo(positionMs int64) error {
	e.record(fmt.Sprintf("seek(%d)", positionMs))
	e.SetPosition(positionMs)
	return nil
}

func (e *fakeEngine) SkipToIndex(index int) error {
	e.record(fmt.Sprintf("skip(%d)", index))
	return nil
}

func (e *fakeEngine) PositionMs() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, e.positionErr
}

func (e *fakeEngine) DurationMs() int64 { return 0 }

func (e *fakeEngine) Events() <-chan EngineEvent { return e.events }

func (e *fakeEngine) Release() error {
	e.record("release")
	return nil
}

// fakeTicker is a synchronous ProgressTicker.
type fakeTicker struct {
	running    bool
	generation uint64
	starts     int
	stops      int
}

func (t *fakeTicker) Start() {
	if t.running {
		return
	}
	t.running = true
	t.generation++
	t.starts++
}

func (t *fakeTicker) Stop() {
	t.running = false
	t.stops++
}

func (t *fakeTicker) Running() bool { return t.running }

func (t *fakeTicker) Accepts(tick Tick) bool {
	return t.running && tick.Generation == t.generation
}

func (t *fakeTicker) tick(positionMs int64) Tick {
	return Tick{Generation: t.generation, PositionMs: positionMs}
}

// recorder is a thread-safe Publisher.
type recorder struct {
	mu     sync.Mutex
	states []AudioPlayerState
}

func (r *recorder) Publish(state AudioPlayerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) States() []AudioPlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AudioPlayerState, len(r.states))
	copy(out, r.states)
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = nil
}

func (r *recorder) OfKind(kind StateKind) []AudioPlayerState {
	var out []AudioPlayerState
	for _, s := range r.States() {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

func twoTracks() []track.Track {
	return []track.Track{
		track.New("file:///music/a.mp3", "A", "Artist", "Album", "a.mp3", 0),
		track.New("file:///music/b.mp3", "B", "Artist", "Album", "b.mp3", 0),
	}
}

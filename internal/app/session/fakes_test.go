package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
	"github.com/osa030/localbox/internal/infra/store"
)

const fakeDurationMs = 200000

// scriptEngine answers commands with the events a real engine would emit.
type scriptEngine struct {
	mu       sync.Mutex
	calls    []string
	items    []track.Track
	playing  bool
	position int64
	releases int
	events   chan playback.EngineEvent
	gate     chan struct{} // when set, SetItems waits for it to close
}

func newScriptEngine() *scriptEngine {
	return &scriptEngine{events: make(chan playback.EngineEvent, 64)}
}

func (e *scriptEngine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *scriptEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *scriptEngine) Releases() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releases
}

func (e *scriptEngine) SetItems(tracks []track.Track) error {
	e.mu.Lock()
	e.record(fmt.Sprintf("set_items(%d)", len(tracks)))
	e.items = tracks
	e.playing = false
	gate := e.gate
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return nil
}

// HoldSetItems makes later SetItems calls block until the returned func runs.
func (e *scriptEngine) HoldSetItems() func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	gate := make(chan struct{})
	e.gate = gate
	return sync.OnceFunc(func() { close(gate) })
}

func (e *scriptEngine) Load(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("load(%d)", index))
	e.position = 0
	e.events <- playback.EngineBuffering{Index: index}
	e.events <- playback.EngineReady{Index: index, DurationMs: fakeDurationMs}
	return nil
}

func (e *scriptEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("play")
	e.playing = true
	e.events <- playback.EnginePlayingChanged{IsPlaying: true}
	return nil
}

func (e *scriptEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("pause")
	e.playing = false
	e.events <- playback.EnginePlayingChanged{IsPlaying: false}
	return nil
}

func (e *scriptEngine) SeekTo(positionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("seek(%d)", positionMs))
	e.position = positionMs
	return nil
}

func (e *scriptEngine) SkipToIndex(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("skip(%d)", index))
	e.position = 0
	e.events <- playback.EngineTrackAdvanced{Index: index}
	e.events <- playback.EngineReady{Index: index, DurationMs: fakeDurationMs}
	if e.playing {
		e.events <- playback.EnginePlayingChanged{IsPlaying: true}
	}
	return nil
}

func (e *scriptEngine) PositionMs() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, nil
}

func (e *scriptEngine) DurationMs() int64 { return fakeDurationMs }

func (e *scriptEngine) Events() <-chan playback.EngineEvent { return e.events }

func (e *scriptEngine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("release")
	e.releases++
	return nil
}

// fakeForeground records collaborator calls.
type fakeForeground struct {
	mu         sync.Mutex
	calls      []string
	attachErr  error
	detachErr  error
	releaseErr error
}

func (f *fakeForeground) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeForeground) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeForeground) Attach(_ playback.Engine, meta track.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("attach(" + meta.Title + ")")
	return f.attachErr
}

func (f *fakeForeground) Detach() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("detach")
	return f.detachErr
}

func (f *fakeForeground) PromoteForeground() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("promote")
	return nil
}

func (f *fakeForeground) ReleaseForeground() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("release_fg")
	return f.releaseErr
}

// fakeTicker counts start/stop calls.
type fakeTicker struct {
	mu      sync.Mutex
	running bool
	stops   int
}

func (t *fakeTicker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.stops++
}

func (t *fakeTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *fakeTicker) Accepts(playback.Tick) bool { return t.Running() }

// fakeProvider serves a replaceable track list.
type fakeProvider struct {
	mu     sync.Mutex
	tracks []track.Track
	err    error
	calls  int
}

func (p *fakeProvider) Provide(context.Context) ([]track.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return append([]track.Track(nil), p.tracks...), nil
}

func (p *fakeProvider) Set(tracks []track.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = tracks
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu     sync.Mutex
	snap   store.Snapshot
	ok     bool
	saves  int
	closed bool
}

func (s *memStore) Load(context.Context) (store.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.ok, nil
}

func (s *memStore) Save(_ context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap, s.ok = snap, true
	s.saves++
	return nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memStore) Saved() (store.Snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.saves
}

// fakeWatcher hands its change callback to the test.
type fakeWatcher struct {
	changes chan func()
}

func (w *fakeWatcher) Run(ctx context.Context, onChange func()) error {
	w.changes <- onChange
	<-ctx.Done()
	return nil
}

func threeTracks() []track.Track {
	return []track.Track{
		track.New("file:///music/a.mp3", "A", "Artist", "Album", "a", 0),
		track.New("file:///music/b.mp3", "B", "Artist", "Album", "b", 0),
		track.New("file:///music/c.mp3", "C", "Artist", "Album", "c", 0),
	}
}

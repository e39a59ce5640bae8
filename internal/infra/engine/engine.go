// Package engine provides the beep-backed playback engine.
package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
	"github.com/osa030/localbox/internal/infra/library"
)

const (
	// DefaultEventBuffer is the capacity of the events channel.
	DefaultEventBuffer = 32

	speakerSampleRate = beep.SampleRate(44100)
	resampleQuality   = 4
)

var (
	// ErrAudioUnavailable is returned when the build has no audio output.
	ErrAudioUnavailable = errors.New("audio output not available in this build")
	// ErrNotLoaded is returned by PositionMs when nothing is loaded.
	ErrNotLoaded = errors.New("no track loaded")
	// ErrReleased is returned by every command after Release.
	ErrReleased = errors.New("engine released")
)

// Output is the sound device the engine plays into.
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
	Close()
}

// Engine plays a list of local files through an Output.
// Events are emitted without blocking; they are dropped when the buffer is full.
type Engine struct {
	mu sync.Mutex

	output      Output
	initialized bool

	items []track.Track
	index int

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	// token invalidates end-of-track callbacks of replaced streams.
	token    uint64
	events   chan playback.EngineEvent
	released bool
}

// New creates an engine writing to the default speaker.
func New() *Engine {
	return NewWithOutput(newSpeaker())
}

// NewWithOutput creates an engine writing to output.
func NewWithOutput(output Output) *Engine {
	return &Engine{
		output: output,
		index:  -1,
		events: make(chan playback.EngineEvent, DefaultEventBuffer),
	}
}

// Events implements playback.Engine.
func (e *Engine) Events() <-chan playback.EngineEvent {
	return e.events
}

// SetItems replaces the item list and unloads the current item.
func (e *Engine) SetItems(tracks []track.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrReleased
	}
	e.unloadLocked()
	e.items = append([]track.Track(nil), tracks...)
	e.index = -1
	zlog.Debug().Int("items", len(e.items)).Msg("engine: items set")
	return nil
}

// Load prepares index paused at position zero.
func (e *Engine) Load(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrReleased
	}
	return e.loadLocked(index)
}

// Play resumes the loaded item.
func (e *Engine) Play() error {
	return e.setPaused(false)
}

// Pause pauses the loaded item.
func (e *Engine) Pause() error {
	return e.setPaused(true)
}

// SeekTo moves the loaded item to positionMs, clamped to its length.
func (e *Engine) SeekTo(positionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrReleased
	}
	if e.streamer == nil {
		return ErrNotLoaded
	}

	e.output.Lock()
	defer e.output.Unlock()
	n := e.format.SampleRate.N(time.Duration(positionMs) * time.Millisecond)
	n = lo.Clamp(n, 0, e.streamer.Len())
	return errors.Wrap(e.streamer.Seek(n), "seek")
}

// SkipToIndex loads index, reports the advance and keeps the play state.
func (e *Engine) SkipToIndex(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrReleased
	}
	if index < 0 || index >= len(e.items) {
		return errors.Wrapf(playback.ErrIndexOutOfRange, "skip to %d", index)
	}
	wasPlaying := e.playingLocked()

	e.emitLocked(playback.EngineTrackAdvanced{Index: index})
	if err := e.loadLocked(index); err != nil {
		return err
	}
	if wasPlaying {
		e.pausedLocked(false)
	}
	return nil
}

// PositionMs implements playback.PositionSampler.
func (e *Engine) PositionMs() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0, ErrNotLoaded
	}
	e.output.Lock()
	pos := e.streamer.Position()
	e.output.Unlock()
	return e.format.SampleRate.D(pos).Milliseconds(), nil
}

// DurationMs returns the length of the loaded item, 0 if none.
func (e *Engine) DurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

// Release stops playback, closes the output and the events channel.
// Calling it again is a no-op.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil
	}
	e.unloadLocked()
	if e.initialized {
		e.output.Close()
	}
	e.released = true
	close(e.events)
	zlog.Info().Msg("engine: released")
	return nil
}

func (e *Engine) loadLocked(index int) error {
	if index < 0 || index >= len(e.items) {
		return errors.Wrapf(playback.ErrIndexOutOfRange, "load %d", index)
	}
	item := e.items[index]

	e.unloadLocked()
	e.index = index
	e.emitLocked(playback.EngineBuffering{Index: index, PositionMs: 0})

	streamer, format, err := decode(item.SourceURI)
	if err != nil {
		e.index = -1
		return errors.Wrapf(err, "load %s", item.DisplayName)
	}
	if !e.initialized {
		if err := e.output.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			e.index = -1
			return errors.Wrap(err, "init output")
		}
		e.initialized = true
	}

	e.streamer = streamer
	e.format = format
	e.ctrl = &beep.Ctrl{
		Streamer: beep.Resample(resampleQuality, format.SampleRate, speakerSampleRate, streamer),
		Paused:   true,
	}
	token := e.token
	e.output.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		// Runs under the output lock; advancing needs e.mu.
		go e.onEnd(token)
	})))

	zlog.Debug().Int("index", index).Str("track", item.DisplayName).Msg("engine: loaded")
	e.emitLocked(playback.EngineReady{Index: index, DurationMs: e.durationLocked()})
	return nil
}

// onEnd advances to the next item once the current one has played out.
// After the last item the same item is reloaded paused at zero.
func (e *Engine) onEnd(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released || token != e.token {
		return
	}

	next := e.index + 1
	rewind := next >= len(e.items)
	if rewind {
		zlog.Debug().Int("index", e.index).Msg("engine: end of list, rewinding")
		next = e.index
		e.emitLocked(playback.EnginePlayingChanged{IsPlaying: false})
	}

	e.emitLocked(playback.EngineTrackAdvanced{Index: next})
	if err := e.loadLocked(next); err != nil {
		e.emitLocked(playback.EngineError{Reason: err.Error()})
		return
	}
	if !rewind {
		e.pausedLocked(false)
	}
}

func (e *Engine) setPaused(paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrReleased
	}
	if e.ctrl == nil {
		return ErrNotLoaded
	}
	e.pausedLocked(paused)
	return nil
}

func (e *Engine) pausedLocked(paused bool) {
	e.output.Lock()
	changed := e.ctrl.Paused != paused
	e.ctrl.Paused = paused
	e.output.Unlock()

	if changed {
		e.emitLocked(playback.EnginePlayingChanged{IsPlaying: !paused})
	}
}

func (e *Engine) playingLocked() bool {
	if e.ctrl == nil {
		return false
	}
	e.output.Lock()
	defer e.output.Unlock()
	return !e.ctrl.Paused
}

func (e *Engine) durationLocked() int64 {
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Milliseconds()
}

// unloadLocked stops and closes the current stream.
func (e *Engine) unloadLocked() {
	e.token++
	if e.ctrl != nil {
		e.output.Lock()
		e.ctrl.Paused = true
		e.ctrl.Streamer = nil
		e.output.Unlock()
		e.output.Clear()
	}
	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil {
			zlog.Debug().Err(err).Msg("engine: close stream")
		}
	}
	e.streamer = nil
	e.ctrl = nil
}

func (e *Engine) emitLocked(ev playback.EngineEvent) {
	if e.released {
		return
	}
	select {
	case e.events <- ev:
	default:
		zlog.Warn().Msgf("engine: event buffer full, dropping %T", ev)
	}
}

// decode opens a file:// source with the decoder matching its extension.
func decode(sourceURI string) (beep.StreamSeekCloser, beep.Format, error) {
	path, err := library.PathFromURI(sourceURI)
	if err != nil {
		return nil, beep.Format{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "open")
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		err = errors.Newf("unsupported format %q", ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, errors.Wrap(err, "decode")
	}
	return streamer, format, nil
}

package playback

import (
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/osa030/localbox/internal/domain/playlist"
	"github.com/osa030/localbox/internal/domain/track"
)

// Publisher receives every published state in order.
type Publisher interface {
	Publish(state AudioPlayerState)
}

// Listener observes published states together with the session they were derived from.
type Listener interface {
	OnState(state AudioPlayerState, snap Snapshot)
}

// Snapshot is an immutable copy of the session and its current track.
type Snapshot struct {
	Session Session
	Track   mo.Option[track.Track]
}

// Aggregator is the sole writer of the Session and the sole publisher of
// AudioPlayerState. It is not safe for concurrent use: every call must come
// from the Player loop.
type Aggregator struct {
	session Session
	list    playlist.List

	// Play requested by the engine before the item was ready.
	pendingPlay bool

	ticker    ProgressTicker
	publisher Publisher
	listeners []Listener
}

// NewAggregator creates an aggregator with an empty list and an initial session.
func NewAggregator(ticker ProgressTicker, publisher Publisher) *Aggregator {
	return &Aggregator{
		session:   NewSession(),
		ticker:    ticker,
		publisher: publisher,
	}
}

// AddListener registers an internal observer. Listeners run on the loop.
func (a *Aggregator) AddListener(l Listener) {
	a.listeners = append(a.listeners, l)
}

// Session returns a copy of the session.
func (a *Aggregator) Session() Session {
	return a.session
}

// List returns the current playback list.
func (a *Aggregator) List() playlist.List {
	return a.list
}

// PlayIntended reports whether playback is running or will resume once the
// current item is ready.
func (a *Aggregator) PlayIntended() bool {
	return a.session.IsPlaying || a.pendingPlay
}

// Snapshot returns the session with the selected track resolved.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{Session: a.session, Track: mo.None[track.Track]()}
	if idx, ok := a.session.Selected(); ok {
		if t, ok := a.list.At(idx); ok {
			snap.Track = mo.Some(t)
		}
	}
	return snap
}

// ReplaceList installs a new playback list and resets the session.
func (a *Aggregator) ReplaceList(list playlist.List) {
	a.list = list
	zlog.Debug().Int("tracks", list.Len()).Msg("aggregator: playback list replaced")
	a.Reset()
}

// Reset stops the ticker and returns the session to Initial.
func (a *Aggregator) Reset() {
	a.ticker.Stop()
	a.session = NewSession()
	a.pendingPlay = false
	a.publish(Initial{})
}

// HandleEngineEvent routes an engine event to its handler.
func (a *Aggregator) HandleEngineEvent(ev EngineEvent) {
	switch e := ev.(type) {
	case EngineReady:
		a.OnEngineReady(e.Index, e.DurationMs)
	case EngineBuffering:
		a.OnEngineBuffering(e.Index, e.PositionMs)
	case EnginePlayingChanged:
		a.OnEnginePlayingChanged(e.IsPlaying)
	case EngineTrackAdvanced:
		a.OnTrackAdvanced(e.Index)
	case EngineError:
		a.OnEngineError(e.Reason)
	default:
		zlog.Warn().Msgf("aggregator: unknown engine event %T", ev)
	}
}

// OnEngineReady records the duration of the current item.
// Readiness for an item other than the selected one is stale and dropped.
func (a *Aggregator) OnEngineReady(index int, durationMs int64) {
	if !a.isCurrent(index) {
		zlog.Debug().Int("index", index).Msg("aggregator: dropping stale ready event")
		return
	}

	a.session.DurationMs = max(durationMs, 0)
	a.session.PositionMs = a.clamp(a.session.PositionMs)
	a.session.Phase = PhaseReady
	a.publish(Ready{DurationMs: a.session.DurationMs})

	if a.pendingPlay {
		a.pendingPlay = false
		a.setPlaying(true)
	}
}

// OnEngineBuffering publishes a buffering position without touching the play flag.
func (a *Aggregator) OnEngineBuffering(index int, positionMs int64) {
	if !a.isCurrent(index) {
		return
	}
	a.publish(Buffering{PositionMs: a.clamp(positionMs)})
}

// OnEnginePlayingChanged updates the play flag and starts or stops the ticker.
// A play before readiness is deferred until the item is Ready.
func (a *Aggregator) OnEnginePlayingChanged(isPlaying bool) {
	if isPlaying && a.session.Phase != PhaseReady {
		a.pendingPlay = true
		return
	}
	if !isPlaying {
		a.pendingPlay = false
	}
	a.setPlaying(isPlaying)
}

// OnTrackAdvanced selects index and resets position and duration.
func (a *Aggregator) OnTrackAdvanced(index int) {
	if !a.list.InRange(index) {
		// The engine and the list are built from the same tracks; this is a bug.
		zlog.Error().Int("index", index).Int("tracks", a.list.Len()).Msg("aggregator: track advanced out of range, ignoring")
		return
	}

	if a.session.IsPlaying {
		a.pendingPlay = true
	}
	a.ticker.Stop()
	a.session.SelectedIndex = mo.Some(index)
	a.session.PositionMs = 0
	a.session.DurationMs = 0
	a.session.IsPlaying = false
	a.session.Phase = PhaseBuffering
	a.publish(CurrentPlaying{Index: index})
}

// OnTick records a position sample from the current ticker run.
func (a *Aggregator) OnTick(tick Tick) {
	if !a.session.IsPlaying || !a.ticker.Accepts(tick) {
		return
	}

	pos := a.clamp(tick.PositionMs)
	if pos < a.session.PositionMs {
		pos = a.session.PositionMs
	}
	a.session.PositionMs = pos
	a.publish(Progress{PositionMs: pos})
}

// OnSeek re-syncs the position after a seek command.
func (a *Aggregator) OnSeek(targetMs int64) {
	a.session.PositionMs = a.clamp(targetMs)
	a.publish(Progress{PositionMs: a.session.PositionMs})
}

// OnEngineError moves the session to the Error phase and stops sampling.
func (a *Aggregator) OnEngineError(reason string) {
	zlog.Warn().Str("reason", reason).Msg("aggregator: engine error")

	a.ticker.Stop()
	a.pendingPlay = false
	a.session.IsPlaying = false
	a.session.Phase = PhaseError
	a.publish(Error{Reason: reason, Cause: ErrorEngine})
}

// Reject publishes a validation error. The session is left untouched.
func (a *Aggregator) Reject(reason string) {
	zlog.Debug().Str("reason", reason).Msg("aggregator: command rejected")
	a.publish(Error{Reason: reason, Cause: ErrorValidation})
}

// Echo republishes a state without mutating the session.
func (a *Aggregator) Echo(state AudioPlayerState) {
	a.publish(state)
}

func (a *Aggregator) setPlaying(isPlaying bool) {
	if a.session.IsPlaying == isPlaying {
		return
	}

	a.session.IsPlaying = isPlaying
	if isPlaying {
		a.ticker.Start()
	} else {
		a.ticker.Stop()
	}
	a.publish(Playing{IsPlaying: isPlaying})
}

func (a *Aggregator) isCurrent(index int) bool {
	selected, ok := a.session.Selected()
	return ok && selected == index
}

// clamp bounds a position to [0, duration] once the duration is known.
func (a *Aggregator) clamp(positionMs int64) int64 {
	if a.session.DurationMs <= 0 {
		return max(positionMs, 0)
	}
	return lo.Clamp(positionMs, 0, a.session.DurationMs)
}

func (a *Aggregator) publish(state AudioPlayerState) {
	if state.Kind() == KindProgress {
		zlog.Trace().Msgf("aggregator: publish %s", state)
	} else {
		zlog.Debug().Msgf("aggregator: publish %s", state)
	}

	if a.publisher != nil {
		a.publisher.Publish(state)
	}
	if len(a.listeners) == 0 {
		return
	}
	snap := a.Snapshot()
	for _, l := range a.listeners {
		l.OnState(state, snap)
	}
}

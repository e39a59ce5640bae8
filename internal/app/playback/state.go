// Package playback provides the playback orchestration core: the session state
// machine, the command dispatcher, the progress ticker and the serialized loop
// that ties them to a playback engine.
package playback

import "fmt"

// Phase represents the coarse lifecycle stage of a session.
type Phase int

const (
	PhaseInitial   Phase = iota // Nothing loaded
	PhaseBuffering              // Item selected, waiting for engine readiness
	PhaseReady                  // Engine reported duration for the current item
	PhaseError                  // Engine failed; recoverable by a new selection
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseBuffering:
		return "buffering"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// StateKind tags the AudioPlayerState variants.
type StateKind int

const (
	KindInitial StateKind = iota
	KindBuffering
	KindPlaying
	KindProgress
	KindCurrentPlaying
	KindReady
	KindError
)

// String returns the string representation of the state kind.
func (k StateKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindBuffering:
		return "buffering"
	case KindPlaying:
		return "playing"
	case KindProgress:
		return "progress"
	case KindCurrentPlaying:
		return "current_playing"
	case KindReady:
		return "ready"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// AudioPlayerState is an immutable published snapshot. The set of
// implementations is closed to this package.
type AudioPlayerState interface {
	Kind() StateKind
	String() string
	audioPlayerState()
}

// Initial is published when no session is active.
type Initial struct{}

// Buffering is published while the engine fills its buffer.
type Buffering struct {
	PositionMs int64
}

// Playing is published when the play/pause flag changes.
type Playing struct {
	IsPlaying bool
}

// Progress is published for each position sample or seek re-sync.
type Progress struct {
	PositionMs int64
}

// CurrentPlaying is published when the selected index changes.
type CurrentPlaying struct {
	Index int
}

// Ready is published once the engine knows the duration of the current item.
type Ready struct {
	DurationMs int64
}

// ErrorKind separates rejected commands from engine failures.
type ErrorKind int

const (
	ErrorValidation ErrorKind = iota // Command rejected before reaching the engine
	ErrorEngine                      // Engine reported a failure
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorValidation:
		return "validation"
	case ErrorEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Error is published for validation and engine failures.
type Error struct {
	Reason string
	Cause  ErrorKind
}

func (Initial) Kind() StateKind        { return KindInitial }
func (Buffering) Kind() StateKind      { return KindBuffering }
func (Playing) Kind() StateKind        { return KindPlaying }
func (Progress) Kind() StateKind       { return KindProgress }
func (CurrentPlaying) Kind() StateKind { return KindCurrentPlaying }
func (Ready) Kind() StateKind          { return KindReady }
func (Error) Kind() StateKind          { return KindError }

func (Initial) String() string          { return "Initial" }
func (s Buffering) String() string      { return fmt.Sprintf("Buffering(%d)", s.PositionMs) }
func (s Playing) String() string        { return fmt.Sprintf("Playing(%t)", s.IsPlaying) }
func (s Progress) String() string       { return fmt.Sprintf("Progress(%d)", s.PositionMs) }
func (s CurrentPlaying) String() string { return fmt.Sprintf("CurrentPlaying(%d)", s.Index) }
func (s Ready) String() string          { return fmt.Sprintf("Ready(%d)", s.DurationMs) }
func (s Error) String() string          { return fmt.Sprintf("Error(%s: %q)", s.Cause, s.Reason) }

func (Initial) audioPlayerState()        {}
func (Buffering) audioPlayerState()      {}
func (Playing) audioPlayerState()        {}
func (Progress) audioPlayerState()       {}
func (CurrentPlaying) audioPlayerState() {}
func (Ready) audioPlayerState()          {}
func (Error) audioPlayerState()          {}

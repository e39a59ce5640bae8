package playback

import "fmt"

// EngineEvent is delivered asynchronously by a playback engine.
type EngineEvent interface {
	fmt.Stringer
	engineEvent()
}

// EngineReady reports that the item at Index is loaded and its duration known.
type EngineReady struct {
	Index      int
	DurationMs int64
}

// EngineBuffering reports that the engine is filling its buffer.
type EngineBuffering struct {
	Index      int
	PositionMs int64
}

// EnginePlayingChanged reports a play/pause transition.
type EnginePlayingChanged struct {
	IsPlaying bool
}

// EngineTrackAdvanced reports that the engine moved to another item on its own
// (end of track or skip). Loading an item explicitly does not emit it.
type EngineTrackAdvanced struct {
	Index int
}

// EngineError reports a decode, I/O or output failure.
type EngineError struct {
	Reason string
}

func (e EngineReady) String() string {
	return fmt.Sprintf("ready(index=%d duration=%d)", e.Index, e.DurationMs)
}
func (e EngineBuffering) String() string {
	return fmt.Sprintf("buffering(index=%d position=%d)", e.Index, e.PositionMs)
}
func (e EnginePlayingChanged) String() string { return fmt.Sprintf("playing_changed(%t)", e.IsPlaying) }
func (e EngineTrackAdvanced) String() string  { return fmt.Sprintf("track_advanced(%d)", e.Index) }
func (e EngineError) String() string          { return fmt.Sprintf("error(%s)", e.Reason) }

func (EngineReady) engineEvent()          {}
func (EngineBuffering) engineEvent()      {}
func (EnginePlayingChanged) engineEvent() {}
func (EngineTrackAdvanced) engineEvent()  {}
func (EngineError) engineEvent()          {}

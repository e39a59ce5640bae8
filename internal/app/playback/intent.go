package playback

import "fmt"

// PlayerEvent is a user intent emitted by the UI.
type PlayerEvent interface {
	fmt.Stringer
	playerEvent()
}

// PlayPause toggles between play and pause.
type PlayPause struct{}

// Backward seeks back by the configured step.
type Backward struct{}

// Forward seeks forward by the configured step.
type Forward struct{}

// SeekTo seeks to a fraction of the current duration.
type SeekTo struct {
	Fraction float64
}

// SeekToNext skips to the next track in the list.
type SeekToNext struct{}

// SelectedAudioChange loads and plays the track at Index.
type SelectedAudioChange struct {
	Index int
}

// UpdateProgress moves the published position without touching the engine.
// Used for drag-to-seek feedback before the seek is committed.
type UpdateProgress struct {
	Fraction float64
}

// Stop tears down the session.
type Stop struct{}

func (PlayPause) String() string             { return "play_pause" }
func (Backward) String() string              { return "backward" }
func (Forward) String() string               { return "forward" }
func (e SeekTo) String() string              { return fmt.Sprintf("seek_to(%.3f)", e.Fraction) }
func (SeekToNext) String() string            { return "seek_to_next" }
func (e SelectedAudioChange) String() string { return fmt.Sprintf("selected_audio_change(%d)", e.Index) }
func (e UpdateProgress) String() string      { return fmt.Sprintf("update_progress(%.3f)", e.Fraction) }
func (Stop) String() string                  { return "stop" }

func (PlayPause) playerEvent()           {}
func (Backward) playerEvent()            {}
func (Forward) playerEvent()             {}
func (SeekTo) playerEvent()              {}
func (SeekToNext) playerEvent()          {}
func (SelectedAudioChange) playerEvent() {}
func (UpdateProgress) playerEvent()      {}
func (Stop) playerEvent()                {}

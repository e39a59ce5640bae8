package playback

import "github.com/osa030/localbox/internal/domain/track"

// PositionSampler is the part of the engine the ticker needs.
type PositionSampler interface {
	PositionMs() (int64, error)
}

// Engine is the playback capability driven by the core.
//
// Commands may complete asynchronously; results arrive on Events. Load does not
// emit EngineTrackAdvanced, SkipToIndex and natural end-of-track advance do.
// Implementations must be safe for concurrent use since the ticker samples the
// position from its own goroutine.
type Engine interface {
	PositionSampler

	SetItems(tracks []track.Track) error
	Load(index int) error
	Play() error
	Pause() error
	SeekTo(positionMs int64) error
	SkipToIndex(index int) error
	DurationMs() int64
	Events() <-chan EngineEvent
	Release() error
}

// Package playlist provides the ordered playback list.
package playlist

import (
	"github.com/samber/lo"

	"github.com/osa030/localbox/internal/domain/track"
)

// List is an ordered, immutable sequence of tracks in discovery order.
// The zero value is an empty list.
type List struct {
	tracks []track.Track
}

// New creates a list from a copy of tracks.
func New(tracks []track.Track) List {
	cp := make([]track.Track, len(tracks))
	copy(cp, tracks)
	return List{tracks: cp}
}

// Len returns the number of tracks.
func (l List) Len() int {
	return len(l.tracks)
}

// InRange reports whether index addresses a track in the list.
func (l List) InRange(index int) bool {
	return index >= 0 && index < len(l.tracks)
}

// At returns the track at index.
func (l List) At(index int) (track.Track, bool) {
	if !l.InRange(index) {
		return track.Track{}, false
	}
	return l.tracks[index], true
}

// Tracks returns a copy of the tracks.
func (l List) Tracks() []track.Track {
	cp := make([]track.Track, len(l.tracks))
	copy(cp, l.tracks)
	return cp
}

// IndexOf returns the index of the track with the given source URI, or -1.
func (l List) IndexOf(sourceURI string) int {
	_, idx, ok := lo.FindIndexOf(l.tracks, func(t track.Track) bool {
		return t.SourceURI == sourceURI
	})
	if !ok {
		return -1
	}
	return idx
}

// TrackIDs returns all track IDs in the list.
func (l List) TrackIDs() []string {
	return lo.Map(l.tracks, func(t track.Track, _ int) string {
		return t.ID
	})
}

// TotalDurationMs returns the sum of known track durations.
func (l List) TotalDurationMs() int64 {
	return lo.SumBy(l.tracks, func(t track.Track) int64 {
		return t.DurationMs
	})
}

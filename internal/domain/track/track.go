// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Track represents an audio file discovered in the local library.
// Tracks are never mutated after discovery; identity is SourceURI.
type Track struct {
	ID          string // Deterministic UUID derived from SourceURI
	SourceURI   string // file:// URI of the audio file
	Title       string // Track title (from tags, falls back to file name)
	Artist      string // Artist name
	Album       string // Album name
	DurationMs  int64  // Duration in milliseconds (0 if unknown before load)
	DisplayName string // File name shown in lists
}

// Metadata is the notification-facing view of a track.
type Metadata struct {
	SourceURI   string
	Title       string
	Artist      string
	Album       string
	DisplayName string
}

// New creates a track whose ID is derived from its source URI.
func New(sourceURI, title, artist, album, displayName string, durationMs int64) Track {
	return Track{
		ID:          IDFor(sourceURI),
		SourceURI:   sourceURI,
		Title:       title,
		Artist:      artist,
		Album:       album,
		DurationMs:  durationMs,
		DisplayName: displayName,
	}
}

// IDFor returns the stable track ID for a source URI.
func IDFor(sourceURI string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURI)).String()
}

// Metadata returns the metadata view of the track.
// Empty title and artist fall back to "Unknown".
func (t Track) Metadata() Metadata {
	m := Metadata{
		SourceURI:   t.SourceURI,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		DisplayName: t.DisplayName,
	}
	if m.Title == "" {
		m.Title = "Unknown"
	}
	if m.Artist == "" {
		m.Artist = "Unknown"
	}
	return m
}

// SameSource reports whether both tracks point at the same file.
func (t Track) SameSource(other Track) bool {
	return t.SourceURI == other.SourceURI
}

// FormatMs formats milliseconds as mm:ss. Negative values format as 00:00.
func FormatMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	minutes := int64(d / time.Minute)
	seconds := int64((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

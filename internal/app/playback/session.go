package playback

import "github.com/samber/mo"

// Session is the mutable unit of truth for the active playback.
// Only the Aggregator writes it; everyone else receives copies.
type Session struct {
	SelectedIndex mo.Option[int]
	DurationMs    int64
	PositionMs    int64
	IsPlaying     bool
	Phase         Phase
}

// NewSession returns a session in the initial phase.
func NewSession() Session {
	return Session{
		SelectedIndex: mo.None[int](),
		Phase:         PhaseInitial,
	}
}

// Selected returns the selected index, if any.
func (s Session) Selected() (int, bool) {
	return s.SelectedIndex.Get()
}

// HasSelection reports whether a track is selected.
func (s Session) HasSelection() bool {
	return s.SelectedIndex.IsPresent()
}

// Fraction returns position/duration in [0,1], or 0 if the duration is unknown.
func (s Session) Fraction() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	return float64(s.PositionMs) / float64(s.DurationMs)
}

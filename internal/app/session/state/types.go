// Package state provides thread-safe bookkeeping of the session lifecycle.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseWaiting    Phase = iota // Created, library not loaded yet
	PhaseActive                  // Library loaded, player loop running
	PhaseTerminated              // Torn down
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

package playback

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoTrack         = errors.New("no track selected")
	ErrInvalidFraction = errors.New("invalid seek fraction")
	ErrInboxFull       = errors.New("player inbox is full")
	ErrClosed          = errors.New("player is closed")
)

//go:build !((linux && cgo) || windows || darwin)

package engine

import (
	"github.com/gopxl/beep/v2"
)

// Available indicates whether audio playback is supported in this build.
// Audio requires cgo for native sound libraries on this platform.
const Available = false

// silentOutput refuses to initialise, so every Load fails with ErrAudioUnavailable.
type silentOutput struct{}

func newSpeaker() Output {
	return silentOutput{}
}

func (silentOutput) Init(beep.SampleRate, int) error { return ErrAudioUnavailable }
func (silentOutput) Play(beep.Streamer)              {}
func (silentOutput) Clear()                          {}
func (silentOutput) Lock()                           {}
func (silentOutput) Unlock()                         {}
func (silentOutput) Close()                          {}

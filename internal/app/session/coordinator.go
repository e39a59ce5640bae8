package session

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
)

// Foreground is the notification / foreground-service collaborator.
// Only the Coordinator calls it.
type Foreground interface {
	Attach(engine playback.Engine, meta track.Metadata) error
	Detach() error
	PromoteForeground() error
	ReleaseForeground() error
}

// Coordinator couples the state stream to the foreground notification and
// owns engine release. It is registered as a playback.Listener and its
// Teardown runs on Stop, both on the player loop.
type Coordinator struct {
	mu sync.Mutex

	engine     playback.Engine
	ticker     playback.ProgressTicker
	foreground Foreground

	promoted    bool
	attached    bool
	attachedURI string
	released    bool
}

// NewCoordinator creates a coordinator.
func NewCoordinator(engine playback.Engine, ticker playback.ProgressTicker, foreground Foreground) *Coordinator {
	return &Coordinator{
		engine:     engine,
		ticker:     ticker,
		foreground: foreground,
	}
}

// OnState implements playback.Listener.
func (c *Coordinator) OnState(state playback.AudioPlayerState, snap playback.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := state.(type) {
	case playback.Ready, playback.Playing:
		if snap.Session.Phase == playback.PhaseReady && snap.Session.IsPlaying {
			c.attachLocked(snap)
		}
	case playback.Error:
		if s.Cause == playback.ErrorEngine {
			c.detachLocked("engine_error")
		}
	case playback.Initial:
		c.detachLocked("session_reset")
	}
}

// Attached reports whether the notification is attached.
func (c *Coordinator) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Promoted reports whether foreground promotion is held.
func (c *Coordinator) Promoted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promoted
}

// Teardown detaches the notification, releases foreground promotion, stops
// the ticker and releases the engine. Every step runs even if an earlier one
// fails. Calling it again is a no-op.
func (c *Coordinator) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil
	}

	err := c.detachLocked("teardown")
	c.ticker.Stop()
	if releaseErr := c.engine.Release(); releaseErr != nil {
		err = errors.CombineErrors(err, errors.Wrap(releaseErr, "release engine"))
	}
	c.released = true

	zlog.Info().Msg("coordinator: session torn down")
	return err
}

func (c *Coordinator) attachLocked(snap playback.Snapshot) {
	if c.released {
		return
	}
	trk, ok := snap.Track.Get()
	if !ok {
		return
	}

	if !c.promoted {
		if err := c.foreground.PromoteForeground(); err != nil {
			zlog.Warn().Err(err).Msg("coordinator: foreground promotion failed")
			return
		}
		c.promoted = true
	}

	if c.attached && c.attachedURI == trk.SourceURI {
		return
	}
	if err := c.foreground.Attach(c.engine, trk.Metadata()); err != nil {
		zlog.Warn().Err(err).Str("track", trk.DisplayName).Msg("coordinator: notification attach failed")
		return
	}
	c.attached = true
	c.attachedURI = trk.SourceURI
	zlog.Debug().Str("track", trk.DisplayName).Msg("coordinator: notification attached")
}

func (c *Coordinator) detachLocked(reason string) error {
	var err error
	if c.attached {
		if detachErr := c.foreground.Detach(); detachErr != nil {
			err = errors.Wrap(detachErr, "detach notification")
		}
		c.attached = false
		c.attachedURI = ""
	}
	if c.promoted {
		if releaseErr := c.foreground.ReleaseForeground(); releaseErr != nil {
			err = errors.CombineErrors(err, errors.Wrap(releaseErr, "release foreground"))
		}
		c.promoted = false
	}
	if err != nil {
		zlog.Warn().Err(err).Str("reason", reason).Msg("coordinator: detach incomplete")
	}
	return err
}

// Package desktop implements the now-playing notification collaborator.
package desktop

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gen2brain/beeep"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
)

// ArtworkSource loads a cover image for a track asynchronously.
type ArtworkSource interface {
	Load(sourceURI string, callback func(path string, err error))
}

// SendFunc shows one desktop notification.
type SendFunc func(title, message, iconPath string) error

// DesktopSettings holds the desktop notifier settings.
type DesktopSettings struct {
	Artwork    *bool  `yaml:"artwork" mapstructure:"artwork" default:"true"`
	ArtworkDir string `yaml:"artwork_dir" mapstructure:"artwork_dir"`
	Icon       string `yaml:"icon" mapstructure:"icon"`
}

// ArtworkEnabled reports whether cover images are loaded.
func (s DesktopSettings) ArtworkEnabled() bool {
	return s.Artwork == nil || *s.Artwork
}

// Notifier shows a desktop notification whenever a track is attached.
// Desktop notifications cannot be retracted, so Detach only forgets the track.
type Notifier struct {
	mu sync.Mutex

	appName  string
	settings DesktopSettings
	artwork  ArtworkSource
	send     SendFunc

	current    string // source URI of the attached track
	foreground bool
}

// NewNotifier creates a desktop notifier. artwork may be nil.
func NewNotifier(appName string, settings DesktopSettings, artwork ArtworkSource) *Notifier {
	return &Notifier{
		appName:  appName,
		settings: settings,
		artwork:  artwork,
		send: func(title, message, iconPath string) error {
			return beeep.Notify(title, message, iconPath)
		},
	}
}

// SetSendFunc replaces the notification sink.
func (n *Notifier) SetSendFunc(send SendFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

// Attach shows the now-playing notification for meta.
// The notification is sent asynchronously; Attach never waits for the desktop.
func (n *Notifier) Attach(engine playback.Engine, meta track.Metadata) error {
	n.mu.Lock()
	n.current = meta.SourceURI
	title, message := n.content(engine, meta)
	withArtwork := n.settings.ArtworkEnabled() && n.artwork != nil
	n.mu.Unlock()

	if !withArtwork {
		go n.deliver(meta.SourceURI, title, message, n.settings.Icon)
		return nil
	}

	n.artwork.Load(meta.SourceURI, func(path string, err error) {
		icon := path
		if err != nil {
			icon = n.settings.Icon
		}
		n.deliver(meta.SourceURI, title, message, icon)
	})
	return nil
}

// Detach forgets the attached track; late artwork callbacks are ignored.
func (n *Notifier) Detach() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = ""
	return nil
}

// PromoteForeground marks the session as foreground.
func (n *Notifier) PromoteForeground() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.foreground = true
	zlog.Debug().Msg("desktop: foreground promoted")
	return nil
}

// ReleaseForeground clears the foreground mark.
func (n *Notifier) ReleaseForeground() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.foreground = false
	zlog.Debug().Msg("desktop: foreground released")
	return nil
}

// Foreground reports whether the session is promoted.
func (n *Notifier) Foreground() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.foreground
}

func (n *Notifier) content(engine playback.Engine, meta track.Metadata) (string, string) {
	parts := []string{meta.Artist}
	if meta.Album != "" {
		parts = append(parts, meta.Album)
	}
	if engine != nil {
		if d := engine.DurationMs(); d > 0 {
			parts = append(parts, track.FormatMs(d))
		}
	}
	return fmt.Sprintf("%s: %s", n.appName, meta.Title), strings.Join(parts, " · ")
}

// deliver shows the notification and logs a failure.
func (n *Notifier) deliver(sourceURI, title, message, icon string) {
	if err := n.show(sourceURI, title, message, icon); err != nil {
		zlog.Warn().Err(err).Msg("desktop: notification failed")
	}
}

func (n *Notifier) show(sourceURI, title, message, icon string) error {
	n.mu.Lock()
	if n.current != sourceURI {
		n.mu.Unlock()
		return nil
	}
	send := n.send
	n.mu.Unlock()

	if err := send(title, message, icon); err != nil {
		return errors.Wrap(err, "send notification")
	}
	zlog.Info().Str("title", title).Msg("desktop: notification shown")
	return nil
}

package desktop

import (
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/domain/track"
)

// LogSettings holds the log notifier settings.
type LogSettings struct {
	Level string `yaml:"level" mapstructure:"level" default:"info" validate:"oneof=debug info warn"`
}

// LogNotifier writes notification lifecycle to the log instead of the desktop.
type LogNotifier struct {
	mu    sync.Mutex
	level zerolog.Level

	attached   []track.Metadata
	detaches   int
	foreground bool
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(settings LogSettings) *LogNotifier {
	level, err := zerolog.ParseLevel(settings.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return &LogNotifier{level: level}
}

func (n *LogNotifier) Attach(_ playback.Engine, meta track.Metadata) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attached = append(n.attached, meta)
	zlog.WithLevel(n.level).Str("title", meta.Title).Str("artist", meta.Artist).Msg("notifier: attached")
	return nil
}

func (n *LogNotifier) Detach() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.detaches++
	zlog.WithLevel(n.level).Msg("notifier: detached")
	return nil
}

func (n *LogNotifier) PromoteForeground() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.foreground = true
	return nil
}

func (n *LogNotifier) ReleaseForeground() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.foreground = false
	return nil
}

// Attached returns every metadata attached so far.
func (n *LogNotifier) Attached() []track.Metadata {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]track.Metadata(nil), n.attached...)
}

// Detaches returns the number of detach calls.
func (n *LogNotifier) Detaches() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.detaches
}

// Foreground reports whether the session is promoted.
func (n *LogNotifier) Foreground() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.foreground
}

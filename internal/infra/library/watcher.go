package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/infra/config"
)

// Watcher reports library changes after a quiet period.
type Watcher struct {
	cfg      *config.Config
	debounce time.Duration
}

// NewWatcher creates a watcher for cfg.Library.Roots.
func NewWatcher(cfg *config.Config) *Watcher {
	return &Watcher{cfg: cfg, debounce: cfg.RescanDebounce()}
}

// Run watches the roots recursively until ctx is done. onChange is called on
// the Run goroutine once per burst of relevant events.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	for _, root := range w.cfg.Library.Roots {
		if err := addTree(watcher, root); err != nil {
			zlog.Warn().Err(err).Str("root", root).Msg("library: root not watched")
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(watcher, event) {
				continue
			}
			zlog.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("library: change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			timer, fire = nil, nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zlog.Warn().Err(err).Msg("library: watcher error")
		}
	}
}

// relevant reports whether event may change the track list. Created
// directories are added to the watch set.
func (w *Watcher) relevant(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	switch {
	case event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(watcher, event.Name); err != nil {
				zlog.Warn().Err(err).Str("path", event.Name).Msg("library: directory not watched")
			}
			return true
		}
		return w.cfg.HasExtension(event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// Removed directories can no longer be inspected.
		return w.cfg.HasExtension(event.Name) || filepath.Ext(event.Name) == ""
	case event.Op.Has(fsnotify.Write):
		return w.cfg.HasExtension(event.Name)
	default:
		return false
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

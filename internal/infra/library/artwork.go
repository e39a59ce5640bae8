package library

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/domain/track"
)

// ErrNoArtwork is reported when a file carries no embedded picture.
var ErrNoArtwork = errors.New("no embedded artwork")

// ArtworkLoader extracts embedded pictures into a cache directory.
type ArtworkLoader struct {
	dir string

	mu    sync.Mutex
	cache map[string]string // source URI -> cached file path
}

// NewArtworkLoader creates a loader caching under dir.
func NewArtworkLoader(dir string) *ArtworkLoader {
	return &ArtworkLoader{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Load extracts artwork on a separate goroutine and reports the cached file
// path through callback.
func (l *ArtworkLoader) Load(sourceURI string, callback func(path string, err error)) {
	go func() {
		path, err := l.Path(sourceURI)
		if err != nil && !errors.Is(err, ErrNoArtwork) {
			zlog.Debug().Err(err).Str("uri", sourceURI).Msg("library: artwork load failed")
		}
		callback(path, err)
	}()
}

// Path extracts artwork synchronously and returns the cached file path.
func (l *ArtworkLoader) Path(sourceURI string) (string, error) {
	l.mu.Lock()
	if p, ok := l.cache[sourceURI]; ok {
		l.mu.Unlock()
		return p, nil
	}
	l.mu.Unlock()

	src, err := PathFromURI(sourceURI)
	if err != nil {
		return "", err
	}
	m, err := readTags(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to read tags")
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return "", ErrNoArtwork
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create artwork dir")
	}
	ext := strings.TrimPrefix(strings.ToLower(pic.Ext), ".")
	if ext == "" {
		ext = "img"
	}
	dst := filepath.Join(l.dir, track.IDFor(sourceURI)+"."+ext)
	if err := os.WriteFile(dst, pic.Data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write artwork")
	}

	l.mu.Lock()
	l.cache[sourceURI] = dst
	l.mu.Unlock()
	return dst, nil
}

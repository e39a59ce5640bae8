// Package library discovers audio files on disk and turns them into tracks.
package library

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/localbox/internal/domain/track"
	"github.com/osa030/localbox/internal/infra/config"
)

// ErrNoRoots is returned when none of the configured roots can be read.
var ErrNoRoots = errors.New("no readable library roots")

// Scanner walks the configured library roots.
type Scanner struct {
	cfg *config.Config
}

// NewScanner creates a scanner for cfg.Library.
func NewScanner(cfg *config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Provide returns every supported audio file under the roots, ordered by path.
func (s *Scanner) Provide(ctx context.Context) ([]track.Track, error) {
	var paths []string
	readable := 0
	for _, root := range s.cfg.Library.Roots {
		found, err := s.walk(ctx, root)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zlog.Warn().Err(err).Str("root", root).Msg("library: root skipped")
			continue
		}
		readable++
		paths = append(paths, found...)
	}
	if readable == 0 {
		return nil, ErrNoRoots
	}

	sort.Strings(paths)
	paths = lo.Uniq(paths)

	tracks := make([]track.Track, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracks = append(tracks, readTrack(p))
	}

	zlog.Info().Int("tracks", len(tracks)).Msg("library: scan complete")
	return tracks, nil
}

func (s *Scanner) walk(ctx context.Context, root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", abs)
	}

	var paths []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			zlog.Debug().Err(err).Str("path", path).Msg("library: entry unreadable")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.cfg.HasExtension(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// readTrack builds a track from tag metadata. Unreadable tags fall back to
// the file name.
func readTrack(path string) track.Track {
	displayName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	uri := FileURI(path)

	m, err := readTags(path)
	if err != nil {
		zlog.Debug().Err(err).Str("path", path).Msg("library: no tags")
		return track.New(uri, displayName, "", "", displayName, 0)
	}

	title := strings.TrimSpace(m.Title())
	if title == "" {
		title = displayName
	}
	return track.New(uri, title, strings.TrimSpace(m.Artist()), strings.TrimSpace(m.Album()), displayName, 0)
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tag.ReadFrom(f)
}

// FileURI returns the file:// URI for an absolute path.
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// PathFromURI returns the local path of a file:// URI.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "invalid source uri %q", uri)
	}
	if u.Scheme != "file" {
		return "", errors.Newf("unsupported source uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

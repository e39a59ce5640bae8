package desktop

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/session"
	"github.com/osa030/localbox/internal/infra/config"
	"github.com/osa030/localbox/internal/infra/library"
)

// NewFromConfig creates the notifier selected by cfg.Notifier.
func NewFromConfig(cfg *config.Config) (session.Foreground, error) {
	ncfg := cfg.Notifier
	zlog.Debug().Msgf("creating notifier: type=%s settings=%+v", ncfg.Type, ncfg.Settings)

	switch ncfg.Type {
	case "desktop":
		var settings DesktopSettings
		if err := decodeSettings(ncfg.Settings, &settings); err != nil {
			return nil, errors.Wrapf(err, "invalid %s notifier settings", ncfg.Type)
		}
		var artwork ArtworkSource
		if settings.ArtworkEnabled() {
			dir := settings.ArtworkDir
			if dir == "" {
				dir = filepath.Join(os.TempDir(), "localbox-artwork")
			}
			artwork = library.NewArtworkLoader(dir)
		}
		zlog.Info().Msgf("registered notifier: type=%s display_name=%s", ncfg.Type, ncfg.DisplayName)
		return NewNotifier(ncfg.DisplayName, settings, artwork), nil

	case "log":
		var settings LogSettings
		if err := decodeSettings(ncfg.Settings, &settings); err != nil {
			return nil, errors.Wrapf(err, "invalid %s notifier settings", ncfg.Type)
		}
		zlog.Info().Msgf("registered notifier: type=%s display_name=%s", ncfg.Type, ncfg.DisplayName)
		return NewLogNotifier(settings), nil

	default:
		return nil, errors.Newf("unsupported notifier type: %s", ncfg.Type)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

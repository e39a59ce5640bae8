// Package main provides the localbox entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/app/session"
	"github.com/osa030/localbox/internal/infra/config"
	"github.com/osa030/localbox/internal/infra/desktop"
	"github.com/osa030/localbox/internal/infra/engine"
	"github.com/osa030/localbox/internal/infra/library"
	"github.com/osa030/localbox/internal/infra/logger"
	"github.com/osa030/localbox/internal/infra/store"
	"github.com/osa030/localbox/internal/ui/tui"
)

const defaultLogFile = "localbox.log"

var (
	app        = kingpin.New("localbox", "localbox local audio player")
	configPath = app.Flag("config", "Path to config file").Default("config/localbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: "+defaultLogFile+" while playing, stdout otherwise)").String()

	playCmd = app.Command("play", "Play the library in the terminal UI (default)").Default()
	scanCmd = app.Command("scan", "Print the discovered library and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// The terminal UI owns stdout, so playback logs go to a file.
	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if command == playCmd.FullCommand() {
		loggerConfig.Output = "file"
		loggerConfig.File = defaultLogFile
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		zlog.Error().Msgf("Failed to load config: %v", err)
		closer.Close()
		os.Exit(1)
	}

	switch command {
	case scanCmd.FullCommand():
		err = runScan(cfg, os.Stdout)
	default:
		err = runPlay(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "localbox: %v\n", err)
		zlog.Error().Msgf("localbox error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// runScan prints the discovered library as a table.
func runScan(cfg *config.Config, out io.Writer) error {
	tracks, err := library.NewScanner(cfg).Provide(context.Background())
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Album", "File"})
	for i, trk := range tracks {
		meta := trk.Metadata()
		t.AppendRow(table.Row{i + 1, meta.Title, meta.Artist, trk.Album, trk.DisplayName})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(tracks)), "", "", ""})
	t.Render()
	return nil
}

// runPlay runs the session with the terminal UI until the user quits or a
// signal arrives. Using a separate function ensures deferred cleanup runs.
func runPlay(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !engine.Available {
		zlog.Warn().Msg("audio output is not available in this build, tracks will fail to load")
	}

	notifier, err := desktop.NewFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create notifier")
	}
	snapshots, err := store.Open(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open store")
	}

	mgr, err := session.NewManager(cfg, session.Deps{
		Engine:     engine.New(),
		Provider:   library.NewScanner(cfg),
		Foreground: notifier,
		Watcher:    library.NewWatcher(cfg),
		Store:      snapshots,
	})
	if err != nil {
		snapshots.Close()
		return errors.Wrap(err, "failed to create session manager")
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			zlog.Error().Msgf("Failed to close session: %v", err)
		}
	}()

	if err := mgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	cursor, resumeMs := 0, int64(0)
	if r, ok := mgr.Restored().Get(); ok {
		cursor, resumeMs = r.Index, r.PositionMs
	}

	program := tea.NewProgram(tui.New(mgr, cursor, resumeMs), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		<-mgr.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "terminal UI failed")
	}
	zlog.Info().Msg("localbox stopped")
	return nil
}

// Package session wires the playback core to the library, the notification
// collaborator and persistence for the lifetime of the process.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/app/session/state"
	"github.com/osa030/localbox/internal/app/stream"
	"github.com/osa030/localbox/internal/domain/playlist"
	"github.com/osa030/localbox/internal/domain/track"
	"github.com/osa030/localbox/internal/infra/config"
	"github.com/osa030/localbox/internal/infra/store"
)

const saveTimeout = 2 * time.Second

var (
	ErrSessionNotRunning = errors.New("session is not running")
	ErrAlreadyStarted    = errors.New("session already started")
)

// TrackProvider discovers the playback list.
type TrackProvider interface {
	Provide(ctx context.Context) ([]track.Track, error)
}

// Watcher reports library changes until ctx is done.
type Watcher interface {
	Run(ctx context.Context, onChange func()) error
}

// SnapshotStore persists the UI snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (store.Snapshot, bool, error)
	Save(ctx context.Context, snap store.Snapshot) error
	Close() error
}

// Deps are the collaborators of a Manager. Watcher and Store are optional.
type Deps struct {
	Engine     playback.Engine
	Provider   TrackProvider
	Foreground Foreground
	Watcher    Watcher
	Store      SnapshotStore
}

// Resume is the restored selection from a previous run.
type Resume struct {
	Index      int
	PositionMs int64
}

// Manager manages the playback session.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config
	deps   Deps

	// Components
	stateMgr    *state.Manager
	hub         *stream.Hub
	player      *playback.Player
	coordinator *Coordinator
	persist     *persister

	tracks   []track.Track
	restored mo.Option[Resume]
	reloadMu sync.Mutex // serializes Reload

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, deps Deps) (*Manager, error) {
	if deps.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("track provider is required")
	}
	if deps.Foreground == nil {
		return nil, errors.New("foreground collaborator is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:   cfg,
		deps:     deps,
		stateMgr: state.New(uuid.New().String()),
		hub:      stream.NewHub(cfg.Playback.SubscriberBuffer),
		persist:  newPersister(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.player = playback.NewPlayer(playback.Config{
		TickInterval: cfg.TickInterval(),
		SeekStep:     cfg.SeekStep(),
		InboxSize:    cfg.Playback.InboxSize,
	}, deps.Engine, m.hub)
	m.coordinator = NewCoordinator(deps.Engine, m.player.Ticker(), deps.Foreground)

	m.player.AddListener(m.coordinator)
	m.player.AddListener(m.persist)
	m.player.SetTeardown(playback.TeardownFunc(m.teardown))

	return m, nil
}

// Start loads the library and starts the player loop.
func (m *Manager) Start(ctx context.Context) error {
	if m.stateMgr.GetPhase() != state.PhaseWaiting {
		return ErrAlreadyStarted
	}

	tracks, err := m.deps.Provider.Provide(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load library")
	}
	zlog.Info().Msgf("loaded library: track_count=%d", len(tracks))

	if err := m.player.SetTracks(tracks); err != nil {
		return errors.Wrap(err, "failed to hand tracks to player")
	}

	m.mu.Lock()
	m.tracks = tracks
	m.restored = m.restore(ctx, tracks)
	m.mu.Unlock()
	m.stateMgr.SetTrackCount(len(tracks))

	if !m.stateMgr.Activate(time.Now()) {
		return ErrAlreadyStarted
	}
	zlog.Info().Msgf("phase changed: phase=ACTIVE session_id=%s", m.stateMgr.GetSessionID())

	m.wg.Add(2)
	go m.runPlayer()
	go m.persistLoop()

	if m.deps.Watcher != nil && m.config.WatchEnabled() {
		m.wg.Add(1)
		go m.watchLoop()
	}

	go func() {
		m.wg.Wait()
		close(m.done)
	}()

	return nil
}

// Send forwards a user intent to the player.
func (m *Manager) Send(ev playback.PlayerEvent) error {
	if m.stateMgr.GetPhase() != state.PhaseActive {
		return ErrSessionNotRunning
	}
	return m.player.Send(ev)
}

// Subscribe returns an ordered stream of player states.
func (m *Manager) Subscribe() stream.Subscription {
	return m.hub.Subscribe()
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.hub.Unsubscribe(subscriptionID)
}

// Tracks returns a copy of the current playback list.
func (m *Manager) Tracks() []track.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tracks)
}

// Restored returns the selection saved by a previous run, if it still
// resolves in the current library.
func (m *Manager) Restored() mo.Option[Resume] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restored
}

// Info returns the session bookkeeping.
func (m *Manager) Info() state.Info {
	return m.stateMgr.Info()
}

// Reload rescans the library and replaces the playback list, which resets
// the session. An unchanged library is ignored.
func (m *Manager) Reload(ctx context.Context) error {
	if m.stateMgr.GetPhase() != state.PhaseActive {
		return ErrSessionNotRunning
	}

	tracks, err := m.deps.Provider.Provide(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to rescan library")
	}

	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	m.mu.Lock()
	previous := m.tracks
	unchanged := slices.Equal(sourceURIs(previous), sourceURIs(tracks))
	if !unchanged {
		// Set before the player publishes Initial, which makes subscribers re-read Tracks.
		m.tracks = tracks
	}
	m.mu.Unlock()

	if unchanged {
		zlog.Debug().Msg("session: library unchanged")
		return nil
	}
	if err := m.player.SetTracks(tracks); err != nil {
		m.mu.Lock()
		m.tracks = previous
		m.mu.Unlock()
		return errors.Wrap(err, "failed to hand tracks to player")
	}
	m.stateMgr.RecordReload(len(tracks))
	zlog.Info().Msgf("library reloaded: track_count=%d", len(tracks))
	return nil
}

// Stop asks the player to tear the session down. It does not wait; use Done.
func (m *Manager) Stop() error {
	switch m.stateMgr.GetPhase() {
	case state.PhaseWaiting:
		if m.stateMgr.Terminate(time.Now()) {
			zlog.Info().Msgf("phase changed: phase=TERMINATED session_id=%s reason=stopped_before_starting", m.stateMgr.GetSessionID())
		}
		m.cancel()
		return nil
	case state.PhaseTerminated:
		return nil
	}

	err := m.player.Send(playback.Stop{})
	if errors.Is(err, playback.ErrClosed) {
		return nil
	}
	if err != nil {
		// Cancelling the loop context also tears the session down.
		zlog.Warn().Err(err).Msg("session: stop intent not queued, cancelling")
		m.cancel()
	}
	return nil
}

// Done is closed once the session has been torn down and all goroutines
// have exited. It never closes for a session that was not started.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops the session, waits for teardown and releases the hub and the store.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		started := m.stateMgr.Info().StartedAt != nil
		if stopErr := m.Stop(); stopErr != nil {
			err = stopErr
		}
		if started {
			<-m.done
		} else {
			// The engine is released by teardown, which never ran.
			if releaseErr := m.deps.Engine.Release(); releaseErr != nil {
				err = errors.CombineErrors(err, errors.Wrap(releaseErr, "release engine"))
			}
		}
		m.cancel()
		m.hub.Close()
		if m.deps.Store != nil {
			if closeErr := m.deps.Store.Close(); closeErr != nil {
				err = errors.CombineErrors(err, errors.Wrap(closeErr, "close store"))
			}
		}
	})
	return err
}

func (m *Manager) runPlayer() {
	defer m.wg.Done()
	// The watcher and the persist loop end with the player.
	defer m.cancel()

	if err := m.player.Run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error().Err(err).Msg("session: player stopped with error")
	}
}

// teardown runs on the player loop when the session stops.
func (m *Manager) teardown() error {
	err := m.coordinator.Teardown()
	if saveErr := m.save(); saveErr != nil {
		err = errors.CombineErrors(err, saveErr)
	}
	if m.stateMgr.Terminate(time.Now()) {
		zlog.Info().Msgf("phase changed: phase=TERMINATED session_id=%s", m.stateMgr.GetSessionID())
	}
	return err
}

func (m *Manager) persistLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.player.Done():
			return
		case <-m.persist.saveCh:
			if err := m.save(); err != nil {
				zlog.Warn().Err(err).Msg("session: snapshot not saved")
			}
		}
	}
}

func (m *Manager) watchLoop() {
	defer m.wg.Done()
	err := m.deps.Watcher.Run(m.ctx, func() {
		if err := m.Reload(m.ctx); err != nil && !errors.Is(err, ErrSessionNotRunning) {
			zlog.Warn().Err(err).Msg("session: library reload failed")
		}
	})
	if err != nil {
		zlog.Warn().Err(err).Msg("session: library watcher stopped")
	}
}

func (m *Manager) save() error {
	if m.deps.Store == nil {
		return nil
	}
	snap, ok := m.persist.current(time.Now())
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.deps.Store.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "save snapshot")
	}
	zlog.Debug().Str("uri", snap.SourceURI).Int64("position_ms", snap.PositionMs).Msg("session: snapshot saved")
	return nil
}

// restore resolves the saved snapshot against tracks. The source URI wins
// over the saved index.
func (m *Manager) restore(ctx context.Context, tracks []track.Track) mo.Option[Resume] {
	if m.deps.Store == nil {
		return mo.None[Resume]()
	}
	snap, ok, err := m.deps.Store.Load(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("session: snapshot not restored")
		return mo.None[Resume]()
	}
	if !ok {
		return mo.None[Resume]()
	}

	index := playlist.New(tracks).IndexOf(snap.SourceURI)
	if index < 0 {
		zlog.Info().Str("uri", snap.SourceURI).Msg("session: saved track no longer in library")
		return mo.None[Resume]()
	}
	zlog.Info().Int("index", index).Int64("position_ms", snap.PositionMs).Msg("session: snapshot restored")
	return mo.Some(Resume{Index: index, PositionMs: snap.PositionMs})
}

func sourceURIs(tracks []track.Track) []string {
	return lo.Map(tracks, func(t track.Track, _ int) string { return t.SourceURI })
}

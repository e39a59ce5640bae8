package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/localbox/internal/domain/playlist"
	"github.com/osa030/localbox/internal/domain/track"
)

// DefaultInboxSize is the inbox capacity used when none is configured.
const DefaultInboxSize = 64

// Config holds player configuration.
type Config struct {
	TickInterval time.Duration // Position sampling cadence while playing
	SeekStep     time.Duration // Step for Backward/Forward
	InboxSize    int           // Capacity of the serialized inbox
}

// message is anything the loop consumes.
type message interface{}

type intentMsg struct{ event PlayerEvent }
type engineMsg struct{ event EngineEvent }
type tickMsg struct{ tick Tick }
type listMsg struct{ tracks []track.Track }

// Player owns the single playback session. Engine callbacks, ticks, list
// replacements and user intents are funnelled through one inbox and handled
// by Run on a single goroutine.
type Player struct {
	engine     Engine
	agg        *Aggregator
	dispatcher *Dispatcher
	ticker     *Ticker

	inbox chan message

	started atomic.Bool
	done    chan struct{}
}

// NewPlayer wires an aggregator, dispatcher and ticker around engine.
// publisher receives every state in order; it may be nil.
func NewPlayer(cfg Config, engine Engine, publisher Publisher) *Player {
	size := cfg.InboxSize
	if size <= 0 {
		size = DefaultInboxSize
	}

	p := &Player{
		engine: engine,
		inbox:  make(chan message, size),
		done:   make(chan struct{}),
	}
	p.ticker = NewTicker(cfg.TickInterval, engine, p.enqueueTick)
	p.agg = NewAggregator(p.ticker, publisher)
	p.dispatcher = NewDispatcher(engine, p.agg, DispatcherConfig{SeekStep: cfg.SeekStep})
	return p
}

// AddListener registers an internal observer. Must be called before Run.
func (p *Player) AddListener(l Listener) {
	p.agg.AddListener(l)
}

// SetTeardown replaces the teardown run on Stop. Must be called before Run.
func (p *Player) SetTeardown(t Teardowner) {
	p.dispatcher.SetTeardown(t)
}

// Ticker returns the progress ticker.
func (p *Player) Ticker() ProgressTicker {
	return p.ticker
}

// Send queues a user intent without blocking.
func (p *Player) Send(ev PlayerEvent) error {
	return p.enqueue(intentMsg{event: ev})
}

// SetTracks queues a playback list replacement. The active session is reset.
func (p *Player) SetTracks(tracks []track.Track) error {
	cp := make([]track.Track, len(tracks))
	copy(cp, tracks)
	return p.enqueue(listMsg{tracks: cp})
}

// Done is closed once the session has been torn down.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Run processes the inbox until a Stop intent is handled or ctx is cancelled.
// Either way the session is torn down before Run returns.
func (p *Player) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("player already started")
	}
	return p.run(ctx)
}

func (p *Player) run(ctx context.Context) error {
	pumpCtx, cancelPump := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pump(pumpCtx)
	}()

	defer func() {
		cancelPump()
		wg.Wait()
		close(p.done)
	}()

	zlog.Info().Msg("player: loop started")
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("player: context cancelled, tearing down")
			if err := p.dispatcher.Dispatch(Stop{}); err != nil {
				zlog.Error().Err(err).Msg("player: teardown failed")
				return err
			}
			return ctx.Err()
		case msg := <-p.inbox:
			stop, err := p.handle(msg)
			if stop {
				zlog.Info().Msg("player: stopped")
				return err
			}
		}
	}
}

// handle processes one message and reports whether the loop should end.
func (p *Player) handle(msg message) (bool, error) {
	switch m := msg.(type) {
	case intentMsg:
		err := p.dispatcher.Dispatch(m.event)
		if _, isStop := m.event.(Stop); isStop {
			if err != nil {
				zlog.Error().Err(err).Msg("player: teardown failed")
			}
			return true, err
		}
		if err != nil {
			zlog.Debug().Err(err).Msgf("player: %s not applied", m.event)
		}
	case engineMsg:
		p.agg.HandleEngineEvent(m.event)
	case tickMsg:
		p.agg.OnTick(m.tick)
	case listMsg:
		if err := p.engine.SetItems(m.tracks); err != nil {
			p.agg.ReplaceList(playlist.New(nil))
			p.agg.OnEngineError(err.Error())
			return false, nil
		}
		p.agg.ReplaceList(playlist.New(m.tracks))
	default:
		zlog.Warn().Msgf("player: unknown message %T", msg)
	}
	return false, nil
}

// pump forwards engine events into the inbox.
func (p *Player) pump(ctx context.Context) {
	events := p.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case p.inbox <- engineMsg{event: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Player) enqueue(msg message) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	default:
		return ErrInboxFull
	}
}

func (p *Player) enqueueTick(ctx context.Context, t Tick) {
	select {
	case p.inbox <- tickMsg{tick: t}:
	case <-ctx.Done():
	case <-p.done:
	}
}

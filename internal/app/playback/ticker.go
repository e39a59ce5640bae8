package playback

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultTickInterval is the sampling cadence used when none is configured.
const DefaultTickInterval = 500 * time.Millisecond

// Tick is one position sample. Generation identifies the run that produced it.
type Tick struct {
	Generation uint64
	PositionMs int64
}

// ProgressTicker is the ticker surface the aggregator drives.
type ProgressTicker interface {
	Start()
	Stop()
	Running() bool
	Accepts(t Tick) bool
}

// Ticker samples the engine position on a fixed interval while running.
// It is a single goroutine; Start is idempotent and Stop blocks until the
// goroutine has exited, so no tick is emitted after Stop returns.
type Ticker struct {
	mu sync.Mutex

	interval time.Duration
	sampler  PositionSampler
	emit     func(ctx context.Context, t Tick)

	running    bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewTicker creates a stopped ticker. emit is called from the ticker goroutine
// and must return promptly once ctx is done.
func NewTicker(interval time.Duration, sampler PositionSampler, emit func(ctx context.Context, t Tick)) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{
		interval: interval,
		sampler:  sampler,
		emit:     emit,
	}
}

// Start begins sampling. Starting a running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}

	t.generation++
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.running = true
	t.cancel = cancel
	t.done = done

	go t.run(ctx, t.generation, done)
}

// Stop cancels the pending wait and waits for the sampling goroutine to exit.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.running = false
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Running reports whether the ticker is sampling.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Accepts reports whether a tick belongs to the current run.
// Ticks queued before a Stop or restart are rejected.
func (t *Ticker) Accepts(tick Tick) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && tick.Generation == t.generation
}

func (t *Ticker) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pos, err := t.sampler.PositionMs()
		if err != nil {
			// Expected while the engine is being torn down.
			zlog.Debug().Err(err).Uint64("generation", gen).Msg("ticker: position query failed, stopping")
			t.selfStop(gen)
			return
		}

		if ctx.Err() != nil {
			return
		}
		t.emit(ctx, Tick{Generation: gen, PositionMs: pos})
	}
}

func (t *Ticker) selfStop(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.generation == gen {
		t.running = false
	}
}

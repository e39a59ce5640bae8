package playback

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// DefaultSeekStep is the relative seek used by Backward and Forward.
const DefaultSeekStep = 5 * time.Second

// reasonIndexOutOfRange is the published reason for a rejected selection.
const reasonIndexOutOfRange = "index out of range"

// Teardowner releases everything a session holds.
type Teardowner interface {
	Teardown() error
}

// TeardownFunc adapts a function to Teardowner.
type TeardownFunc func() error

// Teardown calls f.
func (f TeardownFunc) Teardown() error { return f() }

// DispatcherConfig holds dispatcher configuration.
type DispatcherConfig struct {
	SeekStep time.Duration // Step for Backward/Forward
}

// Dispatcher validates user intents and turns them into engine commands.
// Like the Aggregator it runs on the Player loop only.
type Dispatcher struct {
	engine   Engine
	agg      *Aggregator
	seekStep int64

	teardown Teardowner
}

// NewDispatcher creates a dispatcher. Until SetTeardown is called, Stop
// releases the engine directly.
func NewDispatcher(engine Engine, agg *Aggregator, cfg DispatcherConfig) *Dispatcher {
	step := cfg.SeekStep
	if step <= 0 {
		step = DefaultSeekStep
	}
	return &Dispatcher{
		engine:   engine,
		agg:      agg,
		seekStep: step.Milliseconds(),
		teardown: TeardownFunc(engine.Release),
	}
}

// SetTeardown replaces the teardown run on Stop.
func (d *Dispatcher) SetTeardown(t Teardowner) {
	d.teardown = t
}

// Dispatch handles one intent. Rejected intents are published as validation
// errors and never reach the engine; the returned error is informational.
func (d *Dispatcher) Dispatch(ev PlayerEvent) error {
	zlog.Debug().Msgf("dispatcher: %s", ev)

	switch e := ev.(type) {
	case PlayPause:
		return d.playPause()
	case Backward:
		return d.seekRelative(-d.seekStep)
	case Forward:
		return d.seekRelative(d.seekStep)
	case SeekTo:
		return d.seekTo(e.Fraction)
	case SeekToNext:
		return d.seekToNext()
	case SelectedAudioChange:
		return d.selectAudio(e.Index)
	case UpdateProgress:
		return d.updateProgress(e.Fraction)
	case Stop:
		return d.stop()
	default:
		return errors.Newf("unknown player event %T", ev)
	}
}

func (d *Dispatcher) playPause() error {
	sess := d.agg.Session()
	if !sess.HasSelection() {
		d.agg.Echo(Playing{IsPlaying: sess.IsPlaying})
		return nil
	}

	if d.agg.PlayIntended() {
		return d.command("pause", d.engine.Pause())
	}
	return d.command("play", d.engine.Play())
}

func (d *Dispatcher) seekRelative(deltaMs int64) error {
	sess := d.agg.Session()
	if !sess.HasSelection() {
		return ErrNoTrack
	}
	if sess.DurationMs <= 0 {
		return nil
	}
	return d.seekAbsolute(lo.Clamp(sess.PositionMs+deltaMs, 0, sess.DurationMs))
}

func (d *Dispatcher) seekTo(fraction float64) error {
	if math.IsNaN(fraction) {
		d.agg.Reject(ErrInvalidFraction.Error())
		return ErrInvalidFraction
	}
	sess := d.agg.Session()
	if !sess.HasSelection() {
		return ErrNoTrack
	}
	if sess.DurationMs <= 0 {
		return nil
	}
	return d.seekAbsolute(fractionToMs(fraction, sess.DurationMs))
}

func (d *Dispatcher) seekAbsolute(targetMs int64) error {
	if err := d.command("seek", d.engine.SeekTo(targetMs)); err != nil {
		return err
	}
	d.agg.OnSeek(targetMs)
	return nil
}

// seekToNext never wraps: at the last track it does nothing.
func (d *Dispatcher) seekToNext() error {
	selected, ok := d.agg.Session().Selected()
	if !ok {
		return ErrNoTrack
	}

	next := selected + 1
	if !d.agg.List().InRange(next) {
		zlog.Debug().Int("index", selected).Msg("dispatcher: already at last track")
		return nil
	}
	return d.command("skip", d.engine.SkipToIndex(next))
}

func (d *Dispatcher) selectAudio(index int) error {
	list := d.agg.List()
	if !list.InRange(index) {
		d.agg.Reject(reasonIndexOutOfRange)
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d tracks=%d", index, list.Len())
	}

	d.agg.OnTrackAdvanced(index)
	if err := d.command("load", d.engine.Load(index)); err != nil {
		return err
	}
	return d.command("play", d.engine.Play())
}

func (d *Dispatcher) updateProgress(fraction float64) error {
	if math.IsNaN(fraction) {
		d.agg.Reject(ErrInvalidFraction.Error())
		return ErrInvalidFraction
	}
	sess := d.agg.Session()
	if !sess.HasSelection() || sess.DurationMs <= 0 {
		return nil
	}
	d.agg.Echo(Progress{PositionMs: fractionToMs(fraction, sess.DurationMs)})
	return nil
}

func (d *Dispatcher) stop() error {
	d.agg.Reset()
	if d.teardown == nil {
		return nil
	}
	return errors.Wrap(d.teardown.Teardown(), "teardown")
}

// command converts a synchronous engine failure into an engine error state.
func (d *Dispatcher) command(name string, err error) error {
	if err == nil {
		return nil
	}
	d.agg.OnEngineError(err.Error())
	return errors.Wrapf(err, "engine %s", name)
}

// fractionToMs clamps fraction to [0,1] and scales it to durationMs.
func fractionToMs(fraction float64, durationMs int64) int64 {
	f := lo.Clamp(fraction, 0, 1)
	return int64(math.Round(f * float64(durationMs)))
}

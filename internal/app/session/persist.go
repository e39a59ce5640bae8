package session

import (
	"sync"
	"time"

	"github.com/osa030/localbox/internal/app/playback"
	"github.com/osa030/localbox/internal/infra/store"
)

// persister tracks the selection and progress to be saved. It is a
// playback.Listener; saves happen off the player loop.
type persister struct {
	mu    sync.Mutex
	snap  store.Snapshot
	valid bool

	saveCh chan struct{}
}

func newPersister() *persister {
	return &persister{saveCh: make(chan struct{}, 1)}
}

// OnState implements playback.Listener.
func (p *persister) OnState(state playback.AudioPlayerState, snap playback.Snapshot) {
	var save bool

	p.mu.Lock()
	switch s := state.(type) {
	case playback.CurrentPlaying:
		if trk, ok := snap.Track.Get(); ok {
			p.snap = store.Snapshot{SourceURI: trk.SourceURI, SelectedIndex: s.Index}
			p.valid = true
			save = true
		}
	case playback.Progress:
		// Echoed drag positions leave the session untouched and are not saved.
		if p.valid {
			p.snap.PositionMs = snap.Session.PositionMs
		}
	case playback.Playing:
		// Pausing is a natural resume point.
		if p.valid {
			p.snap.PositionMs = snap.Session.PositionMs
			save = !s.IsPlaying
		}
	}
	p.mu.Unlock()

	if save {
		p.requestSave()
	}
}

func (p *persister) requestSave() {
	select {
	case p.saveCh <- struct{}{}:
	default:
	}
}

// current returns the snapshot to save, stamped with now.
func (p *persister) current(now time.Time) (store.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid {
		return store.Snapshot{}, false
	}
	snap := p.snap
	snap.SavedAt = now
	return snap, true
}

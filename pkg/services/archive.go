package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/models"
)

// ArchiveView fans one upstream archive subscription out to any number of
// watchers. The first watcher starts the upstream subscription; the last
// watcher leaving arms a grace timer, and only when it fires is the
// upstream torn down. A watcher arriving mid-stream is seeded with the
// latest snapshot; after a teardown the next watcher starts from a fresh
// one. This is a backpressure-avoidance policy, not a correctness
// requirement.
type ArchiveView struct {
	photos PhotoNoteService
	grace  time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	watchers    map[uint64]chan []*models.PhotoNote
	nextWatcher uint64
	latest      []*models.PhotoNote
	hasLatest   bool
	running     bool
	stopTimer   *time.Timer
	cancel      context.CancelFunc
}

// NewArchiveView creates an archive view over the given service.
func NewArchiveView(photos PhotoNoteService, grace time.Duration, logger *zap.Logger) *ArchiveView {
	return &ArchiveView{
		photos:   photos,
		grace:    grace,
		logger:   logger,
		watchers: make(map[uint64]chan []*models.PhotoNote),
	}
}

// Watch registers a watcher. The returned channel carries the latest
// snapshot immediately when one is known, then every subsequent snapshot.
// Cancelling ctx detaches the watcher and closes the channel.
func (v *ArchiveView) Watch(ctx context.Context) (<-chan []*models.PhotoNote, error) {
	v.mu.Lock()

	if v.stopTimer != nil {
		v.stopTimer.Stop()
		v.stopTimer = nil
	}

	if !v.running {
		if err := v.startUpstreamLocked(); err != nil {
			v.mu.Unlock()
			return nil, err
		}
	}

	ch := make(chan []*models.PhotoNote, 1)
	if v.hasLatest {
		ch <- v.latest
	}

	id := v.nextWatcher
	v.nextWatcher++
	v.watchers[id] = ch
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.detach(id)
	}()

	return ch, nil
}

// startUpstreamLocked begins the upstream subscription. Caller holds v.mu.
func (v *ArchiveView) startUpstreamLocked() error {
	upstreamCtx, cancel := context.WithCancel(context.Background())

	snapshots, err := v.photos.Observe(upstreamCtx)
	if err != nil {
		cancel()
		return err
	}

	v.cancel = cancel
	v.running = true

	go func() {
		for snapshot := range snapshots {
			v.publish(snapshot)
		}
	}()

	v.logger.Debug("Archive upstream subscription started")
	return nil
}

// publish stores the snapshot as latest and fans it out, conflating
// per-watcher so a slow watcher only ever sees the newest state.
func (v *ArchiveView) publish(snapshot []*models.PhotoNote) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.latest = snapshot
	v.hasLatest = true

	for _, ch := range v.watchers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// detach removes a watcher; the last one out arms the grace timer.
func (v *ArchiveView) detach(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch, ok := v.watchers[id]
	if !ok {
		return
	}
	delete(v.watchers, id)
	close(ch)

	if len(v.watchers) > 0 || !v.running {
		return
	}

	v.stopTimer = time.AfterFunc(v.grace, func() {
		v.mu.Lock()
		defer v.mu.Unlock()

		// A watcher may have re-attached while the timer was pending.
		if len(v.watchers) > 0 {
			return
		}
		if v.cancel != nil {
			v.cancel()
			v.cancel = nil
		}
		v.running = false
		v.latest = nil
		v.hasLatest = false
		v.stopTimer = nil
		v.logger.Debug("Archive upstream subscription stopped")
	})
}

// Close tears the view down immediately, detaching all watchers.
func (v *ArchiveView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stopTimer != nil {
		v.stopTimer.Stop()
		v.stopTimer = nil
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	for id, ch := range v.watchers {
		delete(v.watchers, id)
		close(ch)
	}
	v.running = false
	v.latest = nil
	v.hasLatest = false
}

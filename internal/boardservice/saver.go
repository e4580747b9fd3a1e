package boardservice

import (
	"log/slog"
	"time"

	"github.com/starford/corkboard/internal/models"
	"github.com/starford/corkboard/internal/storage"
)

// saver is the effect runner for persistence. Mutations enqueue a complete
// snapshot of the collection; a single loop goroutine writes the most recent
// one after a debounce window, dropping superseded snapshots. Write failures
// are logged and never retried or surfaced.
type saver struct {
	store    storage.Provider
	logger   *slog.Logger
	debounce time.Duration

	snapCh  chan []models.Case
	stopCh  chan struct{}
	stopped chan struct{}
}

func newSaver(store storage.Provider, logger *slog.Logger, debounce time.Duration) *saver {
	s := &saver{
		store:    store,
		logger:   logger,
		debounce: debounce,
		snapCh:   make(chan []models.Case, 1),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *saver) run() {
	defer close(s.stopped)

	var pending []models.Case
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if pending == nil {
			return
		}
		if err := s.store.Save(pending); err != nil {
			s.logger.Warn("save failed", slog.String("error", err.Error()))
		}
		pending = nil
	}

	for {
		select {
		case snap := <-s.snapCh:
			pending = snap
			if s.debounce <= 0 {
				flush()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}

		case <-fire:
			flush()

		case <-s.stopCh:
			if timer != nil {
				timer.Stop()
			}
			// Pick up a snapshot enqueued after the last timer reset.
			select {
			case snap := <-s.snapCh:
				pending = snap
			default:
			}
			flush()
			return
		}
	}
}

// enqueue hands the loop a snapshot, replacing any queued-but-unwritten one.
// Only the newest complete collection matters.
func (s *saver) enqueue(snap []models.Case) {
	for {
		select {
		case s.snapCh <- snap:
			return
		case <-s.stopped:
			return
		default:
			select {
			case <-s.snapCh:
			default:
			}
		}
	}
}

// close flushes pending state and stops the loop.
func (s *saver) close() {
	select {
	case <-s.stopped:
		return
	default:
	}
	close(s.stopCh)
	<-s.stopped
}

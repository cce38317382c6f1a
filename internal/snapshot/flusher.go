// internal/snapshot/flusher.go
package snapshot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Flusher writes the session table in the background. Commits only mark the table dirty;
// bursts of commits inside one interval collapse into a single Save of the latest state.
type Flusher struct {
	backend  Backend
	logger   logrus.FieldLogger
	interval time.Duration
	timeout  time.Duration

	dirty chan struct{}
	done  chan struct{}
}

// NewFlusher builds a flusher that waits interval after the first dirty mark before saving.
func NewFlusher(backend Backend, logger logrus.FieldLogger, interval time.Duration) *Flusher {
	return &Flusher{
		backend:  backend,
		logger:   logger,
		interval: interval,
		timeout:  5 * time.Second,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// MarkDirty never blocks.
func (f *Flusher) MarkDirty() {
	select {
	case f.dirty <- struct{}{}:
	default:
	}
}

// Done is closed once Run has returned and the final flush is written.
func (f *Flusher) Done() <-chan struct{} {
	return f.done
}

// Run saves src whenever the table is marked dirty, until ctx is cancelled.
// A pending mark at cancellation is flushed before Run returns.
func (f *Flusher) Run(ctx context.Context, src Source) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			f.drain(src)
			return
		case <-f.dirty:
		}

		if f.interval > 0 {
			t := time.NewTimer(f.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				f.flush(src)
				f.drain(src)
				return
			case <-t.C:
			}
		}
		f.flush(src)
	}
}

func (f *Flusher) drain(src Source) {
	select {
	case <-f.dirty:
		f.flush(src)
	default:
	}
}

func (f *Flusher) flush(src Source) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	table := src.Snapshot()
	if err := f.backend.Save(ctx, table); err != nil {
		f.logger.WithError(err).Warn("failed to persist session snapshot")
		return
	}
	f.logger.WithField("sessions", len(table)).Debug("session snapshot persisted")
}

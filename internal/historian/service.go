// internal/historian/service.go
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/gofish/internal/cache"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of records. database.ActionLog implements it.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.SessionActionRecord) error
}

// Service pops records from the Redis queue, accumulates them in a batch and flushes
// the batch to the Sink when it is full or the flush interval passes.
type Service struct {
	src        cache.Popper
	sink       Sink
	queue      string
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration
	logger     logrus.FieldLogger

	batchMu sync.Mutex
	batch   []cache.SessionActionRecord
}

func NewService(src cache.Popper, sink Sink, queue string, batchSize int, flushDelay time.Duration, logger logrus.FieldLogger) *Service {
	if queue == "" {
		queue = cache.DefaultQueueName
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		src:        src,
		sink:       sink,
		queue:      queue,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		popTimeout: 3 * time.Second,
		logger:     logger,
		batch:      make([]cache.SessionActionRecord, 0, batchSize),
	}
}

// Run reads the queue until ctx is cancelled, then flushes the final partial batch.
func (hs *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()
	hs.logger.WithField("queue", hs.queue).Info("historian started")
	defer hs.logger.Info("historian stopped")

	for {
		select {
		case <-ctx.Done():
			hs.flush(context.Background())
			return
		case <-ticker.C:
			hs.flush(ctx)
		default:
			// BLPop with a timeout so that cancellation and the ticker are noticed
			rec, err := cache.PopSessionAction(ctx, hs.src, hs.queue, hs.popTimeout)
			if err != nil {
				if ctx.Err() == nil {
					hs.logger.WithError(err).Warn("failed to read action")
				}
				continue
			}
			if rec != nil {
				hs.appendToBatch(ctx, *rec)
			}
		}
	}
}

// appendToBatch adds a record and flushes when the batch size is reached.
func (hs *Service) appendToBatch(ctx context.Context, rec cache.SessionActionRecord) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.batchSize
	hs.batchMu.Unlock()
	if full {
		hs.flush(ctx)
	}
}

// flush writes the current batch in one call. A failed batch is kept and retried on the
// next flush.
func (hs *Service) flush(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.SessionActionRecord, len(hs.batch))
	copy(batchCopy, hs.batch)

	if err := hs.sink.InsertActions(ctx, batchCopy); err != nil {
		hs.logger.WithError(err).WithField("records", len(batchCopy)).Error("failed to flush actions")
		return
	}
	hs.batch = hs.batch[:0]
	hs.logger.WithField("records", len(batchCopy)).Debug("flushed actions")
}

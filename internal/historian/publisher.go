// Package historian records every session's action log. The Publisher runs inside the
// game server and pushes records to a Redis list; the Service runs in cmd/historian and
// drains that list into Postgres in batches.
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/gofish/internal/cache"
	"github.com/jason-s-yu/gofish/internal/database"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/sirupsen/logrus"
)

// Publisher implements game.Dispatcher. Dispatch only enqueues; a single goroutine
// started by Run does the Redis writes, in the order events were dispatched.
type Publisher struct {
	rdb     cache.Pusher
	queue   string
	logger  logrus.FieldLogger
	records chan cache.SessionActionRecord
	done    chan struct{}
	now     func() time.Time
}

func NewPublisher(rdb cache.Pusher, queue string, buffer int, logger logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = cache.DefaultQueueName
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		rdb:     rdb,
		queue:   queue,
		logger:  logger,
		records: make(chan cache.SessionActionRecord, buffer),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Dispatch converts ev into an action record. Full state updates are not logged.
// When the buffer is full the record is dropped.
func (p *Publisher) Dispatch(ev game.GameEvent) {
	rec, ok := p.record(ev)
	if !ok {
		return
	}
	select {
	case p.records <- rec:
	default:
		p.logger.WithFields(logrus.Fields{"session": ev.SessionID, "seq": ev.Seq, "type": ev.Type}).Warn("historian buffer full, dropping action")
	}
}

func (p *Publisher) record(ev game.GameEvent) (cache.SessionActionRecord, bool) {
	rec := cache.SessionActionRecord{
		SessionID:  ev.SessionID,
		Seq:        ev.Seq,
		PlayerID:   ev.PlayerID,
		ActionType: string(ev.Type),
		Timestamp:  p.now().UnixMilli(),
	}
	switch ev.Type {
	case game.EventStateUpdate:
		return rec, false
	case game.EventGameFinished:
		rec.ActionType = database.ActionSessionFinished
		if ev.State != nil {
			if winner := ev.State.Player(ev.PlayerID); winner != nil {
				rec.ActionPayload = map[string]interface{}{"sets": len(winner.Sets)}
			}
		}
	case game.EventGameMessage:
		rec.ActionPayload = map[string]interface{}{"text": ev.Text}
	case game.EventSetCompleted:
		rec.ActionPayload = map[string]interface{}{"rank": ev.Rank}
	case game.EventGameCreated:
		if ev.State != nil {
			rec.ActionPayload = map[string]interface{}{"vsAI": ev.State.VsAI}
		}
	}
	return rec, true
}

// Run pushes records until ctx is cancelled, then pushes whatever is still buffered
// and closes Done.
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		default:
			return
		}
	}
}

func (p *Publisher) push(ctx context.Context, rec cache.SessionActionRecord) {
	if err := cache.PublishSessionAction(ctx, p.rdb, p.queue, rec); err != nil {
		p.logger.WithFields(logrus.Fields{"session": rec.SessionID, "seq": rec.Seq}).WithError(err).Warn("failed to publish action")
	}
}

// Done is closed once Run has returned.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

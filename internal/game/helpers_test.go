package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/deck"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stackedProvider deals cards in a fixed order so tests control every hand.
type stackedProvider struct {
	mu       sync.Mutex
	cards    []*models.Card
	decks    int
	failDraw bool
}

func (p *stackedProvider) NewDeck(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decks++
	return "stacked", nil
}

func (p *stackedProvider) Draw(ctx context.Context, deckID string, count int) (deck.DrawResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDraw {
		return deck.DrawResult{}, fmt.Errorf("%w: connection refused", deck.ErrProviderFailure)
	}
	if count > len(p.cards) {
		count = len(p.cards)
	}
	drawn := p.cards[:count]
	p.cards = p.cards[count:]
	return deck.DrawResult{Cards: drawn, Remaining: len(p.cards)}, nil
}

func (p *stackedProvider) drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards = nil
}

// stackDeck orders a full 52-card deck: seat 0's hand, seat 1's hand, then top, then the rest.
func stackDeck(t *testing.T, seat0, seat1, top []string) []*models.Card {
	t.Helper()
	pool := deck.StandardDeck()
	take := func(rank string) *models.Card {
		for i, c := range pool {
			if c.Rank == rank {
				pool = append(pool[:i], pool[i+1:]...)
				return c
			}
		}
		t.Fatalf("no %s left in the deck", rank)
		return nil
	}
	var out []*models.Card
	for _, group := range [][]string{seat0, seat1, top} {
		for _, r := range group {
			out = append(out, take(r))
		}
	}
	return append(out, pool...)
}

func quad(rank string) []*models.Card {
	set := make([]*models.Card, 4)
	for i, suit := range []string{"SPADES", "HEARTS", "DIAMONDS", "CLUBS"} {
		set[i] = &models.Card{ID: uuid.New(), Rank: rank, Suit: suit}
	}
	return set
}

// manualScheduler holds scheduled calls until the test runs them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{s: m, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// pending counts calls that are neither stopped nor fired.
func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireOldest fires the oldest unfired call, ignoring Stop, the way a timer that already
// fired races with a cancel. Use runPending for the normal path.
func (m *manualScheduler) fireOldest() bool {
	m.mu.Lock()
	var next *manualTimer
	for _, t := range m.tasks {
		if !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	m.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

// runPending fires the oldest call that was not stopped.
func (m *manualScheduler) runPending() bool {
	m.mu.Lock()
	var next *manualTimer
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	m.mu.Unlock()
	if next == nil {
		return false
	}
	next.f()
	return true
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []GameEvent
}

func (d *recordingDispatcher) Dispatch(ev GameEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDispatcher) ofType(t GameEventType) []GameEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []GameEvent
	for _, ev := range d.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (d *recordingDispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

type countingPersister struct {
	mu    sync.Mutex
	marks int
}

func (p *countingPersister) MarkDirty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks++
}

func (p *countingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks
}

type testEnv struct {
	store     *Store
	deck      *stackedProvider
	events    *recordingDispatcher
	persister *countingPersister
	sched     *manualScheduler
}

func newTestEnv(t *testing.T, cards []*models.Card) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	env := &testEnv{
		deck:      &stackedProvider{cards: cards},
		events:    &recordingDispatcher{},
		persister: &countingPersister{},
		sched:     &manualScheduler{},
	}
	env.store = NewStore(Config{
		Deck:        env.deck,
		Dispatcher:  env.events,
		Persister:   env.persister,
		Logger:      logger,
		Scheduler:   env.sched,
		ThinkDelay:  time.Second,
		DeckTimeout: time.Second,
	})
	return env
}

// startTwoPlayer creates a session for p1, joins p2 and returns the started session id.
func (env *testEnv) startTwoPlayer(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	s, err := env.store.Create(ctx, "p1", "Alice", false)
	require.NoError(t, err)
	started, err := env.store.Join(ctx, s.ID, "p2", "Bob")
	require.NoError(t, err)
	require.True(t, started.Started)
	env.events.clear()
	return s.ID
}

// mutate edits live session state directly, for setting up end-game positions.
func (env *testEnv) mutate(t *testing.T, id uuid.UUID, fn func(s *models.Session)) {
	t.Helper()
	s, err := env.store.acquire(id)
	require.NoError(t, err)
	defer s.mu.Unlock()
	fn(s.state)
}

func requireInvariants(t *testing.T, s *models.Session) {
	t.Helper()
	if !s.Started {
		return
	}
	require.Equal(t, models.DeckSize, s.CardsAccounted(), "hands + 4*sets + remaining")
	for _, p := range s.Players {
		for _, set := range p.Sets {
			require.Len(t, set, 4)
			for _, c := range set {
				require.Equal(t, set[0].Rank, c.Rank, "set mixes ranks")
			}
		}
	}
	require.Equal(t, s.TotalSets() == TotalSets, s.Winner != "", "winner iff 13 sets")
}

func ranksOf(hand []*models.Card) []string {
	out := make([]string, len(hand))
	for i, c := range hand {
		out[i] = c.Rank
	}
	return out
}

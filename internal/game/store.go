// internal/game/store.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/deck"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/jason-s-yu/gofish/internal/snapshot"
	"github.com/sirupsen/logrus"
)

const (
	// AIPlayerID is the seat id of the computer opponent in a vs-AI session.
	AIPlayerID   = "AI_PLAYER"
	AIPlayerName = "Computer"

	// AutoDraw is the rank token a player sends when their hand is empty.
	AutoDraw = "AUTO_DRAW"

	// HandSize is the number of cards dealt to each seat.
	HandSize = 7

	defaultPlayerName = "Anonymous"
)

// Persister is told after every committed mutation that the session table changed.
// snapshot.Flusher implements it.
type Persister interface {
	MarkDirty()
}

type nopPersister struct{}

func (nopPersister) MarkDirty() {}

// Config wires a Store to its collaborators. Only Deck is required.
type Config struct {
	Deck       deck.Provider
	Dispatcher Dispatcher
	Persister  Persister
	Logger     logrus.FieldLogger
	Scheduler  Scheduler
	Rand       *rand.Rand

	// ThinkDelay is how long the computer waits before acting.
	ThinkDelay time.Duration
	// DeckTimeout bounds each call to the deck provider.
	DeckTimeout time.Duration
}

// Store owns every live session. The map lock is only held for lookups and commits;
// all game logic runs under the lock of the one session it touches.
type Store struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*session
	committed snapshot.Table

	deck        deck.Provider
	dispatcher  Dispatcher
	persister   Persister
	logger      logrus.FieldLogger
	scheduler   Scheduler
	thinkDelay  time.Duration
	deckTimeout time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// session is the live, lock-guarded wrapper around one models.Session.
type session struct {
	mu      sync.Mutex
	state   *models.Session
	deleted bool

	seq     int
	pending []GameEvent

	ai struct {
		pending bool
		gen     uint64
		timer   Timer
	}
}

// LeaveResult reports what a Leave did. Session is nil when the session was deleted.
type LeaveResult struct {
	Removed bool
	Deleted bool
	Session *models.Session
}

// RenameResult lists the sessions in which the player was renamed.
type RenameResult struct {
	Found      bool
	SessionIDs []uuid.UUID
}

// NewStore builds an empty store.
func NewStore(cfg Config) *Store {
	st := &Store{
		sessions:    make(map[uuid.UUID]*session),
		committed:   make(snapshot.Table),
		deck:        cfg.Deck,
		dispatcher:  cfg.Dispatcher,
		persister:   cfg.Persister,
		logger:      cfg.Logger,
		scheduler:   cfg.Scheduler,
		thinkDelay:  cfg.ThinkDelay,
		deckTimeout: cfg.DeckTimeout,
		rng:         cfg.Rand,
	}
	if st.dispatcher == nil {
		st.dispatcher = nopDispatcher{}
	}
	if st.persister == nil {
		st.persister = nopPersister{}
	}
	if st.logger == nil {
		st.logger = logrus.StandardLogger()
	}
	if st.scheduler == nil {
		st.scheduler = realScheduler{}
	}
	if st.deckTimeout <= 0 {
		st.deckTimeout = 5 * time.Second
	}
	if st.rng == nil {
		st.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return st
}

// Create opens a session with the creator in seat 0. A vs-AI session also seats the
// computer; either way the session waits for a join before it starts.
func (st *Store) Create(ctx context.Context, creatorID, name string, vsAI bool) (*models.Session, error) {
	if creatorID == "" || creatorID == AIPlayerID {
		return nil, ErrInvalidPlayer
	}
	state := &models.Session{
		ID:      uuid.New(),
		Players: []*models.Player{newPlayer(creatorID, name, false)},
		VsAI:    vsAI,
	}
	if vsAI {
		state.Players = append(state.Players, newPlayer(AIPlayerID, AIPlayerName, true))
	}

	s := &session{state: state}
	s.mu.Lock()
	defer s.mu.Unlock()

	st.mu.Lock()
	st.sessions[state.ID] = s
	st.mu.Unlock()

	s.emit(GameEvent{Type: EventGameCreated, PlayerID: creatorID, State: state.Clone()})
	st.commit(s)

	st.logger.WithFields(logrus.Fields{"session": state.ID, "player": creatorID, "vsAI": vsAI}).Info("session created")
	return state.Clone(), nil
}

// Join seats playerID in the session. Joining again is a no-op apart from retrying a
// start that previously failed. The join that fills the second seat deals the cards;
// if dealing fails the session stays waiting and ErrStartFailed is returned with it.
func (st *Store) Join(ctx context.Context, sessionID uuid.UUID, playerID, name string) (*models.Session, error) {
	if playerID == "" || playerID == AIPlayerID {
		return nil, ErrInvalidPlayer
	}
	s, err := st.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if s.state.Player(playerID) == nil {
		if len(s.state.Players) >= 2 {
			return nil, ErrSessionFull
		}
		p := newPlayer(playerID, name, false)
		s.state.Players = append(s.state.Players, p)
		s.emit(GameEvent{Type: EventPlayerJoined, PlayerID: playerID})
		s.message(fmt.Sprintf("%s joined", p.DisplayName()))
		st.logger.WithFields(logrus.Fields{"session": sessionID, "player": playerID}).Info("player joined")
	}

	var startErr error
	if !s.state.Started && len(s.state.Players) == 2 {
		startErr = st.start(ctx, s)
	}
	s.stateUpdate()
	st.commit(s)
	return s.state.Clone(), startErr
}

// Leave removes the player. The session is deleted once no human is left in it.
// A started game, in progress or finished, goes back to waiting so a new opponent gets a fresh deal.
func (st *Store) Leave(ctx context.Context, sessionID uuid.UUID, playerID string) (LeaveResult, error) {
	s, err := st.acquire(sessionID)
	if err != nil {
		return LeaveResult{}, err
	}
	defer s.mu.Unlock()

	seat := s.state.Seat(playerID)
	if seat < 0 {
		return LeaveResult{}, ErrPlayerNotFound
	}
	leaver := s.state.Players[seat]
	s.state.Players = slices.Delete(s.state.Players, seat, seat+1)
	s.emit(GameEvent{Type: EventPlayerLeft, PlayerID: playerID})

	log := st.logger.WithFields(logrus.Fields{"session": sessionID, "player": playerID})
	if !s.state.HasHuman() {
		st.remove(s)
		log.Info("session deleted, no players left")
		return LeaveResult{Removed: true, Deleted: true}, nil
	}

	if s.state.Started {
		st.reset(s)
		s.message(fmt.Sprintf("%s left the game. Waiting for a new opponent.", leaver.DisplayName()))
	} else {
		s.message(fmt.Sprintf("%s left the game.", leaver.DisplayName()))
	}
	s.stateUpdate()
	st.commit(s)
	log.Info("player left")
	return LeaveResult{Removed: true, Session: s.state.Clone()}, nil
}

// Get returns a copy of the session, used for reconnects and resyncs.
func (st *Store) Get(sessionID uuid.UUID) (*models.Session, error) {
	s, err := st.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

// RenamePlayer updates the display name of playerID in every session it sits in.
// Sessions are locked one at a time, so renames interleave safely with game actions.
func (st *Store) RenamePlayer(playerID, name string) RenameResult {
	st.mu.RLock()
	live := make([]*session, 0, len(st.sessions))
	for _, s := range st.sessions {
		live = append(live, s)
	}
	st.mu.RUnlock()

	var res RenameResult
	for _, s := range live {
		s.mu.Lock()
		if p := s.state.Player(playerID); p != nil && !s.deleted {
			old := p.DisplayName()
			p.Name = name
			s.message(fmt.Sprintf("%s renamed to %s!", old, p.DisplayName()))
			s.stateUpdate()
			st.commit(s)
			res.Found = true
			res.SessionIDs = append(res.SessionIDs, s.state.ID)
		}
		s.mu.Unlock()
	}
	return res
}

// Snapshot returns the last committed state of every session. The sessions in it are
// never mutated after commit, so the table can be read without further locking.
func (st *Store) Snapshot() snapshot.Table {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(snapshot.Table, len(st.committed))
	for id, s := range st.committed {
		out[id] = s
	}
	return out
}

// Restore loads sessions persisted by a previous process. It must run before the store
// serves actions. A restored session whose turn belongs to the computer resumes it.
func (st *Store) Restore(table snapshot.Table) {
	restored := make([]*session, 0, len(table))
	st.mu.Lock()
	for id, state := range table {
		if state == nil {
			continue
		}
		state = state.Clone()
		state.ID = id
		s := &session{state: state}
		st.sessions[id] = s
		st.committed[id] = state.Clone()
		restored = append(restored, s)
	}
	st.mu.Unlock()

	for _, s := range restored {
		s.mu.Lock()
		st.maybeScheduleAI(s)
		s.mu.Unlock()
	}
	st.logger.WithField("sessions", len(restored)).Info("sessions restored")
}

// Shutdown cancels every pending computer turn.
func (st *Store) Shutdown() {
	st.mu.RLock()
	live := make([]*session, 0, len(st.sessions))
	for _, s := range st.sessions {
		live = append(live, s)
	}
	st.mu.RUnlock()

	for _, s := range live {
		s.mu.Lock()
		st.cancelAI(s)
		s.mu.Unlock()
	}
}

// acquire looks up a session and returns it locked. Callers must unlock.
func (st *Store) acquire(id uuid.UUID) (*session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	if s.deleted {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// commit publishes the session's current state: it becomes visible to Snapshot, the
// persister is notified and the events queued by the mutation are dispatched in order.
// Assumes the session lock is held.
func (st *Store) commit(s *session) {
	if len(s.pending) == 0 {
		return
	}
	snap := s.state.Clone()
	st.mu.Lock()
	st.committed[snap.ID] = snap
	st.mu.Unlock()
	st.persister.MarkDirty()
	st.flushEvents(s)
}

// remove deletes the session from the store. Assumes the session lock is held.
func (st *Store) remove(s *session) {
	s.deleted = true
	st.cancelAI(s)
	s.emit(GameEvent{Type: EventSessionDeleted})

	st.mu.Lock()
	delete(st.sessions, s.state.ID)
	delete(st.committed, s.state.ID)
	st.mu.Unlock()
	st.persister.MarkDirty()
	st.flushEvents(s)
}

func (st *Store) flushEvents(s *session) {
	events := s.pending
	s.pending = nil
	for _, ev := range events {
		st.dispatcher.Dispatch(ev)
	}
}

// reset returns a session to waiting with empty hands. Assumes the session lock is held.
func (st *Store) reset(s *session) {
	st.cancelAI(s)
	for _, p := range s.state.Players {
		p.Hand = []*models.Card{}
		p.Sets = [][]*models.Card{}
	}
	s.state.Started = false
	s.state.Turn = ""
	s.state.DeckID = ""
	s.state.Remaining = 0
	s.state.Winner = ""
}

func (s *session) emit(ev GameEvent) {
	s.seq++
	ev.Seq = s.seq
	ev.SessionID = s.state.ID
	s.pending = append(s.pending, ev)
}

func (s *session) message(text string) {
	s.emit(GameEvent{Type: EventGameMessage, Text: text})
}

func (s *session) stateUpdate() {
	s.emit(GameEvent{Type: EventStateUpdate, State: s.state.Clone()})
}

func newPlayer(id, name string, isAI bool) *models.Player {
	if name == "" {
		name = defaultPlayerName
	}
	return &models.Player{
		ID:   id,
		Name: name,
		Hand: []*models.Card{},
		Sets: [][]*models.Card{},
		IsAI: isAI,
	}
}

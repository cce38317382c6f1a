// internal/game/turn.go
package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/sirupsen/logrus"
)

// Ask resolves one action by the player whose turn it is: ask the opponent for rank, or
// draw with AutoDraw when the hand is empty. Validation failures leave the session
// untouched and come back as ErrPlayerNotFound, ErrNotInProgress, ErrNotYourTurn or
// ErrInvalidRank together with the unchanged state.
func (st *Store) Ask(ctx context.Context, sessionID uuid.UUID, from, to, rank string) (*models.Session, error) {
	s, err := st.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if err := st.ask(ctx, s, from, to, rank); err != nil {
		return s.state.Clone(), err
	}
	st.commit(s)
	return s.state.Clone(), nil
}

// ask runs the turn state machine. Assumes the session lock is held.
func (st *Store) ask(ctx context.Context, s *session, from, to, rank string) error {
	asker := s.state.Player(from)
	target := s.state.Player(to)
	if asker == nil || target == nil {
		return ErrPlayerNotFound
	}
	if from == to {
		return fmt.Errorf("%w: cannot ask yourself", ErrPlayerNotFound)
	}
	if s.state.Phase() != models.PhaseInProgress {
		return ErrNotInProgress
	}
	if s.state.Turn != from {
		return ErrNotYourTurn
	}
	rank = models.NormalizeRank(rank)
	if rank != AutoDraw && !models.IsRank(rank) {
		return fmt.Errorf("%w: %q", ErrInvalidRank, rank)
	}

	if rank == AutoDraw {
		st.autoDraw(ctx, s, asker, target)
	} else {
		st.resolveAsk(ctx, s, asker, target, rank)
	}

	if winner := EvaluateWinner(s.state); winner != "" {
		st.finish(s, winner)
		return nil
	}
	s.stateUpdate()
	st.maybeScheduleAI(s)
	return nil
}

// autoDraw gives a player with an empty hand one card. The turn stays with them when a
// card arrives and passes to the opponent when the deck is empty.
func (st *Store) autoDraw(ctx context.Context, s *session, asker, other *models.Player) {
	drew, err := st.drawInto(ctx, s, asker)
	switch {
	case err != nil:
		s.message(fmt.Sprintf("%s could not draw: the deck is unavailable right now.", asker.DisplayName()))
	case !drew:
		if EvaluateWinner(s.state) != "" {
			return
		}
		s.message(fmt.Sprintf("%s tried to draw a card, but the deck is empty.", asker.DisplayName()))
		s.state.Turn = other.ID
	default:
		s.message(fmt.Sprintf("%s had no cards and drew one from the deck.", asker.DisplayName()))
		st.detectSets(s, asker)
	}
}

// resolveAsk moves every card of rank from target to asker. With no match the asker goes
// fishing and the turn passes, whether or not a card could be drawn.
func (st *Store) resolveAsk(ctx context.Context, s *session, asker, target *models.Player, rank string) {
	var matches, rest []*models.Card
	for _, c := range target.Hand {
		if models.NormalizeRank(c.Rank) == rank {
			matches = append(matches, c)
		} else {
			rest = append(rest, c)
		}
	}

	if len(matches) > 0 {
		if rest == nil {
			rest = []*models.Card{}
		}
		target.Hand = rest
		asker.Hand = append(asker.Hand, matches...)
		models.SortHand(asker.Hand)
		models.SortHand(target.Hand)
		s.message(fmt.Sprintf("%s asked %s for %ss and got %d!", asker.DisplayName(), target.DisplayName(), rank, len(matches)))
		st.detectSets(s, asker)
		return
	}

	s.message(fmt.Sprintf("%s asked %s for %ss. Go fish!", asker.DisplayName(), target.DisplayName(), rank))
	drew, err := st.drawInto(ctx, s, asker)
	switch {
	case err != nil:
		s.message(fmt.Sprintf("%s could not draw: the deck is unavailable right now.", asker.DisplayName()))
	case !drew:
		s.message(fmt.Sprintf("The deck is empty, %s draws nothing.", asker.DisplayName()))
	default:
		st.detectSets(s, asker)
	}
	s.state.Turn = target.ID
}

// drawInto draws one card into p's hand. It reports false with a nil error when the deck
// is exhausted. Provider failures are logged and returned; they never abort the session.
func (st *Store) drawInto(ctx context.Context, s *session, p *models.Player) (bool, error) {
	dctx, cancel := context.WithTimeout(ctx, st.deckTimeout)
	defer cancel()

	res, err := st.deck.Draw(dctx, s.state.DeckID, 1)
	if err != nil {
		st.logger.WithFields(logrus.Fields{"session": s.state.ID, "player": p.ID}).WithError(err).Warn("deck draw failed")
		return false, err
	}
	if len(res.Cards) == 0 {
		s.state.Remaining = 0
		return false, nil
	}
	p.Hand = append(p.Hand, res.Cards...)
	models.SortHand(p.Hand)
	s.state.Remaining = res.Remaining
	return true, nil
}

// start deals 7 cards to each seat from a fresh deck and hands the turn to seat 0.
// Assumes the session lock is held.
func (st *Store) start(ctx context.Context, s *session) error {
	log := st.logger.WithField("session", s.state.ID)
	dctx, cancel := context.WithTimeout(ctx, st.deckTimeout)
	defer cancel()

	deckID, err := st.deck.NewDeck(dctx)
	if err != nil {
		log.WithError(err).Warn("failed to start game")
		s.message("Could not start the game: the deck is unavailable. Rejoin to try again.")
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	res, err := st.deck.Draw(dctx, deckID, 2*HandSize)
	if err != nil {
		log.WithError(err).Warn("failed to start game")
		s.message("Could not start the game: the deck is unavailable. Rejoin to try again.")
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	if len(res.Cards) < 2*HandSize {
		log.WithField("drawn", len(res.Cards)).Warn("failed to start game, not enough cards drawn")
		s.message("Could not start the game: not enough cards were dealt. Rejoin to try again.")
		return fmt.Errorf("%w: drew %d of %d cards", ErrStartFailed, len(res.Cards), 2*HandSize)
	}

	for i, p := range s.state.Players[:2] {
		p.Hand = append([]*models.Card{}, res.Cards[i*HandSize:(i+1)*HandSize]...)
		p.Sets = [][]*models.Card{}
		models.SortHand(p.Hand)
	}
	first := s.state.Players[0]
	s.state.DeckID = deckID
	s.state.Remaining = models.DeckSize - 2*HandSize
	s.state.Turn = first.ID
	s.state.Winner = ""
	s.state.Started = true
	s.message(fmt.Sprintf("The game has started! %s goes first.", first.DisplayName()))
	log.Info("game started")

	for _, p := range s.state.Players {
		st.detectSets(s, p)
	}
	st.maybeScheduleAI(s)
	return nil
}

// finish records the winner and stops the computer. Assumes the session lock is held.
func (st *Store) finish(s *session, winner string) {
	s.state.Winner = winner
	st.cancelAI(s)
	p := s.state.Player(winner)
	s.message(fmt.Sprintf("%s wins the game with %d sets!", p.DisplayName(), len(p.Sets)))
	s.stateUpdate()
	s.emit(GameEvent{Type: EventGameFinished, PlayerID: winner, State: s.state.Clone()})
	st.logger.WithFields(logrus.Fields{"session": s.state.ID, "winner": winner}).Info("game finished")
}

// detectSets runs DetectSets and announces each completed rank.
func (st *Store) detectSets(s *session, p *models.Player) {
	for _, rank := range DetectSets(p) {
		s.message(fmt.Sprintf("%s completed a set of %ss!", p.DisplayName(), rank))
		s.emit(GameEvent{Type: EventSetCompleted, PlayerID: p.ID, Rank: rank})
	}
}

// internal/game/ai.go
package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/sirupsen/logrus"
)

// maybeScheduleAI queues a computer turn after the think delay when the computer owns the
// turn. At most one computer turn per session is pending. Assumes the session lock is held.
func (st *Store) maybeScheduleAI(s *session) {
	if s.deleted || s.ai.pending || s.state.Phase() != models.PhaseInProgress {
		return
	}
	p := s.state.Player(s.state.Turn)
	if p == nil || !p.IsAI {
		return
	}
	s.ai.pending = true
	s.ai.gen++
	gen := s.ai.gen
	s.ai.timer = st.scheduler.AfterFunc(st.thinkDelay, func() {
		st.runAITurn(s, gen)
	})
}

// cancelAI drops any pending computer turn. A timer that already fired sees the bumped
// generation and does nothing. Assumes the session lock is held.
func (st *Store) cancelAI(s *session) {
	if s.ai.timer != nil {
		s.ai.timer.Stop()
	}
	s.ai.timer = nil
	s.ai.pending = false
	s.ai.gen++
}

func (st *Store) runAITurn(s *session, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted || !s.ai.pending || s.ai.gen != gen {
		return
	}
	s.ai.pending = false
	s.ai.timer = nil

	ctx, cancel := context.WithTimeout(context.Background(), 2*st.deckTimeout)
	defer cancel()
	st.aiTurn(ctx, s)
	st.commit(s)
}

// aiTurn plays one computer action through the same ask path a human uses.
// Assumes the session lock is held.
func (st *Store) aiTurn(ctx context.Context, s *session) {
	if s.state.Phase() != models.PhaseInProgress {
		return
	}
	ai := s.state.Player(s.state.Turn)
	if ai == nil || !ai.IsAI {
		return
	}
	human := s.state.Opponent(ai.ID)
	if human == nil {
		return
	}
	log := st.logger.WithFields(logrus.Fields{"session": s.state.ID, "player": ai.ID})

	if len(ai.Hand) == 0 {
		if s.state.Remaining > 0 {
			if err := st.ask(ctx, s, ai.ID, human.ID, AutoDraw); err != nil {
				log.WithError(err).Warn("computer draw rejected")
			}
		}
		if len(ai.Hand) == 0 && s.state.Turn == ai.ID && s.state.Phase() == models.PhaseInProgress {
			st.skipAITurn(s, ai, human)
		}
		return
	}

	rank := st.chooseRank(ai.Hand)
	log.WithField("rank", rank).Debug("computer asks")
	if err := st.ask(ctx, s, ai.ID, human.ID, rank); err != nil {
		log.WithError(err).Warn("computer ask rejected")
	}
}

func (st *Store) skipAITurn(s *session, ai, human *models.Player) {
	st.cancelAI(s)
	s.message(fmt.Sprintf("%s has no cards and cannot draw, skipping turn.", ai.DisplayName()))
	s.state.Turn = human.ID
	s.stateUpdate()
}

// chooseRank picks a card uniformly from hand and asks for its rank, so ranks the
// computer holds more of come up more often.
func (st *Store) chooseRank(hand []*models.Card) string {
	st.rngMu.Lock()
	defer st.rngMu.Unlock()
	return models.NormalizeRank(hand[st.rng.Intn(len(hand))].Rank)
}

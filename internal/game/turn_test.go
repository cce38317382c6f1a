package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStacked(t *testing.T, seat0, seat1, top []string) (*testEnv, uuid.UUID) {
	t.Helper()
	env := newTestEnv(t, stackDeck(t, seat0, seat1, top))
	return env, env.startTwoPlayer(t)
}

func TestAskSuccessKeepsTurn(t *testing.T) {
	env, id := startStacked(t,
		[]string{"7", "7", "2", "3", "4", "5", "6"},
		[]string{"7", "8", "9", "10", "JACK", "QUEEN", "KING"},
		nil)

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "7")
	require.NoError(t, err)

	assert.Equal(t, "p1", s.Turn, "successful ask keeps the turn")
	assert.Equal(t, []string{"2", "3", "4", "5", "6", "7", "7", "7"}, ranksOf(s.Player("p1").Hand))
	assert.Equal(t, []string{"8", "9", "10", "JACK", "QUEEN", "KING"}, ranksOf(s.Player("p2").Hand))
	assert.Empty(t, s.Player("p1").Sets)
	assert.Empty(t, env.events.ofType(EventSetCompleted))
	assert.Equal(t, 38, s.Remaining)
	requireInvariants(t, s)

	msgs := env.events.ofType(EventGameMessage)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Alice asked Bob for 7s and got 1!", msgs[0].Text)
}

func TestAskCompletesSet(t *testing.T) {
	env, id := startStacked(t,
		[]string{"7", "7", "7", "2", "3", "4", "5"},
		[]string{"7", "8", "9", "10", "JACK", "QUEEN", "KING"},
		nil)

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "7")
	require.NoError(t, err)

	p1 := s.Player("p1")
	assert.Equal(t, []string{"2", "3", "4", "5"}, ranksOf(p1.Hand))
	require.Len(t, p1.Sets, 1)
	assert.Equal(t, []string{"7", "7", "7", "7"}, ranksOf(p1.Sets[0]))

	completed := env.events.ofType(EventSetCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "p1", completed[0].PlayerID)
	assert.Equal(t, "7", completed[0].Rank)
	assert.Equal(t, "p1", s.Turn)
	requireInvariants(t, s)
}

func TestAskRankIsCaseInsensitive(t *testing.T) {
	env, id := startStacked(t,
		[]string{"QUEEN", "2", "3", "4", "5", "6", "7"},
		[]string{"QUEEN", "8", "9", "10", "JACK", "KING", "ACE"},
		nil)

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "queen")
	require.NoError(t, err)
	assert.Len(t, s.Player("p1").Hand, 8)
}

func TestGoFishSwitchesTurn(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		[]string{"KING"})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "2")
	require.NoError(t, err)

	assert.Equal(t, "p2", s.Turn, "go fish passes the turn")
	assert.Len(t, s.Player("p1").Hand, 8)
	assert.Equal(t, "KING", s.Player("p1").Hand[7].Rank)
	assert.Equal(t, 37, s.Remaining)
	requireInvariants(t, s)

	msgs := env.events.ofType(EventGameMessage)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Alice asked Bob for 2s. Go fish!", msgs[0].Text)
}

func TestGoFishDrawCompletesSet(t *testing.T) {
	env, id := startStacked(t,
		[]string{"9", "9", "9", "2", "3", "4", "5"},
		[]string{"6", "7", "8", "10", "JACK", "QUEEN", "KING"},
		[]string{"9"})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "2")
	require.NoError(t, err)

	require.Len(t, s.Player("p1").Sets, 1)
	assert.Equal(t, "9", env.events.ofType(EventSetCompleted)[0].Rank)
	assert.Equal(t, "p2", s.Turn)
	requireInvariants(t, s)
}

func TestGoFishEmptyDeckStillSwitchesTurn(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		nil)
	env.deck.drain()
	env.mutate(t, id, func(s *models.Session) { s.Remaining = 0 })

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "2")
	require.NoError(t, err)
	assert.Equal(t, "p2", s.Turn)
	assert.Len(t, s.Player("p1").Hand, 7)
	assert.Equal(t, 0, s.Remaining)
}

func TestGoFishProviderFailureDegrades(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		nil)
	env.deck.failDraw = true

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "2")
	require.NoError(t, err, "provider failures never surface as action errors")
	assert.Equal(t, "p2", s.Turn)
	assert.Equal(t, 38, s.Remaining)
	requireInvariants(t, s)

	msgs := env.events.ofType(EventGameMessage)
	assert.Contains(t, msgs[len(msgs)-1].Text, "unavailable")
}

func TestAutoDrawKeepsTurn(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		[]string{"JACK"})
	env.mutate(t, id, func(s *models.Session) {
		// move p1's hand into p2's so p1 is empty; card count is unchanged
		s.Players[1].Hand = append(s.Players[1].Hand, s.Players[0].Hand...)
		s.Players[0].Hand = []*models.Card{}
	})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", AutoDraw)
	require.NoError(t, err)
	assert.Equal(t, "p1", s.Turn, "auto-draw that yields a card keeps the turn")
	assert.Equal(t, []string{"JACK"}, ranksOf(s.Player("p1").Hand))
	assert.Equal(t, 37, s.Remaining)
	requireInvariants(t, s)
}

func TestAutoDrawEmptyDeckPassesTurn(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		nil)
	env.deck.drain()
	env.mutate(t, id, func(s *models.Session) {
		s.Players[0].Hand = []*models.Card{}
		s.Remaining = 0
	})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", AutoDraw)
	require.NoError(t, err)
	assert.Equal(t, "p2", s.Turn)
	assert.Empty(t, s.Winner)

	msgs := env.events.ofType(EventGameMessage)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Alice tried to draw a card, but the deck is empty.", msgs[0].Text)
}

func TestAutoDrawEmptyDeckDeclaresWinner(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		nil)
	env.deck.drain()
	env.mutate(t, id, func(s *models.Session) {
		s.Players[0].Hand = []*models.Card{}
		s.Players[1].Hand = []*models.Card{}
		s.Players[0].Sets = nil
		s.Players[1].Sets = nil
		for i, r := range models.Ranks {
			owner := s.Players[i%2]
			owner.Sets = append(owner.Sets, quad(r))
		}
		s.Remaining = 0
	})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", AutoDraw)
	require.NoError(t, err)
	assert.Equal(t, "p1", s.Winner, "7 sets beat 6")
	assert.Equal(t, models.PhaseFinished, s.Phase())
	assert.Equal(t, "p1", s.Turn, "no turn switch once finished")
	requireInvariants(t, s)

	_, err = env.store.Ask(context.Background(), id, "p1", "p2", AutoDraw)
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestAskWinsOnLastSet(t *testing.T) {
	env, id := startStacked(t,
		[]string{"2", "3", "4", "5", "6", "7", "8"},
		[]string{"9", "10", "JACK", "QUEEN", "KING", "ACE", "ACE"},
		nil)
	env.deck.drain()
	env.mutate(t, id, func(s *models.Session) {
		ks := quad("KING")
		s.Players[0].Hand = append([]*models.Card{}, ks[:3]...)
		s.Players[1].Hand = append([]*models.Card{}, ks[3:]...)
		s.Players[0].Sets = nil
		s.Players[1].Sets = nil
		for i, r := range models.Ranks[:12] {
			owner := s.Players[(i+1)%2]
			owner.Sets = append(owner.Sets, quad(r))
		}
		s.Remaining = 0
	})

	s, err := env.store.Ask(context.Background(), id, "p1", "p2", "KING")
	require.NoError(t, err)
	// p1 ends with 6 + 1 sets, p2 with 6
	assert.Equal(t, "p1", s.Winner)
	requireInvariants(t, s)

	msgs := env.events.ofType(EventGameMessage)
	assert.Equal(t, "Alice wins the game with 7 sets!", msgs[len(msgs)-1].Text)

	finished := env.events.ofType(EventGameFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, "p1", finished[0].PlayerID)

	// later state updates on the finished game do not finish it again
	env.store.RenamePlayer("p2", "Robert")
	_, err = env.store.Join(context.Background(), id, "p1", "Alice")
	require.NoError(t, err)
	assert.Len(t, env.events.ofType(EventGameFinished), 1)
}

func TestAskValidation(t *testing.T) {
	env := newTestEnv(t, stackDeck(t, nil, nil, nil))
	ctx := context.Background()

	waiting, err := env.store.Create(ctx, "p1", "Alice", false)
	require.NoError(t, err)
	_, err = env.store.Join(ctx, waiting.ID, "p2", "Bob")
	require.NoError(t, err)
	id := waiting.ID

	before, err := env.store.Get(id)
	require.NoError(t, err)
	env.events.clear()

	cases := []struct {
		name     string
		from, to string
		rank     string
		want     error
	}{
		{"unknown asker", "ghost", "p2", "7", ErrPlayerNotFound},
		{"unknown target", "p1", "ghost", "7", ErrPlayerNotFound},
		{"ask yourself", "p1", "p1", "7", ErrPlayerNotFound},
		{"out of turn", "p2", "p1", "7", ErrNotYourTurn},
		{"bad rank", "p1", "p2", "JOKER", ErrInvalidRank},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := env.store.Ask(ctx, id, tc.from, tc.to, tc.rank)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, s, "rejected ask leaves the session unchanged")
		})
	}
	assert.Empty(t, env.events.events, "rejected asks emit nothing")

	_, err = env.store.Ask(ctx, uuid.New(), "p1", "p2", "7")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	lonely, err := env.store.Create(ctx, "p3", "Carol", false)
	require.NoError(t, err)
	_, err = env.store.Ask(ctx, lonely.ID, "p3", "p3", "7")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

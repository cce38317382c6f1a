package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanks(t *testing.T) {
	assert.True(t, IsRank("queen"))
	assert.True(t, IsRank(" 10 "))
	assert.False(t, IsRank("JOKER"))
	assert.False(t, IsRank(""))
	assert.Equal(t, 1, RankOrder("ACE"))
	assert.Equal(t, 13, RankOrder("king"))
	assert.Equal(t, 0, RankOrder("1"))
}

func TestSortHandIsStable(t *testing.T) {
	h := []*Card{
		{Rank: "KING", Suit: "SPADES"},
		{Rank: "2", Suit: "HEARTS"},
		{Rank: "KING", Suit: "CLUBS"},
		{Rank: "ACE", Suit: "DIAMONDS"},
	}
	SortHand(h)
	var got []string
	for _, c := range h {
		got = append(got, c.Rank+"/"+c.Suit)
	}
	assert.Equal(t, []string{"ACE/DIAMONDS", "2/HEARTS", "KING/SPADES", "KING/CLUBS"}, got)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice", (&Player{ID: "abcdefgh", Name: "Alice"}).DisplayName())
	assert.Equal(t, "abcde", (&Player{ID: "abcdefgh"}).DisplayName())
	assert.Equal(t, "ab", (&Player{ID: "ab"}).DisplayName())
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := &Session{
		ID:      uuid.New(),
		Started: true,
		Players: []*Player{
			{ID: "p1", Hand: []*Card{{ID: uuid.New(), Rank: "2"}}, Sets: [][]*Card{}},
			{ID: "p2", Hand: []*Card{}, Sets: [][]*Card{{{Rank: "9"}, {Rank: "9"}, {Rank: "9"}, {Rank: "9"}}}},
		},
	}
	cp := s.Clone()
	require.Equal(t, s, cp)

	cp.Players[0].Hand[0].Rank = "3"
	cp.Players[0].Hand = append(cp.Players[0].Hand, &Card{Rank: "4"})
	cp.Players[1].Sets[0][0].Rank = "X"
	cp.Players[0].Name = "changed"

	assert.Equal(t, "2", s.Players[0].Hand[0].Rank)
	assert.Len(t, s.Players[0].Hand, 1)
	assert.Equal(t, "9", s.Players[1].Sets[0][0].Rank)
	assert.Empty(t, s.Players[0].Name)
}

func TestSessionPhaseAndLookups(t *testing.T) {
	s := &Session{Players: []*Player{{ID: "p1"}, {ID: "AI_PLAYER", IsAI: true}}}
	assert.Equal(t, PhaseWaiting, s.Phase())
	s.Started = true
	assert.Equal(t, PhaseInProgress, s.Phase())
	s.Winner = "p1"
	assert.Equal(t, PhaseFinished, s.Phase())

	assert.Equal(t, 1, s.Seat("AI_PLAYER"))
	assert.Equal(t, -1, s.Seat("ghost"))
	assert.Nil(t, s.Player("ghost"))
	assert.Equal(t, "AI_PLAYER", s.Opponent("p1").ID)
	assert.True(t, s.HasHuman())

	s.Players = s.Players[1:]
	assert.False(t, s.HasHuman())
}

// The wire names are what browser clients read.
func TestSessionJSONFieldNames(t *testing.T) {
	s := &Session{ID: uuid.New(), DeckID: "abc", VsAI: true, Players: []*Player{{ID: "p1", IsAI: false, Hand: []*Card{{Rank: "KING"}}}}}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "abc", m["deckId"])
	assert.Equal(t, true, m["vsAI"])
	assert.NotContains(t, m, "winner", "empty winner is omitted")
	player := m["players"].([]any)[0].(map[string]any)
	assert.Contains(t, player, "isAI")
	assert.Equal(t, "KING", player["hand"].([]any)[0].(map[string]any)["value"])
}

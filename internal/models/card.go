// internal/models/card.go
package models

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DeckSize is the number of cards in a standard deck without jokers.
const DeckSize = 52

// Ranks lists every rank label in ascending order. A standard deck holds four of each.
var Ranks = []string{"ACE", "2", "3", "4", "5", "6", "7", "8", "9", "10", "JACK", "QUEEN", "KING"}

var rankOrder = func() map[string]int {
	m := make(map[string]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i + 1
	}
	return m
}()

// Card is a single physical card drawn from a deck.
// ID is assigned when the card leaves the deck provider, so two cards with the same
// rank and suit never collapse into one within a session.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Code  string    `json:"code"`
	Rank  string    `json:"value"`
	Suit  string    `json:"suit"`
	Image string    `json:"image,omitempty"`
}

// NormalizeRank upper-cases and trims a rank label, e.g. "queen" => "QUEEN".
func NormalizeRank(rank string) string {
	return strings.ToUpper(strings.TrimSpace(rank))
}

// IsRank reports whether rank names one of the 13 standard ranks.
func IsRank(rank string) bool {
	_, ok := rankOrder[NormalizeRank(rank)]
	return ok
}

// RankOrder returns the 1-based position of rank within Ranks, or 0 if unknown.
func RankOrder(rank string) int {
	return rankOrder[NormalizeRank(rank)]
}

// SortHand orders cards by rank, keeping the relative order of equal ranks.
func SortHand(hand []*Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		return RankOrder(hand[i].Rank) < RankOrder(hand[j].Rank)
	})
}

// Clone returns a copy of the card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

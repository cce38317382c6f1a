// internal/deck/local.go
package deck

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
)

var suits = []struct{ name, code string }{
	{"SPADES", "S"}, {"HEARTS", "H"}, {"DIAMONDS", "D"}, {"CLUBS", "C"},
}

// LocalProvider shuffles decks in memory. It is used when the service runs offline.
type LocalProvider struct {
	mu    sync.Mutex
	rng   *rand.Rand
	decks map[string][]*models.Card
}

// NewLocalProvider returns a provider that shuffles with rng.
func NewLocalProvider(rng *rand.Rand) *LocalProvider {
	return &LocalProvider{
		rng:   rng,
		decks: make(map[string][]*models.Card),
	}
}

// NewDeck builds and shuffles a standard 52-card deck.
func (p *LocalProvider) NewDeck(ctx context.Context) (string, error) {
	cards := StandardDeck()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	id := uuid.NewString()
	p.decks[id] = cards
	return id, nil
}

// Draw pops up to count cards off the top of the deck.
func (p *LocalProvider) Draw(ctx context.Context, deckID string, count int) (DrawResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cards, ok := p.decks[deckID]
	if !ok {
		return DrawResult{}, fmt.Errorf("%w: unknown deck %q", ErrProviderFailure, deckID)
	}
	if count > len(cards) {
		count = len(cards)
	}
	if count < 0 {
		count = 0
	}
	drawn := cards[:count:count]
	p.decks[deckID] = cards[count:]
	return DrawResult{Cards: drawn, Remaining: len(p.decks[deckID])}, nil
}

// StandardDeck returns the 52 cards of a fresh deck in suit-major order.
func StandardDeck() []*models.Card {
	cards := make([]*models.Card, 0, models.DeckSize)
	for _, s := range suits {
		for _, rank := range models.Ranks {
			code := rank[:1]
			if rank == "10" {
				code = "0"
			}
			cards = append(cards, &models.Card{
				ID:   uuid.New(),
				Code: code + s.code,
				Rank: rank,
				Suit: s.name,
			})
		}
	}
	return cards
}

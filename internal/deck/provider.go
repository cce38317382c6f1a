// Package deck adapts card sources for the game engine. The engine only ever asks for a
// fresh shuffled deck and for N cards off the top of it.
package deck

import (
	"context"
	"errors"

	"github.com/jason-s-yu/gofish/internal/models"
)

// ErrProviderFailure wraps network, status and decoding failures of a Provider.
// Running out of cards is not a failure: Draw returns fewer cards instead.
var ErrProviderFailure = errors.New("deck provider failure")

// DrawResult is the outcome of a Draw. Cards may be shorter than requested, or empty,
// once the deck runs low. Remaining is the provider's count of undrawn cards.
type DrawResult struct {
	Cards     []*models.Card
	Remaining int
}

// Provider supplies shuffled decks and sequential draws from them.
type Provider interface {
	NewDeck(ctx context.Context) (string, error)
	Draw(ctx context.Context, deckID string, count int) (DrawResult, error)
}

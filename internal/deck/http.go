// internal/deck/http.go
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
)

// DefaultBaseURL is the public deckofcardsapi.com endpoint.
const DefaultBaseURL = "https://deckofcardsapi.com/api"

// HTTPProvider talks to a deckofcardsapi.com compatible service.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProvider builds a provider for baseURL (DefaultBaseURL when empty) with a per-request timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

type apiCard struct {
	Code  string `json:"code"`
	Image string `json:"image"`
	Value string `json:"value"`
	Suit  string `json:"suit"`
}

type apiResponse struct {
	Success   bool      `json:"success"`
	DeckID    string    `json:"deck_id"`
	Cards     []apiCard `json:"cards"`
	Remaining int       `json:"remaining"`
	Error     string    `json:"error"`
}

// NewDeck requests a freshly shuffled 52-card deck.
func (p *HTTPProvider) NewDeck(ctx context.Context) (string, error) {
	var resp apiResponse
	if err := p.get(ctx, p.BaseURL+"/deck/new/shuffle/?deck_count=1", &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.DeckID == "" {
		return "", fmt.Errorf("%w: shuffle rejected: %s", ErrProviderFailure, resp.Error)
	}
	return resp.DeckID, nil
}

// Draw takes up to count cards. The service answers success=false with whatever cards
// were left when the deck cannot cover the request; that is reported as a short draw.
func (p *HTTPProvider) Draw(ctx context.Context, deckID string, count int) (DrawResult, error) {
	if deckID == "" {
		return DrawResult{}, fmt.Errorf("%w: empty deck id", ErrProviderFailure)
	}
	u := fmt.Sprintf("%s/deck/%s/draw/?count=%s", p.BaseURL, url.PathEscape(deckID), strconv.Itoa(count))
	var resp apiResponse
	if err := p.get(ctx, u, &resp); err != nil {
		return DrawResult{}, err
	}
	if !resp.Success && !isShortDraw(resp.Error) {
		return DrawResult{}, fmt.Errorf("%w: draw rejected: %s", ErrProviderFailure, resp.Error)
	}

	res := DrawResult{Remaining: resp.Remaining, Cards: make([]*models.Card, 0, len(resp.Cards))}
	for _, c := range resp.Cards {
		res.Cards = append(res.Cards, &models.Card{
			ID:    uuid.New(),
			Code:  c.Code,
			Rank:  models.NormalizeRank(c.Value),
			Suit:  c.Suit,
			Image: c.Image,
		})
	}
	return res, nil
}

// isShortDraw matches the service's "Not enough cards remaining to draw N additional" reply.
func isShortDraw(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not enough cards")
}

func (p *HTTPProvider) get(ctx context.Context, u string, out *apiResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	res, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer res.Body.Close()

	// deckofcardsapi answers 404 with a JSON body for a short draw, so the body is decoded
	// before the status is judged.
	decodeErr := json.NewDecoder(res.Body).Decode(out)
	if res.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrProviderFailure, res.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderFailure, decodeErr)
	}
	return nil
}

package models

// Player is one seat in a session.
type Player struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Hand []*Card   `json:"hand"`
	Sets [][]*Card `json:"sets"`
	IsAI bool      `json:"isAI"`
}

// DisplayName falls back to a short form of the id when the player has no name.
func (p *Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if len(p.ID) > 5 {
		return p.ID[:5]
	}
	return p.ID
}

// Clone deep-copies the player, including hand and sets.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := &Player{
		ID:   p.ID,
		Name: p.Name,
		IsAI: p.IsAI,
		Hand: cloneCards(p.Hand),
		Sets: make([][]*Card, len(p.Sets)),
	}
	for i, set := range p.Sets {
		cp.Sets[i] = cloneCards(set)
	}
	return cp
}

func cloneCards(cards []*Card) []*Card {
	out := make([]*Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

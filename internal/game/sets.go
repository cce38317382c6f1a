package game

import "github.com/jason-s-yu/gofish/internal/models"

// DetectSets moves every rank the player holds exactly four of from the hand into Sets.
// It returns the newly completed ranks in rank order.
func DetectSets(p *models.Player) []string {
	counts := make(map[string]int)
	for _, c := range p.Hand {
		counts[models.NormalizeRank(c.Rank)]++
	}

	var completed []string
	for _, rank := range models.Ranks {
		if counts[rank] != 4 {
			continue
		}
		set := make([]*models.Card, 0, 4)
		rest := make([]*models.Card, 0, len(p.Hand))
		for _, c := range p.Hand {
			if models.NormalizeRank(c.Rank) == rank {
				set = append(set, c)
			} else {
				rest = append(rest, c)
			}
		}
		p.Hand = rest
		p.Sets = append(p.Sets, set)
		completed = append(completed, rank)
	}
	return completed
}

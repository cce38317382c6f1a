package game

import "github.com/jason-s-yu/gofish/internal/models"

// TotalSets is the number of sets a standard deck can yield, one per rank.
const TotalSets = 13

// EvaluateWinner returns the winning player id once all 13 sets are complete, or "".
// The player with the most sets wins; on a tie the lowest seat wins.
func EvaluateWinner(s *models.Session) string {
	if s.TotalSets() != TotalSets {
		return ""
	}
	winner, best := "", -1
	for _, p := range s.Players {
		if len(p.Sets) > best {
			winner, best = p.ID, len(p.Sets)
		}
	}
	return winner
}

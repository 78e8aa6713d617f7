package stats

import (
	"sort"

	"github.com/mcdev12/turntimer/go/internal/models"
)

// Rebuild derives every player's stats from the game list alone
func Rebuild(games []models.GameResult) map[string]models.PlayerStats {
	out := make(map[string]models.PlayerStats)
	for _, name := range winnersInOrder(games) {
		if ps, ok := scanPlayer(games, name); ok {
			out[name] = ps
		}
	}
	return out
}

// scanPlayer computes one player's stats by a full pass over games
func scanPlayer(games []models.GameResult, name string) (models.PlayerStats, bool) {
	ps := models.PlayerStats{WinsByPosition: make(map[int]int)}
	rounds := 0
	for _, g := range games {
		if g.WinnerName != name {
			continue
		}
		ps.TotalWins++
		ps.WinsByPosition[g.WinnerPosition]++
		rounds += g.Round
	}
	if ps.TotalWins == 0 {
		return models.PlayerStats{}, false
	}
	ps.AverageRoundOfWin = float64(rounds) / float64(ps.TotalWins)
	return ps, true
}

// winCount and averageRound scan games for name
func winCount(games []models.GameResult, name string) int {
	n := 0
	for _, g := range games {
		if g.WinnerName == name {
			n++
		}
	}
	return n
}

func averageRound(games []models.GameResult, name string) float64 {
	n, sum := 0, 0
	for _, g := range games {
		if g.WinnerName == name {
			n++
			sum += g.Round
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// winnersInOrder lists distinct winners by their first win
func winnersInOrder(games []models.GameResult) []string {
	seen := make(map[string]bool)
	var names []string
	for _, g := range games {
		if !seen[g.WinnerName] {
			seen[g.WinnerName] = true
			names = append(names, g.WinnerName)
		}
	}
	return names
}

// rankStandings sorts by total wins. Ties keep the order of names in order,
// which lists each player from the moment their entry was created.
func rankStandings(order []string, playerStats map[string]models.PlayerStats) []Standing {
	standings := make([]Standing, 0, len(playerStats))
	for _, name := range order {
		ps, ok := playerStats[name]
		if !ok {
			continue
		}
		standings = append(standings, Standing{Name: name, Stats: ps.Clone()})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Stats.TotalWins > standings[j].Stats.TotalWins
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// removeName drops name from order, keeping the rest in place
func removeName(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

// DisplayToStorageIndex maps a newest-first history position onto the
// chronological index used for storage.
func DisplayToStorageIndex(displayIndex, total int) (int, error) {
	if displayIndex < 0 || displayIndex >= total {
		return 0, ErrGameIndexOutOfRange
	}
	return total - 1 - displayIndex, nil
}

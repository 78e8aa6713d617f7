package models

// GameResult is the record of one finished game. It is never mutated after creation.
type GameResult struct {
	WinnerName     string   `json:"winnerName"`
	Round          int      `json:"round"`
	WinnerPosition int      `json:"winnerPosition"` // 0-based seat index at time of win
	PlayerNames    []string `json:"playerNames"`    // Lineup snapshot
	Timestamp      int64    `json:"timestamp"`      // Epoch millis
}

// PlayerStats are the aggregated wins of one player, derived from the game list
type PlayerStats struct {
	TotalWins         int         `json:"totalWins"`
	WinsByPosition    map[int]int `json:"winsByPosition"`
	AverageRoundOfWin float64     `json:"averageRoundOfWin"`
}

// Statistics is the persisted root document.
// PlayerStats is a materialized view over Games keyed by winner name.
type Statistics struct {
	Games       []GameResult           `json:"games"`
	PlayerStats map[string]PlayerStats `json:"playerStats"`
}

// NewStatistics returns an empty ledger
func NewStatistics() Statistics {
	return Statistics{
		Games:       []GameResult{},
		PlayerStats: make(map[string]PlayerStats),
	}
}

// Clone returns a deep copy of the statistics
func (s Statistics) Clone() Statistics {
	out := Statistics{
		Games:       make([]GameResult, len(s.Games)),
		PlayerStats: make(map[string]PlayerStats, len(s.PlayerStats)),
	}
	for i, g := range s.Games {
		g.PlayerNames = append([]string(nil), g.PlayerNames...)
		out.Games[i] = g
	}
	for name, ps := range s.PlayerStats {
		out.PlayerStats[name] = ps.Clone()
	}
	return out
}

// Clone returns a deep copy of the player stats
func (p PlayerStats) Clone() PlayerStats {
	byPos := make(map[int]int, len(p.WinsByPosition))
	for pos, n := range p.WinsByPosition {
		byPos[pos] = n
	}
	p.WinsByPosition = byPos
	return p
}

package stats

import "github.com/mcdev12/turntimer/go/internal/models"

// AddGameRequest represents the data needed to record a finished game
type AddGameRequest struct {
	WinnerName     string   `json:"winnerName"`
	Round          int      `json:"round"`
	WinnerPosition int      `json:"winnerPosition"`
	PlayerNames    []string `json:"playerNames"`
}

// Standing is one leaderboard row
type Standing struct {
	Rank  int                `json:"rank"`
	Name  string             `json:"name"`
	Stats models.PlayerStats `json:"stats"`
}

// Leaderboard is the read model for the statistics screen
type Leaderboard struct {
	Standings  []Standing          `json:"standings"`  // Most wins first
	History    []models.GameResult `json:"history"`    // Newest first
	TotalGames int                 `json:"totalGames"`
}

package stats

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StatsRepository defines what the app layer needs from the repository
type StatsRepository interface {
	Load(ctx context.Context) models.Statistics
	Save(ctx context.Context, s models.Statistics) error
}

// App is the statistics ledger. It owns the game list and keeps the per-player
// aggregates consistent with it on every add and delete.
type App struct {
	repo  StatsRepository
	clock clockwork.Clock

	mu     sync.Mutex
	stats  models.Statistics
	loaded bool

	// order lists players with an entry in stats.PlayerStats by when the entry
	// was created. After a load it falls back to first-win order.
	order []string
}

// NewApp creates a new statistics App. A nil clk uses the real clock.
func NewApp(repo StatsRepository, clk clockwork.Clock) *App {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clk,
		stats: models.NewStatistics(),
	}
}

// Load replaces the in-memory ledger with the persisted one
func (a *App) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = a.repo.Load(ctx)
	a.order = winnersInOrder(a.stats.Games)
	a.loaded = true
	log.Info().Int("games", len(a.stats.Games)).Msg("statistics ledger loaded")
}

// AddGame records a finished game and updates the winner's aggregate
func (a *App) AddGame(ctx context.Context, req AddGameRequest) (models.GameResult, error) {
	if err := validateAddGameRequest(req); err != nil {
		return models.GameResult{}, fmt.Errorf("validation failed: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureLoadedLocked(ctx)

	game := models.GameResult{
		WinnerName:     req.WinnerName,
		Round:          req.Round,
		WinnerPosition: req.WinnerPosition,
		PlayerNames:    append([]string{}, req.PlayerNames...),
		Timestamp:      a.clock.Now().UnixMilli(),
	}
	a.stats.Games = append(a.stats.Games, game)

	if _, exists := a.stats.PlayerStats[game.WinnerName]; !exists {
		a.order = append(a.order, game.WinnerName)
	}
	ps := a.stats.PlayerStats[game.WinnerName].Clone()
	ps.WinsByPosition[game.WinnerPosition]++
	ps.TotalWins = winCount(a.stats.Games, game.WinnerName)
	ps.AverageRoundOfWin = averageRound(a.stats.Games, game.WinnerName)
	a.stats.PlayerStats[game.WinnerName] = ps

	log.Info().
		Str("winner", game.WinnerName).
		Int("round", game.Round).
		Int("position", game.WinnerPosition).
		Int("total_wins", ps.TotalWins).
		Msg("game recorded")

	return game, a.saveLocked(ctx)
}

// DeleteGame removes the game at a chronological index and rolls its win back
// out of the winner's aggregate.
func (a *App) DeleteGame(ctx context.Context, index int) (models.GameResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureLoadedLocked(ctx)

	if index < 0 || index >= len(a.stats.Games) {
		return models.GameResult{}, ErrGameIndexOutOfRange
	}

	game := a.stats.Games[index]
	a.stats.Games = append(a.stats.Games[:index:index], a.stats.Games[index+1:]...)

	name := game.WinnerName
	if ps, ok := a.stats.PlayerStats[name]; ok {
		ps = ps.Clone()
		ps.TotalWins--
		ps.WinsByPosition[game.WinnerPosition]--
		if ps.WinsByPosition[game.WinnerPosition] <= 0 {
			delete(ps.WinsByPosition, game.WinnerPosition)
		}
		if ps.TotalWins <= 0 {
			delete(a.stats.PlayerStats, name)
			a.order = removeName(a.order, name)
		} else {
			ps.AverageRoundOfWin = averageRound(a.stats.Games, name)
			a.stats.PlayerStats[name] = ps
		}
	}

	log.Info().
		Int("index", index).
		Str("winner", name).
		Int("remaining_games", len(a.stats.Games)).
		Msg("game deleted")

	return game, a.saveLocked(ctx)
}

// DeleteDisplayedGame deletes a game addressed by its newest-first history position
func (a *App) DeleteDisplayedGame(ctx context.Context, displayIndex int) (models.GameResult, error) {
	a.mu.Lock()
	a.ensureLoadedLocked(ctx)
	index, err := DisplayToStorageIndex(displayIndex, len(a.stats.Games))
	a.mu.Unlock()
	if err != nil {
		return models.GameResult{}, err
	}
	return a.DeleteGame(ctx, index)
}

// Query returns the leaderboard and the newest-first game history
func (a *App) Query(ctx context.Context) Leaderboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureLoadedLocked(ctx)

	history := make([]models.GameResult, 0, len(a.stats.Games))
	for i := len(a.stats.Games) - 1; i >= 0; i-- {
		history = append(history, a.stats.Games[i])
	}

	return Leaderboard{
		Standings:  rankStandings(a.order, a.stats.PlayerStats),
		History:    history,
		TotalGames: len(a.stats.Games),
	}
}

// Statistics returns a copy of the full ledger
func (a *App) Statistics(ctx context.Context) models.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureLoadedLocked(ctx)
	return a.stats.Clone()
}

func (a *App) ensureLoadedLocked(ctx context.Context) {
	if a.loaded {
		return
	}
	a.stats = a.repo.Load(ctx)
	a.order = winnersInOrder(a.stats.Games)
	a.loaded = true
}

func (a *App) saveLocked(ctx context.Context) error {
	if err := a.repo.Save(ctx, a.stats.Clone()); err != nil {
		log.Error().Err(err).Msg("failed to persist statistics")
		return err
	}
	return nil
}

// validateAddGameRequest validates add game request
func validateAddGameRequest(req AddGameRequest) error {
	if strings.TrimSpace(req.WinnerName) == "" {
		return fmt.Errorf("%w: winner name is required", ErrInvalidGame)
	}
	if req.Round < 1 {
		return fmt.Errorf("%w: round must be at least 1", ErrInvalidGame)
	}
	if req.WinnerPosition < 0 {
		return fmt.Errorf("%w: winner position cannot be negative", ErrInvalidGame)
	}
	if len(req.PlayerNames) > 0 && req.WinnerPosition >= len(req.PlayerNames) {
		return fmt.Errorf("%w: winner position %d outside lineup of %d", ErrInvalidGame, req.WinnerPosition, len(req.PlayerNames))
	}
	return nil
}

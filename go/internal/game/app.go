package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/mcdev12/turntimer/go/internal/notify"
	"github.com/mcdev12/turntimer/go/internal/stats"
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/rs/zerolog/log"
)

var (
	ErrGameInProgress     = errors.New("game in progress")
	ErrNoGameInProgress   = errors.New("no game in progress")
	ErrInvalidWinner      = errors.New("winner index out of range")
	ErrDurationNotOffered = errors.New("turn duration is not one of the presets")
)

// Ledger defines what the game app needs from the statistics ledger
type Ledger interface {
	AddGame(ctx context.Context, req stats.AddGameRequest) (models.GameResult, error)
	DeleteDisplayedGame(ctx context.Context, displayIndex int) (models.GameResult, error)
	Query(ctx context.Context) stats.Leaderboard
}

// Settings are the host-level options of a table
type Settings struct {
	Presets       []int // Offered turn durations in seconds
	StrictPresets bool  // Reject durations outside Presets
}

// App is the table session: one turn clock, the ledger it reports into, and the
// setup-only rules the clock itself does not enforce.
type App struct {
	clock    *turnclock.Clock
	ledger   Ledger
	sink     notify.Sink
	settings Settings

	// mu serializes phase changes with the setup-only edits that depend on the phase
	mu sync.Mutex
}

// NewApp creates a session and forwards every clock event to sink
func NewApp(clock *turnclock.Clock, ledger Ledger, sink notify.Sink, settings Settings) *App {
	if sink == nil {
		sink = notify.NopSink{}
	}
	a := &App{
		clock:    clock,
		ledger:   ledger,
		sink:     sink,
		settings: settings,
	}
	clock.Subscribe(func(ev turnclock.Event) {
		a.sink.Emit(string(ev.Type), ev.Snapshot)
	})
	return a
}

// Snapshot returns the current clock state
func (a *App) Snapshot() turnclock.Snapshot {
	return a.clock.Snapshot()
}

// Presets returns the offered turn durations
func (a *App) Presets() []int {
	return append([]int(nil), a.settings.Presets...)
}

// StartGame leaves setup and starts the first turn
func (a *App) StartGame() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.clock.StartGame() {
		return ErrGameInProgress
	}
	s := a.clock.Snapshot()
	a.sink.Emit(notify.EventGameStarted, s)
	return nil
}

// Toggle flips between running and paused
func (a *App) Toggle() bool { return a.clock.Toggle() }

// Start resumes the countdown
func (a *App) Start() bool { return a.clock.Start() }

// Pause stops the countdown
func (a *App) Pause() bool { return a.clock.Pause() }

// Advance passes the turn on; ignored during the cooldown
func (a *App) Advance() bool { return a.clock.Advance() }

// Reset abandons the current game and returns to setup with the current duration
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.Reset(0)
}

// SetDuration changes the turn length during setup
func (a *App) SetDuration(seconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSetup(); err != nil {
		return err
	}
	if seconds <= 0 {
		return turnclock.ErrInvalidDuration
	}
	if a.settings.StrictPresets && !a.offered(seconds) {
		return fmt.Errorf("%w: %d", ErrDurationNotOffered, seconds)
	}
	a.clock.SetDuration(seconds)
	return nil
}

// AddPlayer appends a player during setup
func (a *App) AddPlayer(name string) (models.Player, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSetup(); err != nil {
		return models.Player{}, err
	}
	return a.clock.AddPlayer(name), nil
}

// RemovePlayer drops a seat during setup. The bool is false when the roster
// guard kept the player.
func (a *App) RemovePlayer(index int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSetup(); err != nil {
		return false, err
	}
	return a.clock.RemovePlayer(index), nil
}

// MovePlayer moves a seat one step during setup
func (a *App) MovePlayer(index int, direction turnclock.Direction) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSetup(); err != nil {
		return false, err
	}
	return a.clock.MovePlayer(index, direction), nil
}

// RenamePlayer renames a seat during setup
func (a *App) RenamePlayer(index int, name string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSetup(); err != nil {
		return false, err
	}
	return a.clock.RenamePlayer(index, name), nil
}

// EndGame records the player at winnerIndex as the winner of the running game and
// returns the table to setup. A persistence failure is returned after the game has
// been recorded in memory and the table reset.
func (a *App) EndGame(ctx context.Context, winnerIndex int) (models.GameResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.clock.Snapshot()
	if s.Phase != turnclock.PhaseInGame {
		return models.GameResult{}, ErrNoGameInProgress
	}
	if winnerIndex < 0 || winnerIndex >= len(s.Players) {
		return models.GameResult{}, ErrInvalidWinner
	}

	result, err := a.ledger.AddGame(ctx, stats.AddGameRequest{
		WinnerName:     s.Players[winnerIndex].Name,
		Round:          s.Round,
		WinnerPosition: winnerIndex,
		PlayerNames:    s.PlayerNames(),
	})
	if errors.Is(err, stats.ErrInvalidGame) {
		return models.GameResult{}, err
	}

	a.clock.Reset(s.TurnDuration)

	log.Info().
		Str("winner", result.WinnerName).
		Int("round", result.Round).
		Msg("game ended")
	a.sink.Emit(notify.EventGameEnded, s)
	a.sink.Emit(notify.EventGameRecorded, result)

	if err != nil {
		return result, fmt.Errorf("game recorded but not persisted: %w", err)
	}
	return result, nil
}

// Leaderboard returns the standings and newest-first history
func (a *App) Leaderboard(ctx context.Context) stats.Leaderboard {
	return a.ledger.Query(ctx)
}

// DeleteHistoryEntry deletes a game addressed by its newest-first history position
func (a *App) DeleteHistoryEntry(ctx context.Context, displayIndex int) (models.GameResult, error) {
	deleted, err := a.ledger.DeleteDisplayedGame(ctx, displayIndex)
	if errors.Is(err, stats.ErrGameIndexOutOfRange) {
		return models.GameResult{}, err
	}
	a.sink.Emit(notify.EventGameDeleted, deleted)
	if err != nil {
		return deleted, fmt.Errorf("game deleted but not persisted: %w", err)
	}
	return deleted, nil
}

// requireSetup is called with a.mu held
func (a *App) requireSetup() error {
	if a.clock.Snapshot().Phase != turnclock.PhaseSetup {
		return ErrGameInProgress
	}
	return nil
}

func (a *App) offered(seconds int) bool {
	for _, p := range a.settings.Presets {
		if p == seconds {
			return true
		}
	}
	return false
}

package turnclock

import (
	"time"

	"github.com/mcdev12/turntimer/go/internal/models"
)

// EventType represents the type of clock event
type EventType string

const (
	EventTick          EventType = "tick"
	EventTurnAdvanced  EventType = "turn_advanced"
	EventLowTime       EventType = "low_time"
	EventTurnExpired   EventType = "turn_expired"
	EventStateChanged  EventType = "state_changed"
	EventRosterChanged EventType = "roster_changed"
)

// Phase is the lifecycle phase of a game
type Phase string

const (
	PhaseSetup  Phase = "setup"
	PhaseInGame Phase = "in_game"
)

// State is the externally visible state machine position
type State string

const (
	StateSetup   State = "setup"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Snapshot is a read-only copy of the clock state
type Snapshot struct {
	Players            []models.Player `json:"players"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	CurrentPlayer      models.Player   `json:"currentPlayer"`
	Phase              Phase           `json:"phase"`
	State              State           `json:"state"`
	IsRunning          bool            `json:"isRunning"`
	TurnDuration       int             `json:"turnDuration"`
	TimeLeft           int             `json:"timeLeft"`
	Display            string          `json:"display"`
	Round              int             `json:"round"`
	AdvanceLocked      bool            `json:"advanceLocked"`
	LowTime            bool            `json:"lowTime"`
}

// PlayerNames returns the lineup in seat order
func (s Snapshot) PlayerNames() []string {
	return models.PlayerNames(s.Players)
}

// Event is delivered to subscribers after every observable change
type Event struct {
	Type      EventType `json:"type"`
	Snapshot  Snapshot  `json:"snapshot"`
	Timestamp time.Time `json:"timestamp"`
}

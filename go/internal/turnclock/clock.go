package turnclock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTurnDuration     = 45
	DefaultCooldown         = time.Second
	DefaultLowTimeThreshold = 5
)

var (
	ErrInvalidDuration = errors.New("turn duration must be positive")
	ErrTooFewPlayers   = fmt.Errorf("at least %d players are required", models.MinPlayers)
)

// Config holds the initial settings of a clock
type Config struct {
	TurnDuration     int             // Seconds per turn
	Cooldown         time.Duration   // Advance debounce window
	LowTimeThreshold int             // Low-time alerts fire while timeLeft is in [1, threshold]
	Players          []models.Player // Initial seat order
}

// DefaultConfig returns the out-of-the-box table setup
func DefaultConfig() Config {
	return Config{
		TurnDuration:     DefaultTurnDuration,
		Cooldown:         DefaultCooldown,
		LowTimeThreshold: DefaultLowTimeThreshold,
		Players: []models.Player{
			{ID: 1, Name: "Player 1"},
			{ID: 2, Name: "Player 2"},
			{ID: 3, Name: "Player 3"},
		},
	}
}

// Clock is the turn and round state machine. All mutating calls are serialized;
// events produced by a call are delivered after the state lock is released.
type Clock struct {
	// emitMu orders mutation plus delivery so subscribers see events in commit order.
	// Subscribers must not call mutating methods from their callback.
	emitMu sync.Mutex
	mu     sync.Mutex

	clock    clockwork.Clock
	notifier Notifier
	cooldown time.Duration
	lowTime  int

	players  []models.Player
	current  int
	running  bool
	phase    Phase
	duration int
	timeLeft int
	round    int
	locked   bool
	lockSeq  uint64
	epoch    uint64 // bumped whenever a pending tick must be discarded

	subsMu    sync.Mutex
	subs      map[int]func(Event)
	nextSubID int
}

// New creates a clock in the setup phase. A nil clk uses the real clock and a nil
// notifier discards alerts.
func New(cfg Config, clk clockwork.Clock, notifier Notifier) (*Clock, error) {
	if cfg.TurnDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	if len(cfg.Players) < models.MinPlayers {
		return nil, ErrTooFewPlayers
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.LowTimeThreshold < 0 {
		cfg.LowTimeThreshold = 0
	}

	c := &Clock{
		clock:    clk,
		notifier: notifier,
		cooldown: cfg.Cooldown,
		lowTime:  cfg.LowTimeThreshold,
		players:  append([]models.Player(nil), cfg.Players...),
		subs:     make(map[int]func(Event)),
	}
	c.resetLocked(cfg.TurnDuration)
	return c, nil
}

// Snapshot returns a copy of the current state
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every event. The returned func removes the subscription.
func (c *Clock) Subscribe(fn func(Event)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// StartGame leaves setup and starts the first turn
func (c *Clock) StartGame() bool {
	return c.apply(func() []Event {
		if c.phase != PhaseSetup {
			return nil
		}
		c.phase = PhaseInGame
		c.running = true
		c.epoch++
		log.Info().
			Int("players", len(c.players)).
			Int("turn_duration", c.duration).
			Msg("game started")
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

// Start resumes the countdown. It is a no-op during setup or when already running.
func (c *Clock) Start() bool {
	return c.apply(func() []Event {
		if c.phase != PhaseInGame || c.running {
			return nil
		}
		c.running = true
		c.epoch++
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

// Pause stops the countdown. It is a no-op when not running.
func (c *Clock) Pause() bool {
	return c.apply(func() []Event {
		if !c.running {
			return nil
		}
		c.running = false
		c.epoch++
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

// Toggle flips between running and paused
func (c *Clock) Toggle() bool {
	return c.apply(func() []Event {
		if c.phase != PhaseInGame {
			return nil
		}
		c.running = !c.running
		c.epoch++
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

// Tick accounts for one elapsed second
func (c *Clock) Tick() {
	c.apply(c.tickLocked)
}

// tickEpoch is Tick for a ticker scheduled under epoch; stale ticks are dropped
func (c *Clock) tickEpoch(epoch uint64) {
	c.apply(func() []Event {
		if epoch != c.epoch {
			log.Debug().Uint64("epoch", epoch).Uint64("current_epoch", c.epoch).Msg("dropping stale tick")
			return nil
		}
		return c.tickLocked()
	})
}

func (c *Clock) tickLocked() []Event {
	if !c.running || c.timeLeft <= 0 {
		return nil
	}

	if c.timeLeft <= 1 {
		events := []Event{c.eventLocked(EventTurnExpired)}
		log.Info().
			Str("player", c.players[c.current].Name).
			Int("round", c.round).
			Msg("turn expired")
		if c.advanceLocked() {
			events = append(events, c.eventLocked(EventTurnAdvanced))
		} else {
			c.timeLeft = c.duration
			events = append(events, c.eventLocked(EventTick))
		}
		return events
	}

	c.timeLeft--
	events := []Event{c.eventLocked(EventTick)}
	if c.timeLeft >= 1 && c.timeLeft <= c.lowTime {
		events = append(events, c.eventLocked(EventLowTime))
	}
	return events
}

// Advance passes the turn to the next player. While the cooldown from the previous
// advance is active the call does nothing.
func (c *Clock) Advance() bool {
	return c.apply(func() []Event {
		if c.phase != PhaseInGame {
			return nil
		}
		if !c.advanceLocked() {
			log.Debug().Msg("advance ignored during cooldown")
			return nil
		}
		return []Event{c.eventLocked(EventTurnAdvanced)}
	})
}

// advanceLocked moves to the next seat and arms the cooldown. Caller holds c.mu.
func (c *Clock) advanceLocked() bool {
	if c.locked {
		return false
	}
	c.locked = true
	c.lockSeq++

	next := (c.current + 1) % len(c.players)
	if next == 0 {
		c.round++
	}
	c.current = next
	c.timeLeft = c.duration
	c.running = true
	c.epoch++

	c.scheduleUnlock(c.lockSeq)

	log.Debug().
		Int("player_index", c.current).
		Str("player", c.players[c.current].Name).
		Int("round", c.round).
		Msg("turn advanced")
	return true
}

// scheduleUnlock clears the advance lock after the cooldown on its own timer,
// independent of the tick ticker. A superseded unlock leaves a newer lock alone.
func (c *Clock) scheduleUnlock(seq uint64) {
	c.clock.AfterFunc(c.cooldown, func() {
		c.apply(func() []Event {
			if !c.locked || c.lockSeq != seq {
				return nil
			}
			c.locked = false
			return []Event{c.eventLocked(EventStateChanged)}
		})
	})
}

// SetDuration changes the turn length and refills the current turn
func (c *Clock) SetDuration(seconds int) bool {
	return c.apply(func() []Event {
		if seconds <= 0 {
			return nil
		}
		c.duration = seconds
		c.timeLeft = seconds
		c.epoch++
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

// Reset returns to the canonical pre-game state. A non-positive duration keeps
// the current turn duration.
func (c *Clock) Reset(duration int) {
	c.apply(func() []Event {
		if duration <= 0 {
			duration = c.duration
		}
		c.resetLocked(duration)
		return []Event{c.eventLocked(EventStateChanged)}
	})
}

func (c *Clock) resetLocked(duration int) {
	c.current = 0
	c.running = false
	c.phase = PhaseSetup
	c.round = 1
	c.duration = duration
	c.timeLeft = duration
	c.locked = false
	c.epoch++
}

// runState reports what the ticker needs to know
func (c *Clock) runState() (bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running, c.epoch
}

// apply runs fn under the state lock and then delivers the events it produced.
// It reports whether any event was produced.
func (c *Clock) apply(fn func() []Event) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	events := fn()
	c.mu.Unlock()

	c.deliver(events)
	return len(events) > 0
}

func (c *Clock) deliver(events []Event) {
	if len(events) == 0 {
		return
	}

	c.subsMu.Lock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subsMu.Unlock()

	for _, ev := range events {
		switch ev.Type {
		case EventLowTime:
			c.notifier.NotifyLowTime(ev.Snapshot)
		case EventTurnExpired:
			c.notifier.NotifyTurnExpired(ev.Snapshot)
		}
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func (c *Clock) eventLocked(t EventType) Event {
	return Event{
		Type:      t,
		Snapshot:  c.snapshotLocked(),
		Timestamp: c.clock.Now(),
	}
}

func (c *Clock) snapshotLocked() Snapshot {
	state := StateSetup
	if c.phase == PhaseInGame {
		state = StatePaused
		if c.running {
			state = StateRunning
		}
	}
	return Snapshot{
		Players:            append([]models.Player(nil), c.players...),
		CurrentPlayerIndex: c.current,
		CurrentPlayer:      c.players[c.current],
		Phase:              c.phase,
		State:              state,
		IsRunning:          c.running,
		TurnDuration:       c.duration,
		TimeLeft:           c.timeLeft,
		Display:            FormatTime(c.timeLeft),
		Round:              c.round,
		AdvanceLocked:      c.locked,
		LowTime:            c.timeLeft >= 1 && c.timeLeft <= c.lowTime,
	}
}

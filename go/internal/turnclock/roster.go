package turnclock

import (
	"fmt"
	"strings"

	"github.com/mcdev12/turntimer/go/internal/models"
)

// Direction is the way a seat moves in the turn order
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts user input into a Direction
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("invalid direction %q", s)
	}
}

// AddPlayer appends a player to the end of the turn order. An empty name gets a
// numbered default.
func (c *Clock) AddPlayer(name string) models.Player {
	var added models.Player
	c.apply(func() []Event {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Player %d", len(c.players)+1)
		}
		added = models.Player{ID: models.NextPlayerID(c.players), Name: name}
		c.players = append(c.players, added)
		return []Event{c.eventLocked(EventRosterChanged)}
	})
	return added
}

// RemovePlayer drops the seat at index. Rosters never shrink below two players.
func (c *Clock) RemovePlayer(index int) bool {
	return c.apply(func() []Event {
		if len(c.players) <= models.MinPlayers || !c.validIndexLocked(index) {
			return nil
		}
		c.players = append(c.players[:index:index], c.players[index+1:]...)
		if c.current >= len(c.players) {
			c.current = len(c.players) - 1
		}
		return []Event{c.eventLocked(EventRosterChanged)}
	})
}

// MovePlayer swaps the seat at index with its neighbour in direction.
// Moving past either end does nothing.
func (c *Clock) MovePlayer(index int, direction Direction) bool {
	return c.apply(func() []Event {
		if !c.validIndexLocked(index) {
			return nil
		}
		target := index + 1
		if direction == DirectionUp {
			target = index - 1
		}
		if !c.validIndexLocked(target) {
			return nil
		}
		c.players[index], c.players[target] = c.players[target], c.players[index]
		return []Event{c.eventLocked(EventRosterChanged)}
	})
}

// RenamePlayer changes a display name. Blank names are rejected.
func (c *Clock) RenamePlayer(index int, name string) bool {
	return c.apply(func() []Event {
		name = strings.TrimSpace(name)
		if name == "" || !c.validIndexLocked(index) {
			return nil
		}
		c.players[index].Name = name
		return []Event{c.eventLocked(EventRosterChanged)}
	})
}

func (c *Clock) validIndexLocked(index int) bool {
	return index >= 0 && index < len(c.players)
}

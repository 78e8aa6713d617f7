package models

// MinPlayers is the smallest roster a game can be played with
const MinPlayers = 2

// Player represents a seat at the table
type Player struct {
	ID   int    `json:"id"`   // Stable across reorders
	Name string `json:"name"` // Display name, never empty
}

// PlayerNames returns the names of players in seat order
func PlayerNames(players []Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

// NextPlayerID returns the next free player id (max id + 1)
func NextPlayerID(players []Player) int {
	maxID := 0
	for _, p := range players {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

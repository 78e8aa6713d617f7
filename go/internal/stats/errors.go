package stats

import "errors"

var (
	// ErrGameIndexOutOfRange is returned when a delete targets a game that does not exist
	ErrGameIndexOutOfRange = errors.New("game index out of range")
	// ErrInvalidGame is returned when a game result is missing required fields
	ErrInvalidGame = errors.New("invalid game result")
)

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mcdev12/turntimer/go/internal/game"
	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/mcdev12/turntimer/go/internal/stats"
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/rs/zerolog/log"
)

// Table is the session surface exposed over HTTP
type Table interface {
	Snapshot() turnclock.Snapshot
	Presets() []int
	StartGame() error
	Toggle() bool
	Start() bool
	Pause() bool
	Advance() bool
	Reset()
	SetDuration(seconds int) error
	AddPlayer(name string) (models.Player, error)
	RemovePlayer(index int) (bool, error)
	MovePlayer(index int, direction turnclock.Direction) (bool, error)
	RenamePlayer(index int, name string) (bool, error)
	EndGame(ctx context.Context, winnerIndex int) (models.GameResult, error)
	Leaderboard(ctx context.Context) stats.Leaderboard
	DeleteHistoryEntry(ctx context.Context, displayIndex int) (models.GameResult, error)
}

// ActionResponse is returned by every clock mutation
type ActionResponse struct {
	Applied bool               `json:"applied"`
	Clock   turnclock.Snapshot `json:"clock"`
}

// GameResponse is returned when a game is recorded or deleted
type GameResponse struct {
	Game  models.GameResult  `json:"game"`
	Clock turnclock.Snapshot `json:"clock"`
}

type durationRequest struct {
	Seconds int `json:"seconds"`
}

type playerRequest struct {
	Name string `json:"name"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

type endGameRequest struct {
	WinnerIndex *int `json:"winnerIndex"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// TableHandler serves the JSON API of a table
type TableHandler struct {
	table Table
}

// NewTableHandler creates a new table handler
func NewTableHandler(table Table) *TableHandler {
	return &TableHandler{table: table}
}

// RegisterRoutes registers the table API with an HTTP mux
func (h *TableHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/clock", h.HandleGetClock)
	mux.HandleFunc("GET /api/presets", h.HandleGetPresets)
	mux.HandleFunc("POST /api/clock/start-game", h.HandleStartGame)
	mux.HandleFunc("POST /api/clock/start", h.action(h.table.Start))
	mux.HandleFunc("POST /api/clock/pause", h.action(h.table.Pause))
	mux.HandleFunc("POST /api/clock/toggle", h.action(h.table.Toggle))
	mux.HandleFunc("POST /api/clock/advance", h.action(h.table.Advance))
	mux.HandleFunc("POST /api/clock/reset", h.HandleReset)
	mux.HandleFunc("PUT /api/clock/duration", h.HandleSetDuration)
	mux.HandleFunc("POST /api/clock/end-game", h.HandleEndGame)

	mux.HandleFunc("POST /api/players", h.HandleAddPlayer)
	mux.HandleFunc("PUT /api/players/{index}", h.HandleRenamePlayer)
	mux.HandleFunc("DELETE /api/players/{index}", h.HandleRemovePlayer)
	mux.HandleFunc("POST /api/players/{index}/move", h.HandleMovePlayer)

	mux.HandleFunc("GET /api/stats", h.HandleGetStats)
	mux.HandleFunc("DELETE /api/stats/games/{displayIndex}", h.HandleDeleteGame)
}

// HandleGetClock handles GET /api/clock
func (h *TableHandler) HandleGetClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table.Snapshot())
}

// HandleGetPresets handles GET /api/presets
func (h *TableHandler) HandleGetPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int{"presets": h.table.Presets()})
}

// HandleStartGame handles POST /api/clock/start-game
func (h *TableHandler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	if err := h.table.StartGame(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Applied: true, Clock: h.table.Snapshot()})
}

// HandleReset handles POST /api/clock/reset
func (h *TableHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.table.Reset()
	writeJSON(w, http.StatusOK, ActionResponse{Applied: true, Clock: h.table.Snapshot()})
}

// HandleSetDuration handles PUT /api/clock/duration
func (h *TableHandler) HandleSetDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.table.SetDuration(req.Seconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Applied: true, Clock: h.table.Snapshot()})
}

// HandleEndGame handles POST /api/clock/end-game
func (h *TableHandler) HandleEndGame(w http.ResponseWriter, r *http.Request) {
	var req endGameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.WinnerIndex == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "winnerIndex is required"})
		return
	}

	result, err := h.table.EndGame(r.Context(), *req.WinnerIndex)
	if err != nil && result.WinnerName == "" {
		writeError(w, err)
		return
	}
	if err != nil {
		// Recorded in memory; the client still gets the result.
		log.Error().Err(err).Msg("game result not persisted")
	}
	writeJSON(w, http.StatusCreated, GameResponse{Game: result, Clock: h.table.Snapshot()})
}

// HandleAddPlayer handles POST /api/players. An empty body adds a player with
// the default name.
func (h *TableHandler) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	player, err := h.table.AddPlayer(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

// HandleRenamePlayer handles PUT /api/players/{index}
func (h *TableHandler) HandleRenamePlayer(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	var req playerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	applied, err := h.table.RenamePlayer(index, req.Name)
	h.respondApplied(w, applied, err)
}

// HandleRemovePlayer handles DELETE /api/players/{index}
func (h *TableHandler) HandleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	applied, err := h.table.RemovePlayer(index)
	h.respondApplied(w, applied, err)
}

// HandleMovePlayer handles POST /api/players/{index}/move
func (h *TableHandler) HandleMovePlayer(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	direction, err := turnclock.ParseDirection(req.Direction)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	applied, err := h.table.MovePlayer(index, direction)
	h.respondApplied(w, applied, err)
}

// HandleGetStats handles GET /api/stats
func (h *TableHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.table.Leaderboard(r.Context()))
}

// HandleDeleteGame handles DELETE /api/stats/games/{displayIndex}
func (h *TableHandler) HandleDeleteGame(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "displayIndex")
	if !ok {
		return
	}
	deleted, err := h.table.DeleteHistoryEntry(r.Context(), index)
	if errors.Is(err, stats.ErrGameIndexOutOfRange) {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("game deletion not persisted")
	}
	writeJSON(w, http.StatusOK, GameResponse{Game: deleted, Clock: h.table.Snapshot()})
}

func (h *TableHandler) action(fn func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applied := fn()
		writeJSON(w, http.StatusOK, ActionResponse{Applied: applied, Clock: h.table.Snapshot()})
	}
}

func (h *TableHandler) respondApplied(w http.ResponseWriter, applied bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Applied: applied, Clock: h.table.Snapshot()})
}

func pathIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	index, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return index, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrGameInProgress), errors.Is(err, game.ErrNoGameInProgress):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidWinner),
		errors.Is(err, game.ErrDurationNotOffered),
		errors.Is(err, turnclock.ErrInvalidDuration),
		errors.Is(err, stats.ErrInvalidGame):
		return http.StatusBadRequest
	case errors.Is(err, stats.ErrGameIndexOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("table request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

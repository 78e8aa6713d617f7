package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/turntimer/go/internal/blobstore"
	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the blob key of the statistics document
const DefaultKey = "gameStatistics"

// Repository persists the statistics document in a blob store
type Repository struct {
	store blobstore.Store
	key   string
}

// NewRepository creates a new statistics repository
func NewRepository(store blobstore.Store, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{
		store: store,
		key:   key,
	}
}

// Load reads the stored ledger. Missing, unreadable or malformed data yields an
// empty ledger. Player stats are always re-derived from the game list.
func (r *Repository) Load(ctx context.Context) models.Statistics {
	raw, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("failed to read statistics, starting empty")
		return models.NewStatistics()
	}
	if !found {
		return models.NewStatistics()
	}

	var doc models.Statistics
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("failed to parse statistics, starting empty")
		return models.NewStatistics()
	}
	if err := validateGames(doc.Games); err != nil {
		log.Warn().Err(err).Str("key", r.key).Msg("stored statistics have an incompatible shape, starting empty")
		return models.NewStatistics()
	}

	out := models.NewStatistics()
	if doc.Games != nil {
		out.Games = doc.Games
	}
	out.PlayerStats = Rebuild(out.Games)

	log.Debug().
		Str("key", r.key).
		Int("games", len(out.Games)).
		Int("players", len(out.PlayerStats)).
		Msg("statistics loaded")
	return out
}

// Save overwrites the stored ledger
func (r *Repository) Save(ctx context.Context, s models.Statistics) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	if err := r.store.Set(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}

func validateGames(games []models.GameResult) error {
	for i, g := range games {
		if g.WinnerName == "" {
			return fmt.Errorf("game %d: empty winner", i)
		}
		if g.Round < 1 {
			return fmt.Errorf("game %d: round %d", i, g.Round)
		}
		if g.WinnerPosition < 0 {
			return fmt.Errorf("game %d: position %d", i, g.WinnerPosition)
		}
	}
	return nil
}

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Publisher delivers an envelope to an external system
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Relay buffers events and publishes them from its own goroutine so that
// emitters never wait on the network.
type Relay struct {
	publisher      Publisher
	clock          clockwork.Clock
	ch             chan Envelope
	publishTimeout time.Duration
	skip           map[string]bool

	mu            sync.Mutex
	published     uint64
	dropped       uint64
	lastPublished time.Time
}

// RelayStats reports relay throughput
type RelayStats struct {
	Published     uint64    `json:"published"`
	Dropped       uint64    `json:"dropped"`
	Pending       int       `json:"pending"`
	LastPublished time.Time `json:"last_published"`
}

// NewRelay creates a relay with a buffer of size events. Event types listed in
// skip are dropped.
func NewRelay(publisher Publisher, clk clockwork.Clock, size int, skip ...string) *Relay {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if size <= 0 {
		size = 256
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	return &Relay{
		publisher:      publisher,
		clock:          clk,
		ch:             make(chan Envelope, size),
		publishTimeout: 5 * time.Second,
		skip:           skipped,
	}
}

func (r *Relay) Emit(eventType string, payload any) {
	if r.skip[eventType] {
		return
	}
	env, err := NewEnvelope(eventType, payload, r.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build event envelope")
		return
	}
	select {
	case r.ch <- env:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		log.Warn().Str("event_type", eventType).Msg("relay buffer full, dropping event")
	}
}

// Stats returns counters since the relay was created
func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RelayStats{
		Published:     r.published,
		Dropped:       r.dropped,
		Pending:       len(r.ch),
		LastPublished: r.lastPublished,
	}
}

// Run publishes buffered events until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	log.Info().Msg("event relay started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(r.ch)).Msg("event relay shutting down")
			return
		case env := <-r.ch:
			pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
			if err := r.publisher.Publish(pubCtx, env); err != nil {
				log.Error().
					Err(err).
					Str("event_id", env.ID).
					Str("event_type", env.Type).
					Msg("failed to publish event")
			} else {
				r.mu.Lock()
				r.published++
				r.lastPublished = r.clock.Now()
				r.mu.Unlock()
			}
			cancel()
		}
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/turntimer/go/internal/blobstore"
	"github.com/mcdev12/turntimer/go/internal/game"
	"github.com/mcdev12/turntimer/go/internal/gateway"
	"github.com/mcdev12/turntimer/go/internal/notify"
	"github.com/mcdev12/turntimer/go/internal/stats"
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Clock       *turnclock.Clock
	Runner      *turnclock.Runner
	Ledger      *stats.App
	Table       *game.App
	Connections *gateway.ConnectionManager
	Relay       *notify.Relay
	Store       blobstore.Store

	publisher *notify.JetStreamPublisher
}

// setupServices wires store → repository → ledger, clock → runner, and the
// table session that ties them together.
func setupServices(ctx context.Context, config *Config, store blobstore.Store) (*Services, error) {
	clk := clockwork.NewRealClock()
	services := &Services{Store: store}

	services.Connections = gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), clk)
	sinks := notify.Fanout{services.Connections}

	if config.Events.NATSEnabled {
		jsCfg := notify.DefaultJetStreamConfig()
		if config.Events.NATSURL != "" {
			jsCfg.URL = config.Events.NATSURL
		}
		if config.Events.SubjectPrefix != "" {
			jsCfg.SubjectPrefix = config.Events.SubjectPrefix
		}
		jsCfg.TickSampleInterval = time.Duration(config.Events.TickSampleSeconds) * time.Second
		publisher, err := notify.NewJetStreamPublisher(jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		services.publisher = publisher
		services.Relay = notify.NewRelay(publisher, clk, 1024, config.Events.Skip...)
		sinks = append(sinks, services.Relay)
	}

	clock, err := turnclock.New(config.clockConfig(), clk, notify.LogNotifier{})
	if err != nil {
		return nil, fmt.Errorf("failed to create turn clock: %w", err)
	}
	services.Clock = clock
	services.Runner = turnclock.NewRunner(clock, clk)

	repo := stats.NewRepository(store, config.Store.Key)
	services.Ledger = stats.NewApp(repo, clk)
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	services.Ledger.Load(loadCtx)
	cancel()

	services.Table = game.NewApp(clock, services.Ledger, sinks, config.gameSettings())

	s := clock.Snapshot()
	log.Info().
		Int("players", len(s.Players)).
		Int("turn_duration", s.TurnDuration).
		Bool("events_enabled", services.Relay != nil).
		Msg("services initialized")
	return services, nil
}

// start launches the background loops. They stop when ctx is cancelled.
func (s *Services) start(ctx context.Context) {
	go s.Connections.Start(ctx)
	if s.Relay != nil {
		go s.Relay.Run(ctx)
	}
	go func() {
		if err := s.Runner.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("turn clock runner stopped")
		}
	}()
}

func (s *Services) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
}

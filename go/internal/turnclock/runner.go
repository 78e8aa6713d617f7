package turnclock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TickInterval is the length of one countdown step
const TickInterval = time.Second

// Runner drives a Clock once per interval while it is running.
// The ticker is rebuilt whenever the clock changes run state so a tick
// scheduled for the old state never lands on the new one.
type Runner struct {
	target   *Clock
	clock    clockwork.Clock
	interval time.Duration
}

// NewRunner creates a runner for target. A nil clk uses the real clock.
func NewRunner(target *Clock, clk clockwork.Clock) *Runner {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Runner{
		target:   target,
		clock:    clk,
		interval: TickInterval,
	}
}

// Run ticks the clock until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	wakeCh := make(chan struct{}, 1)
	unsubscribe := r.target.Subscribe(func(ev Event) {
		switch ev.Type {
		case EventStateChanged, EventTurnAdvanced:
			select {
			case wakeCh <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	var (
		ticker  clockwork.Ticker
		tickCh  <-chan time.Time
		running bool
		epoch   uint64
	)

	reschedule := func() {
		nowRunning, nowEpoch := r.target.runState()
		if ticker != nil && nowRunning == running && nowEpoch == epoch {
			return
		}
		stopTicker(ticker)
		ticker, tickCh = nil, nil
		running, epoch = nowRunning, nowEpoch
		if running {
			ticker = r.clock.NewTicker(r.interval)
			tickCh = ticker.Chan()
			log.Debug().Uint64("epoch", epoch).Msg("ticker scheduled")
		}
	}
	reschedule()

	log.Info().Dur("interval", r.interval).Msg("turn clock runner started")
	for {
		select {
		case <-ctx.Done():
			stopTicker(ticker)
			log.Info().Msg("turn clock runner stopped")
			return nil
		case <-wakeCh:
			reschedule()
		case <-tickCh:
			r.target.tickEpoch(epoch)
		}
	}
}

// stopTicker stops a ticker and drains a pending tick so it cannot be read later
func stopTicker(ticker clockwork.Ticker) {
	if ticker == nil {
		return
	}
	ticker.Stop()
	select {
	case <-ticker.Chan():
	default:
	}
}

package notify

import (
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/rs/zerolog/log"
)

// LogNotifier writes clock alerts to the log. Hosts without audio use it as the
// alert sink.
type LogNotifier struct{}

func (LogNotifier) NotifyLowTime(s turnclock.Snapshot) {
	log.Debug().
		Str("player", s.CurrentPlayer.Name).
		Int("time_left", s.TimeLeft).
		Msg("low time")
}

func (LogNotifier) NotifyTurnExpired(s turnclock.Snapshot) {
	log.Info().
		Str("player", s.CurrentPlayer.Name).
		Int("round", s.Round).
		Msg("time is up")
}

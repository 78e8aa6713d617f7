package turnclock

// Notifier receives the alert triggers of the clock. Implementations map them to
// audio, vibration or nothing at all. Calls happen after the clock lock is released.
type Notifier interface {
	// NotifyLowTime fires on every tick that leaves the turn inside the low-time window
	NotifyLowTime(s Snapshot)
	// NotifyTurnExpired fires once when a turn runs out on its own
	NotifyTurnExpired(s Snapshot)
}

// NopNotifier ignores all notifications
type NopNotifier struct{}

func (NopNotifier) NotifyLowTime(Snapshot)     {}
func (NopNotifier) NotifyTurnExpired(Snapshot) {}

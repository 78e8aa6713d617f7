package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/turntimer/go/internal/notify"
)

// Pinger is a backing service that can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker reports the state of a long-lived connection
type ConnectionChecker interface {
	Connected() bool
}

// RelayStatter exposes event relay counters
type RelayStatter interface {
	Stats() notify.RelayStats
}

type HealthStatus struct {
	Healthy        bool               `json:"healthy"`
	StoreConnected bool               `json:"store_connected"`
	NATSConnected  bool               `json:"nats_connected"`
	Connections    int                `json:"websocket_connections"`
	Relay          *notify.RelayStats `json:"relay,omitempty"`
	Errors         []string           `json:"errors"`
}

// HealthChecker probes the store, the event bus, and the relay. Nil
// dependencies are skipped.
type HealthChecker struct {
	store       Pinger
	nats        ConnectionChecker
	relay       RelayStatter
	connections *ConnectionManager
}

func NewHealthChecker(store Pinger, nats ConnectionChecker, relay RelayStatter, cm *ConnectionManager) *HealthChecker {
	return &HealthChecker{
		store:       store,
		nats:        nats,
		relay:       relay,
		connections: cm,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:        true,
		StoreConnected: true,
		Errors:         []string{},
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			status.StoreConnected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("store ping failed: %v", err))
		}
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if h.relay != nil {
		st := h.relay.Stats()
		status.Relay = &st
		if st.Dropped > 0 {
			status.Errors = append(status.Errors, fmt.Sprintf("relay dropped %d events", st.Dropped))
		}
	}

	if h.connections != nil {
		status.Connections = h.connections.ConnectionCount()
	}

	return status
}

// ServeHTTP writes the status as JSON, with 503 when unhealthy
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

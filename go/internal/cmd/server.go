package main

import (
	"fmt"
	"net/http"

	"github.com/mcdev12/turntimer/go/internal/gateway"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerRoutes(mux, services)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerRoutes(mux *http.ServeMux, services *Services) {
	// Table JSON API
	gateway.NewTableHandler(services.Table).RegisterRoutes(mux)

	// Live updates
	gateway.NewWebSocketHandler(services.Connections, services.Table).RegisterRoutes(mux)

	mux.Handle("GET /health/details", newHealthChecker(services))
}

func newHealthChecker(services *Services) *gateway.HealthChecker {
	var (
		store gateway.Pinger
		nats  gateway.ConnectionChecker
		relay gateway.RelayStatter
	)
	if p, ok := services.Store.(gateway.Pinger); ok {
		store = p
	}
	if services.publisher != nil {
		nats = services.publisher
	}
	if services.Relay != nil {
		relay = services.Relay
	}
	return gateway.NewHealthChecker(store, nats, relay, services.Connections)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// Package api provides the HTTP API of the donations backend. It exposes a
// single provisioning endpoint that turns a donation request into a monthly
// subscription on the billing service.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/donations-backend/donations"
	"go.vocdoni.io/dvote/log"
)

// Config holds the configuration of the API server.
type Config struct {
	Host string
	Port int
	// Provisioner creates the donation subscriptions. When nil the
	// provisioning endpoint answers 503.
	Provisioner *donations.Provisioner
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	// When set, OPTIONS preflights are answered by the CORS handler instead
	// of getting a 405.
	CORSOrigins []string
}

// API type represents the API HTTP server.
type API struct {
	host        string
	port        int
	router      *chi.Mux
	server      *http.Server
	provisioner *donations.Provisioner
	corsOrigins []string
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	a := &API{
		host:        conf.Host,
		port:        conf.Port,
		provisioner: conf.Provisioner,
		corsOrigins: conf.CORSOrigins,
	}
	a.router = a.initRouter()
	return a
}

// Router returns the HTTP handler of the API.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	a.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.host, a.port),
		Handler: a.router,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down, waiting for in flight requests
// until ctx is done.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() *chi.Mux {
	r := chi.NewRouter()
	if len(a.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300, // Maximum value not ignored by any of major browsers
		}).Handler)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(".")); err != nil {
			log.Warnw("failed to write ping response", "error", err)
		}
	})
	// the handler checks the method itself, every other method gets a 405
	for _, endpoint := range []string{createSubscriptionEndpoint, netlifyCreateSubscriptionEndpoint} {
		log.Infow("new route", "method", "POST", "path", endpoint)
		r.HandleFunc(endpoint, a.createSubscriptionHandler)
	}
	return r
}

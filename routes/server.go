// Package routes is the HTTP API of the serve command.
package routes

import (
	"encoding/json"
	"net/http"
	"sync"

	"pixshift/config"
	"pixshift/job"
	"pixshift/logger"
	"pixshift/metrics"
	"pixshift/store"
	"pixshift/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers holds the state shared by the API endpoints.
type Handlers struct {
	Config   config.Config
	Registry *job.Registry
	Batch    *job.Batch
	Settings *store.SettingsStore
	Events   *Hub
	Client   *http.Client

	converting sync.Mutex
}

// NewHandlers wires a registry and batch runner whose progress feeds the event hub.
func NewHandlers(cfg config.Config, settings *store.SettingsStore) *Handlers {
	hub := NewHub()
	reg := job.NewRegistry()
	return &Handlers{
		Config:   cfg,
		Registry: reg,
		Batch:    job.NewBatch(reg, &job.Scheduler{Progress: hub.Publish}),
		Settings: settings,
		Events:   hub,
		Client:   &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Routes returns the API router. /health is always public; everything else
// needs a token when a token secret is configured.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.HandleFunc("/health", HealthHandler)

	r.Group(func(r chi.Router) {
		if h.Config.TokenSecret != "" {
			cfg := utils.VerifyConfig{
				SecretKey:      []byte(h.Config.TokenSecret),
				ExpectedIssuer: h.Config.TokenIssuer,
			}
			r.Use(func(next http.Handler) http.Handler { return RequireToken(cfg, next) })
		} else {
			logger.Warn("No token secret configured, API authentication is disabled")
		}

		r.HandleFunc("/version", VersionHandler)
		r.HandleFunc("/files", h.FilesHandler)
		r.HandleFunc("/files/clear-converted", h.ClearConvertedHandler)
		r.HandleFunc("/files/{id}", h.FileHandler)
		r.HandleFunc("/convert", h.ConvertHandler)
		r.HandleFunc("/events", h.EventsHandler)
		r.HandleFunc("/settings", h.SettingsHandler)
		r.HandleFunc("/credentials", h.CredentialsHandler)
		r.Handle("/metrics", metrics.Handler())
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// errorResponse is the JSON body of API errors that carry more than a message.
type errorResponse struct {
	Error string `json:"error"`
}

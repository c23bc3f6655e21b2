// Package api provides the HTTP surface and event routing for Slack.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/maven/internal/middleware"
	"github.com/ashureev/maven/internal/slackhost"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the Slack HTTP endpoints. Each endpoint acknowledges with
// 200 before handing the event to the Router.
type Handler struct {
	router *Router
	health Pinger
}

// NewHandler creates a new Handler.
func NewHandler(router *Router, health Pinger) *Handler {
	return &Handler{router: router, health: health}
}

// Routes mounts the endpoints. The Slack routes sit behind signature
// verification with signingSecret; /health does not.
func (h *Handler) Routes(r chi.Router, signingSecret string) {
	r.Get("/health", h.Health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SlackSignature(signingSecret))
		r.Post("/slack/commands", h.Commands)
		r.Post("/slack/interactivity", h.Interactivity)
	})
}

// Commands receives form-encoded slash commands.
func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	cmd, err := slackhost.ParseSlashCommand(r)
	if err != nil {
		slog.Warn("Rejected slash command", "error", err)
		Error(w, http.StatusBadRequest, "invalid slash command")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.router.HandleCommand(r.Context(), cmd)
}

// Interactivity receives block actions and view submissions in the
// "payload" form field.
func (h *Handler) Interactivity(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "invalid form body")
		return
	}
	in, err := slackhost.ParseInteraction([]byte(r.PostForm.Get("payload")))
	if err != nil {
		slog.Warn("Rejected interaction payload", "error", err)
		Error(w, http.StatusBadRequest, "invalid interaction payload")
		return
	}

	w.WriteHeader(http.StatusOK)
	h.router.HandleInteraction(r.Context(), in)
}

// Health reports whether the session store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

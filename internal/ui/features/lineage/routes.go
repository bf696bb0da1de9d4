// Package lineage provides the lineage viewer feature for the UI.
package lineage

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/ui/notifier"
)

// SetupRoutes configures routes for the lineage feature.
func SetupRoutes(
	router chi.Router,
	eng *engine.Engine,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	handlers := NewHandlers(eng, sessionStore, notify, logger, isDev)

	router.Get("/", handlers.Home)
	router.Route("/lineage", func(r chi.Router) {
		r.Get("/", handlers.LineagePage)
		r.Get("/updates", handlers.Updates)
		r.Post("/select", handlers.Select)
		r.Post("/toggle", handlers.Toggle)
		r.Post("/clear", handlers.Clear)
		r.Post("/refresh", handlers.Refresh)
	})
	router.Get("/api/scene", handlers.SceneJSON)

	return nil
}

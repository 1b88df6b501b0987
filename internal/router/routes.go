package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is
// enabled, so the cmd-line "h" toggle can be flipped live without a
// restart.
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.log != nil && h.log.IsHTTPLoggingEnabled() {
			logged.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// corsMiddleware allows the configured frontend origin to call the API
// with credentials, per spec §6's Configuration section.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router assembles the Group Router's HTTP surface from spec §6's
// endpoint table.
func (h *Handlers) Router(frontendOrigin string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware(frontendOrigin))

	r.Get("/healthz", h.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(h.identity.RequireAuth)

		r.Post("/groups", h.handleCreateGroup)
		r.Get("/groups/me", h.handleListMyGroups)
		r.Get("/groups/bookmarks", h.handleGetBookmarks)
		r.Put("/groups/bookmarks", h.handleSetBookmarks)

		r.Patch("/groups/{id}", h.handleRenameGroup)
		r.Post("/groups/{id}/participants", h.handleAddParticipant)
		r.Patch("/groups/{id}/participants/{pid}", h.handleUpdateParticipant)
		r.Delete("/groups/{id}/participants/{pid}", h.handleRemoveParticipant)
		r.Post("/groups/{id}/participants/commit", h.handleCommitParticipants)

		r.Post("/groups/{id}/spin", h.handleRequestSpin)
		r.Get("/groups/{id}/history", h.handleListHistory)
		r.Post("/groups/{id}/history/{spinId}/save", h.handleSaveSpin)
		r.Delete("/groups/{id}/history/{spinId}", h.handleDiscardSpin)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.identity.AttachOptional)

		r.Get("/groups/{id}", h.handleGetGroup)
		r.Get("/groups/{id}/participants", h.handleGetParticipants)
		r.Get("/groups/{id}/ws", h.handleWebSocket)
		r.Get("/groups/{id}/qr", h.handleQRCode)
	})

	return r
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

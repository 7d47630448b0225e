package handlers

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/komronbek/timetable/internal/database"
)

// TimetableStore is the read side of the timetable database used by the handlers
type TimetableStore interface {
	LookupLevel(ctx context.Context, level string) (*database.Table, error)
	Levels(ctx context.Context) ([]string, error)
	PingContext(ctx context.Context) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store        TimetableStore
	templates    map[string]*template.Template
	queryTimeout time.Duration
}

// New creates a new Handlers instance
func New(store TimetableStore, templates map[string]*template.Template, queryTimeout time.Duration) *Handlers {
	return &Handlers{
		store:        store,
		templates:    templates,
		queryTimeout: queryTimeout,
	}
}

// PageData contains common data for all pages
type PageData struct {
	Title   string
	Content any
}

// render renders a page template inside the base layout with the given status
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	tmpl, ok := h.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pageData := PageData{
		Title:   "Timetable",
		Content: data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", pageData); err != nil {
		// Headers are already sent, so only the log records the failure
		log.Error().
			Err(err).
			Str("template", name).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Failed to render template")
	}
}

// queryContext bounds a database call made on behalf of r
func (h *Handlers) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.queryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.queryTimeout)
}

// internalError logs err and sends a generic 500 without leaking details
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log.Error().
		Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

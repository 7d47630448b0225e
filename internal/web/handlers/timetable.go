package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/komronbek/timetable/internal/database"
)

// Messages shown on the timetable page
const (
	MsgLoading      = "Loading timetable..."
	MsgNoData       = "No data found for this level."
	MsgMissingLevel = "Please select a level."
	MsgInvalidLevel = "Invalid level."
)

// IndexPage is the data for the level selection form
type IndexPage struct {
	// Levels known to the database; empty means the form falls back to a text input
	Levels []string
}

// TimetablePage is the data for the timetable view
type TimetablePage struct {
	Level   string
	Table   *database.Table
	Message string
	// RefreshURL is set on the loading page and points at the lookup for Level
	RefreshURL string
}

// Index renders the level selection form
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	levels, err := h.store.Levels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list levels, falling back to free text input")
	}

	h.render(w, r, http.StatusOK, "index.html", IndexPage{Levels: levels})
}

// IndexSubmit accepts the selection form and renders a loading page that
// forwards the browser to the lookup. It does not query the database.
func (h *Handlers) IndexSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	level := strings.TrimSpace(r.PostForm.Get("level"))
	if !h.validLevel(w, r, level) {
		return
	}

	h.render(w, r, http.StatusOK, "timetable.html", TimetablePage{
		Level:      level,
		Table:      &database.Table{},
		Message:    MsgLoading,
		RefreshURL: "/timetable?" + url.Values{"level": {level}}.Encode(),
	})
}

// Timetable looks up the rows for the level in the query string
func (h *Handlers) Timetable(w http.ResponseWriter, r *http.Request) {
	level := strings.TrimSpace(r.URL.Query().Get("level"))
	if !h.validLevel(w, r, level) {
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	table, err := h.store.LookupLevel(ctx, level)
	if err != nil {
		h.internalError(w, r, err, "Failed to look up timetable")
		return
	}

	page := TimetablePage{Level: level, Table: table}
	if table.Empty() {
		page.Message = MsgNoData
	}
	h.render(w, r, http.StatusOK, "timetable.html", page)
}

// validLevel renders a 400 timetable page and returns false when level is unusable
func (h *Handlers) validLevel(w http.ResponseWriter, r *http.Request, level string) bool {
	err := ValidateLevel(level)
	if err == nil {
		return true
	}

	page := TimetablePage{Message: MsgInvalidLevel}
	var verr ValidationError
	if errors.As(err, &verr) {
		page.Message = verr.Message
	}
	h.render(w, r, http.StatusBadRequest, "timetable.html", page)
	return false
}

// Healthz reports whether the database is reachable
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.store.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/komronbek/timetable/internal/config"
	"github.com/komronbek/timetable/internal/web/handlers"
	"github.com/komronbek/timetable/internal/web/middleware"
)

//go:embed templates/*
var templatesFS embed.FS

// Page templates, each parsed together with the base layout
var pageTemplates = []string{
	"index.html",
	"timetable.html",
}

// Server represents the web server
type Server struct {
	cfg        config.ServerConfig
	allowedNet *net.IPNet
	router     *chi.Mux
	templates  map[string]*template.Template
	handlers   *handlers.Handlers
}

// NewServer creates a new web server backed by store
func NewServer(store handlers.TimetableStore, cfg *config.Config) (*Server, error) {
	allowedNet, err := cfg.Server.AllowedNet()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg.Server,
		allowedNet: allowedNet,
		router:     chi.NewRouter(),
	}

	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	s.handlers = handlers.New(store, s.templates, cfg.Database.QueryTimeout)
	s.setupRoutes()

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// templateFuncMap returns the common template functions
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// loadTemplates parses each page template with the base layout
func (s *Server) loadTemplates() error {
	s.templates = make(map[string]*template.Template)
	funcMap := templateFuncMap()

	for _, page := range pageTemplates {
		tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
			"templates/base.html",
			"templates/"+page,
		)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}
	return nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(s.allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)

	h := s.handlers

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.cfg.Timeouts.Request))

		r.Get("/", h.Index)
		r.Post("/", h.IndexSubmit)
		r.Get("/timetable", h.Timetable)
		r.Get("/healthz", h.Healthz)
	})
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Addr()

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeouts.Read,
		WriteTimeout: s.cfg.Timeouts.Write,
		IdleTimeout:  s.cfg.Timeouts.Idle,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Package server exposes search, discovery and pitch conversations over HTTP.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/discovery"
	"github.com/TobiSchelling/storyatlas/internal/jordi"
	"github.com/TobiSchelling/storyatlas/internal/search"
)

//go:embed templates/*
var templateFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Options tunes response caching. Zero values take defaults.
type Options struct {
	CacheTTL time.Duration
}

// Server is the HTTP API for the story archive.
type Server struct {
	db         *database.DB
	search     *search.Engine
	summarizer *discovery.Summarizer
	pitches    *jordi.Service

	cache  *gocache.Cache
	page   *template.Template
	index  template.HTML
	router chi.Router
}

// New creates a new Server.
func New(db *database.DB, engine *search.Engine, summarizer *discovery.Summarizer, pitches *jordi.Service, opts Options) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	source, err := templateFS.ReadFile("templates/index.md")
	if err != nil {
		return nil, fmt.Errorf("reading index page: %w", err)
	}

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		db:         db,
		search:     engine,
		summarizer: summarizer,
		pitches:    pitches,
		cache:      gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		page:       page,
		index:      renderMarkdown(string(source)),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/stories", s.handleStories)
	r.Get("/discovery_summary", s.handleDiscoverySummary)
	r.Post("/jordi", s.handleJordi)
	r.Get("/publications", s.handlePublications)
	r.Get("/publication-timerange", s.handlePublicationTimerange)
	r.Get("/status", s.handleStatus)
	s.router = r
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Generation requests can take as long as the LLM timeout.
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

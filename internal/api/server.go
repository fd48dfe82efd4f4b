// Package api serves the study catalog over HTTP: full-text search, record
// lookup, stats, and retrieval-augmented answers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Puumanamana/RAG-SRA/internal/config"
	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/errors"
	"github.com/Puumanamana/RAG-SRA/internal/query"
	"github.com/Puumanamana/RAG-SRA/internal/search"
	"github.com/Puumanamana/RAG-SRA/internal/service"
)

// Server owns the HTTP stack and the resources behind it: the catalog
// database, the search index, and the ask engine.
type Server struct {
	router          *mux.Router
	server          *http.Server
	searchService   *service.SearchService
	metadataService *service.MetadataService
	engine          *query.Engine
	db              *database.DB
	index           *search.Index
}

// NewServer opens the catalog and index named in cfg and wires the API
// around them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Initialize(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	index, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	s := &Server{
		router:          mux.NewRouter(),
		searchService:   service.NewSearchService(db, index),
		metadataService: service.NewMetadataService(db),
		engine:          query.NewEngine(index, cfg),
		db:              db,
		index:           index,
	}

	s.setupRoutes()
	s.router.Use(corsMiddleware)
	s.router.Use(loggingMiddleware)
	s.router.Use(jsonMiddleware)

	s.server = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/search", s.handleSearch).Methods("GET", "POST")
	api.HandleFunc("/studies", s.handleListStudies).Methods("GET")
	api.HandleFunc("/studies/{sra_id}", s.handleGetStudy).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/ask", s.handleAsk).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and releases the backing stores.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	s.engine.Close()
	if err := s.index.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// Middleware functions

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  status,
	})
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.IsKind(err, errors.KindValidation):
		return http.StatusBadRequest
	case errors.IsKind(err, errors.KindLLM):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleRoot returns API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "RAG-SRA API",
		"version":     "1.0.0",
		"description": "Search and question answering over SRA study metadata",
		"endpoints": map[string]string{
			"search":  "/api/v1/search",
			"studies": "/api/v1/studies",
			"stats":   "/api/v1/stats",
			"ask":     "/api/v1/ask",
			"health":  "/api/v1/health",
		},
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := s.searchService.Health(r.Context()); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, health)
}

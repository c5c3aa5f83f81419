// Package server assembles the storage engine, the class repositories and the
// HTTP API from a configuration.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docrepo/pkg/api"
	"github.com/adfharrison1/go-docrepo/pkg/config"
	"github.com/adfharrison1/go-docrepo/pkg/logger"
	"github.com/adfharrison1/go-docrepo/pkg/repository"
	"github.com/adfharrison1/go-docrepo/pkg/storage"
)

// Server holds references to storage, router, etc.
type Server struct {
	cfg      *config.Config
	router   *mux.Router
	dbEngine *storage.StorageEngine
	registry *repository.Registry
	log      *slog.Logger
}

// NewServer creates a new instance of Server. Extra storage options are
// applied after the ones derived from cfg.
func NewServer(cfg *config.Config, options ...storage.StorageOption) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	storageOptions := []storage.StorageOption{storage.WithDataFile(cfg.DataFile)}
	if cfg.DefaultLimit > 0 {
		storageOptions = append(storageOptions, storage.WithDefaultLimit(cfg.DefaultLimit))
	}
	if cfg.BackgroundSave > 0 {
		storageOptions = append(storageOptions, storage.WithBackgroundSave(cfg.BackgroundSave))
	}
	storageOptions = append(storageOptions, options...)

	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		dbEngine: storage.NewStorageEngine(storageOptions...),
		log:      logger.Get(),
	}

	s.registry = repository.NewRegistry(s.dbEngine, repository.WithLogger(s.log))
	for _, class := range cfg.Classes {
		s.registry.Register(class.Name, class.Options()...)
	}
	if err := s.ensureIndexes(); err != nil {
		return nil, err
	}

	api.NewHandler(s.registry, s.dbEngine, cfg.MasterKey).RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(s.requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Warn("no route found", "method", r.Method, "path", r.URL.Path)
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})

	return s, nil
}

// ensureIndexes creates the indexes declared per class. Indexes that already
// exist are kept.
func (s *Server) ensureIndexes() error {
	for _, class := range s.cfg.Classes {
		existing := make(map[string]bool)
		for _, field := range s.dbEngine.GetIndexes(class.Name) {
			existing[field] = true
		}
		for _, field := range class.Indexes {
			if existing[field] {
				continue
			}
			if err := s.dbEngine.CreateIndex(class.Name, field); err != nil {
				return fmt.Errorf("failed to create index %s.%s: %w", class.Name, field, err)
			}
		}
	}
	return nil
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs the method, URL path, status and duration for each request.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// InitDB loads the snapshot in filename, if any
func (s *Server) InitDB(filename string) error {
	if err := s.dbEngine.LoadFromFile(filename); err != nil {
		s.log.Error("could not load database", "file", filename, "error", err)
		return err
	}
	if err := s.ensureIndexes(); err != nil {
		return err
	}
	s.log.Info("database loaded", "file", filename, "classes", len(s.dbEngine.Classes()))
	return nil
}

// SaveDB saves the current database state to file
func (s *Server) SaveDB(filename string) error {
	if err := s.dbEngine.SaveToFile(filename); err != nil {
		s.log.Error("could not save database", "file", filename, "error", err)
		return err
	}
	s.log.Info("database saved", "file", filename)
	return nil
}

// StartBackgroundWorkers starts the periodic snapshot worker, when configured
func (s *Server) StartBackgroundWorkers() {
	s.dbEngine.StartBackgroundWorkers()
}

// StopBackgroundWorkers stops background workers
func (s *Server) StopBackgroundWorkers() {
	s.dbEngine.StopBackgroundWorkers()
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Engine returns the storage engine
func (s *Server) Engine() *storage.StorageEngine {
	return s.dbEngine
}

// Repository returns the repository serving className
func (s *Server) Repository(className string) (*repository.Repository, bool) {
	return s.registry.Repository(className)
}

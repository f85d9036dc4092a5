package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dshills/nnbench/core"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes stored benchmark reports and on-demand runs over HTTP
type Server struct {
	store      core.ReportStore
	factory    core.LocatorFactory
	router     *mux.Router
	httpServer *http.Server
	config     ServerConfig
	defaults   core.RunConfig
	logger     *zap.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxPoints caps the dataset size a POST /reports run may request
	MaxPoints int `json:"max_points" yaml:"max_points"`

	// MaxQueries and MaxK cap the query phase of an on-demand run
	MaxQueries int `json:"max_queries" yaml:"max_queries"`
	MaxK       int `json:"max_k" yaml:"max_k"`

	// RunTimeout bounds a single on-demand run
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxPoints:       2000000,
		MaxQueries:      100000,
		MaxK:            1000,
		RunTimeout:      5 * time.Minute,
	}
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and run logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunDefaults sets the run configuration that POST /reports bodies override
func WithRunDefaults(cfg core.RunConfig) Option {
	return func(s *Server) {
		s.defaults = cfg
	}
}

// NewServer creates a new API server
func NewServer(store core.ReportStore, factory core.LocatorFactory, config ServerConfig, opts ...Option) *Server {
	s := &Server{
		store:    store,
		factory:  factory,
		config:   config,
		defaults: core.DefaultRunConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonContentTypeMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/locators", s.handleListLocators).Methods("GET")

	// Report endpoints
	s.router.HandleFunc("/reports", s.handleListReports).Methods("GET")
	s.router.HandleFunc("/reports", s.handleRunBenchmark).Methods("POST")
	s.router.HandleFunc("/reports/{id}", s.handleGetReport).Methods("GET")
	s.router.HandleFunc("/reports/{id}", s.handleDeleteReport).Methods("DELETE")
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("starting nnbench API server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware functions
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Error response helper
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

// JSON response helper
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON"}`))
		return
	}

	w.WriteHeader(code)
	w.Write(response)
}

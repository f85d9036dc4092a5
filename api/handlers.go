package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dshills/nnbench/benchmark"
	"github.com/dshills/nnbench/core"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthResponse is the health check payload
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// LocatorsResponse lists the registered locator names
type LocatorsResponse struct {
	Locators []string `json:"locators"`
	Default  []string `json:"default"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	}
	s.respondWithJSON(w, http.StatusOK, response)
}

// handleListLocators returns every locator the factory can build
func (s *Server) handleListLocators(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, LocatorsResponse{
		Locators: s.factory.Names(),
		Default:  s.defaults.Locators,
	})
}

// handleListReports returns report summaries, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListReports(r.Context())
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusOK, list)
}

// handleGetReport returns a single stored report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := s.store.LoadReport(r.Context(), id)
	if err != nil {
		s.respondWithError(w, statusFor(err), err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusOK, report)
}

// handleDeleteReport removes a stored report
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.DeleteReport(r.Context(), id); err != nil {
		s.respondWithError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunBenchmark runs a benchmark with the posted configuration, stores
// the report and returns it. Fields missing from the body keep the server
// defaults.
func (s *Server) handleRunBenchmark(w http.ResponseWriter, r *http.Request) {
	cfg := s.defaults
	cfg.Locators = append([]string(nil), s.defaults.Locators...)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := core.ValidateRunConfig(cfg); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.checkLimits(cfg); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	runner := benchmark.NewRunner(s.factory, cfg, benchmark.WithLogger(s.logger))
	report, err := runner.Run(ctx)
	if err != nil {
		s.respondWithError(w, statusFor(err), err.Error())
		return
	}

	if err := s.store.SaveReport(ctx, *report); err != nil {
		s.logger.Error("failed to save report", zap.String("run_id", report.ID), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithJSON(w, http.StatusCreated, report)
}

// checkLimits rejects runs larger than the server allows
func (s *Server) checkLimits(cfg core.RunConfig) error {
	limits := []struct {
		name       string
		value, max int
	}{
		{"num_points", cfg.NumPoints, s.config.MaxPoints},
		{"num_queries", cfg.NumQueries, s.config.MaxQueries},
		{"k", cfg.K, s.config.MaxK},
	}
	for _, l := range limits {
		if l.max > 0 && l.value > l.max {
			return fmt.Errorf("%s %d exceeds the server limit of %d", l.name, l.value, l.max)
		}
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidConfig), errors.Is(err, core.ErrUnknownLocator):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

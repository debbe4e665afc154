// Package api exposes the calculators over HTTP.
// Handlers translate requests into runtime calls; they never compute costs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"buildcost/internal/app"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// Server is the API server
type Server struct {
	app     *app.App
	router  chi.Router
	version string
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer creates a server over a started runtime
func NewServer(a *app.App, version string) *Server {
	s := &Server{
		app:     a,
		router:  chi.NewRouter(),
		version: version,
		logger:  logging.Component(a.Logger, "api"),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/calculators", func(r chi.Router) {
		r.Get("/", s.handleListCalculators)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/calculate", s.handleCalculate)
			r.Get("/state", s.handleGetState)
			r.Delete("/state", s.handleDeleteState)
			r.Get("/export", s.handleExport)
		})
	})

	r.Route("/pricing", func(r chi.Router) {
		r.Get("/price", s.handlePrice)
		r.Put("/region", s.handleSwitchRegion)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)
	body := ErrorBody{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: RequestIDFrom(r.Context()),
	}
	var e *apperrors.Error
	if errors.As(err, &e) {
		body.Message = e.Message
		if e.Cause != nil {
			body.Message += ": " + e.Cause.Error()
		}
	}
	for _, f := range apperrors.FieldsOf(err) {
		body.Fields = append(body.Fields, FieldError{Field: f.Field, Message: f.Message})
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, ErrorResponse{Error: body}, status)
}

// classify maps an error to its reported code and status. User input
// errors win even when a loader wrapped them.
func classify(err error) (apperrors.Type, int) {
	if apperrors.IsType(err, apperrors.TypeValidation) {
		return apperrors.TypeValidation, http.StatusBadRequest
	}
	t := apperrors.TypeOf(err)
	switch t {
	case apperrors.TypeNotFound, apperrors.TypePricing:
		return t, http.StatusNotFound
	case apperrors.TypeNotReady:
		return t, http.StatusServiceUnavailable
	case apperrors.TypeDataLoad:
		return t, http.StatusBadGateway
	case apperrors.TypeStale:
		return t, http.StatusConflict
	case apperrors.TypeExport:
		return t, http.StatusUnprocessableEntity
	default:
		return t, http.StatusInternalServerError
	}
}

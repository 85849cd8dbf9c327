// Package httpapi exposes the classification pipeline over HTTP: a health
// endpoint and a per-block classification endpoint, built on gorilla/mux and
// instrumented with otel spans, the way the teacher's internal/api server
// wires routes and middleware.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/txplain/blocktree/internal/pipeline"
)

var tracer = otel.Tracer("github.com/txplain/blocktree/internal/httpapi")

// Server exposes pipeline operations over HTTP.
type Server struct {
	router   *mux.Router
	pipeline *pipeline.Pipeline
	address  string
	server   *http.Server
	log      zerolog.Logger
}

// NewServer builds a Server bound to p, listening on address.
func NewServer(address string, p *pipeline.Pipeline, logger zerolog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: p,
		address:  address,
		log:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/block/{number}", s.handleClassifyBlock).Methods("POST")
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{Addr: s.address, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleClassifyBlock(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "httpapi.ClassifyBlock")
	defer span.End()

	vars := mux.Vars(r)
	blockNumber, err := strconv.ParseUint(vars["number"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block number")
		return
	}
	span.SetAttributes(attribute.Int64("block.number", int64(blockNumber)))
	w.Header().Set("X-Trace-Id", traceID(ctx))

	blockTree, metrics, err := s.pipeline.ClassifyBlock(ctx, blockNumber)
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"block_tree": blockTree,
		"metrics":    metrics,
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// traceID surfaces the active span's trace ID so a caller can correlate a
// response with server-side tracing, falling back to empty when unset (e.g.
// no exporter configured).
func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

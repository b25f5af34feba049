// Package server wires the Lodis command dispatcher to HTTP: a single
// route, POST /{command}/{name}, that reads a length-prefixed argument
// frame body, dispatches through lodis.Dispatch, and writes back the
// wire response. Routing is github.com/go-chi/chi/v5; request
// correlation uses github.com/google/uuid; command counts and
// latencies are exposed at GET /metrics via
// github.com/prometheus/client_golang.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rsms/go-log"

	"github.com/lodis-io/lodis"
)

// Server is the Lodis HTTP front end.
type Server struct {
	Logger *log.Logger

	dispatcher *lodis.Dispatcher
	router     chi.Router
	httpServer *http.Server

	commandCounter   *prometheus.CounterVec
	commandHistogram *prometheus.HistogramVec
}

// maxBodySize bounds a single request body. There is no provision for
// a command with an unbounded argument list, and an unbounded body
// read is a trivial resource-exhaustion vector.
const maxBodySize = 64 << 20 // 64 MiB

// New builds a Server dispatching onto d, listening at addr.
func New(d *lodis.Dispatcher, addr string, logger *log.Logger) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		Logger:     logger,
		dispatcher: d,
		commandCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lodis",
			Name:      "commands_total",
			Help:      "Commands processed, by command and status.",
		}, []string{"command", "status"}),
		commandHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lodis",
			Name:      "command_duration_seconds",
			Help:      "Command latency in seconds, by command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	registry.MustRegister(s.commandCounter, s.commandHistogram)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Post("/{command}/{name}", s.handleCommand)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router = r

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// ListenAndServe starts accepting connections; it returns
// http.ErrServerClosed after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	if s.Logger != nil {
		s.Logger.Info("listening on %s", s.httpServer.Addr)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and waits (bounded by ctx)
// for in-flight requests to finish -- a request that is mid-batch must
// complete to either success or storage failure, never be aborted by
// shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ctxKey int

const ctxKeyRequestID ctxKey = 0

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleCommand implements POST /{command}/{name}: parse path and body,
// dispatch, write the wire response. A protocol-level failure (bad
// path, unreadable body) is reported as a 400; everything past that
// point -- including a command-level error like "field isn't an
// integer" -- is reported as a 200 with an Error-status wire response,
// since it's the command layer, not the transport, that rejected it.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cmd := chi.URLParam(r, "command")
	name := chi.URLParam(r, "name")
	reqID, _ := r.Context().Value(ctxKeyRequestID).(string)

	if name == "" {
		s.writeProtocolError(w, lodis.ErrBadArgument)
		return
	}
	if r.ContentLength < 0 {
		s.writeProtocolError(w, lodis.ErrProtocol)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		s.writeProtocolError(w, lodis.ErrProtocol)
		return
	}
	if len(body) > maxBodySize {
		s.writeProtocolError(w, lodis.ErrProtocol)
		return
	}

	args, err := lodis.ParseArgs(body)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}

	result, cmdErr := lodis.Dispatch(s.dispatcher, cmd, []byte(name), args)

	status := "ok"
	if cmdErr != nil {
		status = "error"
		if s.Logger != nil {
			s.Logger.Warn("[%s] %s %s: %s", reqID, cmd, name, cmdErr)
		}
	}
	s.commandCounter.WithLabelValues(cmd, status).Inc()
	s.commandHistogram.WithLabelValues(cmd).Observe(time.Since(start).Seconds())

	resp := lodis.EncodeResponse(make([]byte, 0, 64), result, cmdErr)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func (s *Server) writeProtocolError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

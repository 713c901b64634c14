// Package httpapi is a thin HTTP front-end over the engine: CSV bar upload,
// single backtest runs, and parameter sweeps. Grounded on the teacher's
// mux-router server shape (request-ID and logging middleware, ServerConfig,
// graceful shutdown) adapted from a read-only market-data API to a
// compute-on-request backtest/optimize API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/backtestengine/internal/apierr"
	"github.com/sawpanic/backtestengine/internal/backtest"
	"github.com/sawpanic/backtestengine/internal/bars"
	"github.com/sawpanic/backtestengine/internal/domain"
	"github.com/sawpanic/backtestengine/internal/indicators"
	"github.com/sawpanic/backtestengine/internal/ingest"
	"github.com/sawpanic/backtestengine/internal/metrics"
	"github.com/sawpanic/backtestengine/internal/optimize"
	"github.com/sawpanic/backtestengine/internal/strategy"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// topNResults is the external API's ranked-result cap; the coordinator
// itself (internal/optimize) always returns every combination.
const topNResults = 50

// Server is the engine's HTTP front-end. One Server instance holds whatever
// bar series was most recently uploaded via POST /bars, shared read-only by
// subsequent backtest/optimize requests.
type Server struct {
	router  *mux.Router
	httpSrv *http.Server
	metrics *metrics.Registry

	mu    chan struct{} // 1-buffered mutex-as-channel guarding store/bank swap
	store *bars.Store
	bank  *indicators.Bank
}

// Config holds server bind/timeout settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds a Server and wires its routes.
func NewServer(cfg Config, reg *metrics.Registry) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		metrics: reg,
		mu:      make(chan struct{}, 1),
	}
	s.mu <- struct{}{}
	s.setupRoutes()
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/bars", s.handleUploadBars).Methods(http.MethodPost)
	s.router.HandleFunc("/backtest", s.handleBacktest).Methods(http.MethodPost)
	s.router.HandleFunc("/optimize", s.handleOptimize).Methods(http.MethodPost)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		log.Info().
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func requestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUploadBars(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	series, err := ingest.FromCSV(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	store := bars.NewStore(series)
	bank := indicators.NewBank(store)

	<-s.mu
	s.store, s.bank = store, bank
	s.mu <- struct{}{}

	writeJSON(w, http.StatusOK, map[string]int{"bars": series.Len()})
}

type backtestRequest struct {
	Strategy domain.Strategy `json:"strategy"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	store, bank, err := s.currentState()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierr.Wrap(apierr.CodeMalformedRequest, "decoding backtest request", err))
		return
	}

	start := time.Now()
	res, err := runOne(store, bank, req.Strategy)
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.BacktestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type optimizeRequest struct {
	Strategy           domain.Strategy                `json:"strategy"`
	OptimizationRanges map[string]optimize.ParamRange `json:"optimization_ranges"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	store, bank, err := s.currentState()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierr.Wrap(apierr.CodeMalformedRequest, "decoding optimize request", err))
		return
	}

	if err := bank.Warm(req.Strategy); err != nil {
		writeError(w, r, apierr.Wrap(apierr.CodeInvalidCondition, "warming indicator bank", err))
		return
	}

	runID := requestID(r.Context())
	start := time.Now()
	var progressMu sync.Mutex
	lastProcessed := 0
	results := optimize.Run(store, bank, req.Strategy, req.OptimizationRanges, optimize.Options{
		Progress: func(processed, total int, _ time.Duration) {
			if s.metrics != nil {
				progressMu.Lock()
				delta := processed - lastProcessed
				if delta > 0 {
					lastProcessed = processed
				}
				progressMu.Unlock()
				s.metrics.RecordProgress(runID, processed, total, delta)
			}
		},
	})
	if s.metrics != nil {
		s.metrics.OptimizeDuration.WithLabelValues(runID).Observe(time.Since(start).Seconds())
	}
	kept, dropped := optimize.Truncate(results, topNResults)
	if dropped > 0 {
		log.Warn().Str("request_id", runID).Int("dropped", dropped).Msg("optimize results truncated")
	}
	writeJSON(w, http.StatusOK, kept)
}

func runOne(store *bars.Store, bank *indicators.Bank, strat domain.Strategy) (domain.Result, error) {
	if err := bank.Warm(strat); err != nil {
		return domain.Result{}, apierr.Wrap(apierr.CodeInvalidCondition, "warming indicator bank", err)
	}
	ctx := &strategy.Ctx{Primary: store.Primary(), Store: store, Bank: bank}
	entry, err := strategy.EntrySignal(ctx, strat)
	if err != nil {
		return domain.Result{}, apierr.Wrap(apierr.CodeInvalidCondition, "evaluating entry conditions", err)
	}
	exit, err := strategy.ExitSignal(ctx, strat)
	if err != nil {
		return domain.Result{}, apierr.Wrap(apierr.CodeInvalidCondition, "evaluating exit conditions", err)
	}
	slTicks, hasSL, tpTicks, hasTP := strategy.SLTPTicks(strat)
	return backtest.Run(backtest.Inputs{
		Primary:      store.Primary(),
		EntrySignals: entry,
		ExitSignals:  exit,
		SLTicks:      slTicks,
		HasSL:        hasSL,
		TPTicks:      tpTicks,
		HasTP:        hasTP,
	}), nil
}

func (s *Server) currentState() (*bars.Store, *indicators.Bank, error) {
	<-s.mu
	store, bank := s.store, s.bank
	s.mu <- struct{}{}
	if store == nil {
		return nil, nil, apierr.New(apierr.CodeMalformedRequest, "no bars uploaded yet; POST /bars first")
	}
	return store, bank, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		log.Warn().Str("request_id", requestID(r.Context())).Str("code", string(ae.Code)).Msg(ae.Error())
		writeJSON(w, apierr.StatusCode(ae.Code), map[string]string{"code": string(ae.Code), "message": ae.Message})
		return
	}
	log.Error().Str("request_id", requestID(r.Context())).Err(err).Msg("unhandled error")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "internal_error", "message": err.Error()})
}

// Start begins serving; blocks until the server stops or errors.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("starting http server")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

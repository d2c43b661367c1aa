// Package server exposes the utterance pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-utterance/internal/config"
	"github.com/example/go-utterance/internal/metrics"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/text"
	"github.com/example/go-utterance/internal/utterance"
)

// Builder turns text into a populated utterance. *pipeline.Pipeline
// satisfies it.
type Builder interface {
	Build(ctx context.Context, raw string) (*utterance.Utterance, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	maxChunkChars  int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Collector
}

func defaultOptions() options {
	return options{
		maxTextBytes:   4096,
		maxChunkChars:  0,
		workers:        2,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithMaxChunkChars sets the chunk size used when a build request asks
// for chunking. 0 keeps the text whole.
func WithMaxChunkChars(n int) Option {
	return func(o *options) { o.maxChunkChars = n }
}

// WithWorkers sets the maximum number of concurrent builds.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request build deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records request and build metrics in c and serves them on
// GET /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	builder Builder
	opts    options
	sem     chan struct{} // semaphore for worker pool
	log     *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /levels,
// POST /build and POST /align.
func NewHandler(builder Builder, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		builder: builder,
		opts:    opts,
		log:     opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/levels", h.handleLevels)
	mux.HandleFunc("/build", h.handleBuild)
	mux.HandleFunc("/align", h.handleAlign)
	if opts.metrics != nil {
		mux.Handle("/metrics", opts.metrics.Handler())
	}
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pipeline.Levels())
}

type buildRequest struct {
	Text  string `json:"text"`
	Chunk bool   `json:"chunk"`
}

type buildResponse struct {
	Utterances []pipeline.Summary `json:"utterances"`
}

type alignRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

type alignResponse struct {
	ID   string                 `json:"id"`
	From string                 `json:"from"`
	To   string                 `json:"to"`
	Rows []pipeline.AlignedItem `json:"rows"`
}

func (h *handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !h.decode(w, r, &req) || !h.checkText(w, req.Text) {
		return
	}

	texts := []string{req.Text}
	if req.Chunk {
		texts = texts[:0]
		for _, c := range text.ChunkBySentence(req.Text, h.opts.maxChunkChars) {
			if c = strings.TrimSpace(c); c != "" {
				texts = append(texts, c)
			}
		}
	}

	var resp buildResponse
	h.withWorker(w, r, "build", len(req.Text), func(ctx context.Context) error {
		for _, t := range texts {
			u, err := h.builder.Build(ctx, t)
			if err != nil {
				return err
			}
			s := pipeline.Summarize(u)
			s.Text = t
			resp.Utterances = append(resp.Utterances, s)
		}
		if h.opts.metrics != nil {
			h.opts.metrics.AddUtterances(len(resp.Utterances))
		}
		return nil
	}, func() { writeJSON(w, http.StatusOK, resp) })
}

func (h *handler) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if !h.decode(w, r, &req) || !h.checkText(w, req.Text) {
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to fields are required")
		return
	}

	var resp alignResponse
	h.withWorker(w, r, "align", len(req.Text), func(ctx context.Context) error {
		u, err := h.builder.Build(ctx, req.Text)
		if err != nil {
			return err
		}
		rows, err := pipeline.Align(u, req.From, req.To)
		if err != nil {
			return err
		}
		resp = alignResponse{ID: u.ID().String(), From: req.From, To: req.To, Rows: rows}
		return nil
	}, func() { writeJSON(w, http.StatusOK, resp) })
}

// decode reads a JSON POST body into v, writing an error response and
// returning false when it cannot.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (h *handler) checkText(w http.ResponseWriter, t string) bool {
	if t == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return false
	}

	if len(t) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return false
	}
	return true
}

// withWorker runs fn in a worker slot under the request timeout, then
// either calls ok or writes the error response for fn's error.
func (h *handler) withWorker(w http.ResponseWriter, r *http.Request, op string, textLen int, fn func(context.Context) error, ok func()) {
	// Acquire a worker slot; honour context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
			// slot acquired
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	// Apply per-request timeout.
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	durationMS := elapsed.Milliseconds()

	if err != nil {
		status, msg := errorStatus(err)
		h.observe(op, status, elapsed)
		attrs := []any{
			slog.String("op", op),
			slog.Int("text_len", textLen),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		}
		if status >= http.StatusInternalServerError {
			h.log.ErrorContext(r.Context(), "request failed", attrs...)
		} else {
			h.log.WarnContext(r.Context(), "request rejected", attrs...)
		}
		writeError(w, status, msg)
		return
	}

	h.log.InfoContext(r.Context(), "request complete",
		slog.String("op", op),
		slog.Int("text_len", textLen),
		slog.Int64("duration_ms", durationMS),
	)
	h.observe(op, http.StatusOK, elapsed)
	ok()
}

func (h *handler) observe(op string, status int, d time.Duration) {
	if h.opts.metrics != nil {
		h.opts.metrics.ObserveRequest(op, status, d)
	}
}

// errorStatus maps a build or alignment error to an HTTP status and a
// client-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "build timed out"
	case errors.Is(err, text.ErrEmptyText):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, utterance.ErrNotFound):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, utterance.ErrNoRelation):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	builder         Builder
	logger          *slog.Logger
	metrics         *metrics.Collector
	shutdownTimeout time.Duration
}

func New(cfg config.Config, builder Builder) *Server {
	return &Server{
		cfg:             cfg,
		builder:         builder,
		logger:          slog.Default(),
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithMetrics serves c on GET /metrics and records requests in it.
func (s *Server) WithMetrics(c *metrics.Collector) *Server {
	s.metrics = c
	return s
}

// Handler returns the HTTP handler configured from the server config.
func (s *Server) Handler() http.Handler {
	return NewHandler(s.builder,
		WithMetrics(s.metrics),
		WithWorkers(s.cfg.Pipeline.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithMaxChunkChars(s.cfg.Pipeline.MaxChunkChars),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithLogger(s.logger),
	)
}

func (s *Server) Start(ctx context.Context) error {
	if s.builder == nil {
		return errors.New("server: no builder configured")
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("server listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}

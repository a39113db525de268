// Package gateway serves the assistant over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/dispatcher"
	"github.com/uslanozan/Gollama-the-Navigator/models"
)

const maxBodyBytes = 1 << 20

type Dispatcher interface {
	Handle(ctx context.Context, sessionID, prompt string) (*dispatcher.Reply, error)
	ToolSpecs() []models.ToolSpec
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Gateway struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	router     chi.Router
}

func New(d Dispatcher, logger *zap.Logger, opts Options) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{dispatcher: d, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(chimw.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/healthz", g.handleHealth)
	r.Get("/tools", g.handleTools)
	r.Post("/chat", g.handleChat)

	g.router = r
	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	g.logger.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) handleTools(w http.ResponseWriter, _ *http.Request) {
	specs := g.dispatcher.ToolSpecs()
	if specs == nil {
		specs = []models.ToolSpec{}
	}
	writeJSON(w, http.StatusOK, specs)
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, err := g.dispatcher.Handle(r.Context(), req.SessionID, req.Prompt)
	if err != nil {
		status := statusFor(err)
		g.logger.Error("chat failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("session_id", req.SessionID),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, http.StatusText(status))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		SessionID: req.SessionID,
		Agent:     reply.Agent,
		Response:  reply.Content,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrNoRoutingPolicy):
		return http.StatusConflict
	case errors.Is(err, dispatcher.ErrNoAgents):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// Package api exposes the verification gateway over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/proofgate/proofgate/internal/gateway"
	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
)

// Config describes the HTTP listener.
type Config struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string
	// ShutdownTimeout bounds the drain of in-flight requests on stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8480",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("api: listen_addr is required")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("api: shutdown_timeout must not be negative")
	}
	return nil
}

// Server serves the gateway API.
type Server struct {
	cfg     Config
	gw      *gateway.Gateway
	reader  store.AuditReader
	logger  *slog.Logger
	started time.Time
}

// NewServer creates a Server. The audit reader may be nil, which disables
// the audit listing endpoint.
func NewServer(cfg Config, gw *gateway.Gateway, reader store.AuditReader, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, errors.New("api: gateway is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		gw:      gw,
		reader:  reader,
		logger:  logger,
		started: time.Now(),
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	v1 := r.Group("/v1")
	v1.POST("/proofs", s.handleSubmit)
	v1.GET("/proofs/:fingerprint", s.handleIsUsed)
	v1.GET("/status", s.handleStatus)
	if s.reader != nil {
		v1.GET("/audit", s.handleAudit)
	}
	return r
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.ListenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// handleSubmit implements POST /v1/proofs.
func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad json: " + err.Error()})
		return
	}

	sub, err := req.toSubmission()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	f, err := s.gw.Submit(c.Request.Context(), sub, req.Submitter)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, submitResponse{Fingerprint: f.Hex(), Accepted: true})
	case errors.Is(err, gateway.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, gateway.ErrAlreadyUsed):
		c.JSON(http.StatusConflict, errorResponse{Error: "Proof already used"})
	case errors.Is(err, gateway.ErrVerificationFailed):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("submission failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// handleIsUsed implements GET /v1/proofs/:fingerprint.
func (s *Server) handleIsUsed(c *gin.Context) {
	f, err := proof.ParseDigest(c.Param("fingerprint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	used, err := s.gw.IsUsed(c.Request.Context(), f)
	if err != nil {
		s.logger.Error("fingerprint lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, usedResponse{Fingerprint: f.Hex(), Used: used})
}

// handleStatus implements GET /v1/status.
func (s *Server) handleStatus(c *gin.Context) {
	params := s.gw.Params()
	c.JSON(http.StatusOK, statusResponse{
		Status:   "ok",
		UptimeMS: time.Since(s.started).Milliseconds(),
		Params: paramsResponse{
			ProofLen:       params.ProofLen,
			CommitmentLen:  params.CommitmentLen,
			PokLen:         params.PokLen,
			PublicInputLen: params.PublicInputLen,
		},
		Stats: s.gw.Stats(),
	})
}

// handleAudit implements GET /v1/audit.
func (s *Server) handleAudit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 1000 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be an integer between 1 and 1000"})
			return
		}
		limit = v
	}

	records, err := s.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("audit listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": toAuditResponse(records)})
}

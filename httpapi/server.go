// Package httpapi implements the §6 admin surface: a deliberately thin gin
// server exposing liveness, a Prometheus scrape endpoint, a bcrypt+TOTP
// login that mints a JWT, a JWT+TOTP-gated kill switch, and human-approved
// review of the MOA's weight recommendations. It is not a management UI —
// process supervision and a full dashboard are out of scope.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalystcore/broker"
	"catalystcore/executor"
	"catalystcore/logger"
	"catalystcore/metrics"
	"catalystcore/moa"
	"catalystcore/signalgen"
)

// Server wires the admin HTTP surface to the live broker, executor, MOA
// store, and signal generator it supervises.
type Server struct {
	router   *gin.Engine
	port     string
	broker   broker.Broker
	executor *executor.Executor
	moa      *moa.Store
	signals  *signalgen.Generator

	jwtSecret    []byte
	totpSecret   string
	passwordHash []byte
}

// NewServer constructs the admin server and registers its routes. jwtSecret,
// totpSecret, and passwordHash may be empty in a dev environment; the login
// route then always refuses, since an empty bcrypt hash never matches a
// CompareHashAndPassword call and an empty TOTP secret never validates a
// code. passwordHash is the bcrypt digest produced ahead of time (e.g. via
// ADMIN_PASSWORD_HASH), never a plaintext password.
func NewServer(b broker.Broker, exec *executor.Executor, moaStore *moa.Store, gen *signalgen.Generator, port, jwtSecret, totpSecret, passwordHash string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	s := &Server{
		router:       router,
		port:         port,
		broker:       b,
		executor:     exec,
		moa:          moaStore,
		signals:      gen,
		jwtSecret:    []byte(jwtSecret),
		totpSecret:   totpSecret,
		passwordHash: []byte(passwordHash),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	admin := s.router.Group("/admin")
	{
		admin.POST("/login", s.handleLogin)
		admin.POST("/kill-switch", s.requireAdminAuth, s.handleKillSwitch)
		admin.GET("/moa/recommendations", s.requireAdminAuth, s.handleGetRecommendations)
		admin.POST("/moa/recommendations/apply", s.requireAdminAuth, s.handleApplyRecommendations)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleKillSwitch cancels every open order and halts the executor pool. It
// deliberately does not touch the classifier or MOA background loops — per
// §7, an authentication/authorization failure (or an operator-triggered
// halt) stops order submission only.
func (s *Server) handleKillSwitch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cancelled, err := s.broker.CancelAllOrders(ctx)
	if err != nil {
		logger.Errorf("httpapi: kill switch order cancellation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel open orders: " + err.Error()})
		return
	}

	s.executor.Halt()
	metrics.SetKillSwitchEngaged(true)
	logger.Warnf("httpapi: kill switch engaged, %d open orders cancelled", cancelled)

	c.JSON(http.StatusOK, gin.H{
		"status":           "halted",
		"orders_cancelled": cancelled,
		"executor_halted":  s.executor.Halted(),
	})
}

func (s *Server) handleGetRecommendations(c *gin.Context) {
	recs, err := s.moa.LoadRecommendations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// applyRecommendationsRequest names the keywords the operator approved;
// an empty/missing Keywords list applies every pending recommendation.
type applyRecommendationsRequest struct {
	Keywords []string `json:"keywords"`
}

// handleApplyRecommendations is the human-approval step §4.13 requires
// before a MOA recommendation changes live signal generation: it writes the
// approved keywords' recommended weights into the signal generator's
// feedback multipliers. Recommendations are never applied automatically by
// the analyzer itself.
func (s *Server) handleApplyRecommendations(c *gin.Context) {
	// A missing/empty body means "apply everything pending" — not a client
	// error — so a bind failure just falls back to the zero-value request.
	var req applyRecommendationsRequest
	_ = c.ShouldBindJSON(&req)

	recs, err := s.moa.LoadRecommendations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	approve := make(map[string]bool, len(req.Keywords))
	for _, kw := range req.Keywords {
		approve[kw] = true
	}
	applyAll := len(req.Keywords) == 0

	var applied []string
	for _, rec := range recs {
		if !applyAll && !approve[rec.Keyword] {
			continue
		}
		s.signals.SetFeedbackMultiplier(rec.Keyword, rec.RecommendedWeight)
		applied = append(applied, rec.Keyword)
	}

	logger.Infof("httpapi: applied %d MOA recommendations: %v", len(applied), applied)
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// Run starts the admin server, blocking until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

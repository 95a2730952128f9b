// Package httpapi is the HTTP side of the server: health, the public trial
// check, the payment webhook, hosted checkout pages and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/photorestore/internal/logging"
	"github.com/dmitrijs2005/photorestore/internal/server/metrics"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type trialChecker interface {
	TrialAvailable(ctx context.Context, ip string) (bool, error)
}

type checkoutFulfiller interface {
	GetCheckout(ctx context.Context, id string) (*models.Checkout, error)
	FulfilCheckout(ctx context.Context, id string) (bool, error)
}

// Options configures the HTTP server.
type Options struct {
	Address       string
	WebhookSecret string
	MockCheckout  bool
	// Limiter, when set, bounds requests per client address.
	Limiter  counter
	PerMin   int
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
}

type Server struct {
	e        *echo.Echo
	address  string
	logger   logging.Logger
	trials   trialChecker
	payments checkoutFulfiller
	opts     Options
	validate *validator.Validate
}

func NewServer(opts Options, l logging.Logger, trials trialChecker, payments checkoutFulfiller) *Server {
	s := &Server{
		e:        echo.New(),
		address:  opts.Address,
		logger:   l.With("module", "http_server"),
		trials:   trials,
		payments: payments,
		opts:     opts,
		validate: validator.New(),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.e
	e.Use(middleware.Recover())
	e.Use(s.requestLog)

	e.GET("/healthz", s.healthz)
	if s.opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	limit := RateLimit(s.opts.Limiter, s.opts.PerMin, s.opts.Metrics, s.logger)
	e.GET("/v1/trial/check", s.trialCheck, limit)
	e.POST("/v1/payments/webhook", s.webhook, limit)
	e.GET("/checkout/:id", s.checkoutPage, limit)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger.Debug(req.Context(), "http request",
			"method", req.Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start),
		)
		return nil
	}
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := s.e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

/*
Package rpc implements HTTP API of the simulator: payable approval calls of
the token contract and views of the approval state.
*/
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/alphabill-org/alphabill-nft/types"
)

// Ledger is the part of the runtime.Ledger the server uses.
type Ledger interface {
	Call(ctx context.Context, order *types.CallOrder) (*types.Outcome, error)
	View(ctx context.Context, contractID types.AccountID, method string, args any) (*types.Outcome, error)
}

type Server struct {
	echo   *echo.Echo
	ledger Ledger
	log    *slog.Logger
}

type Option func(*options)

type options struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// WithIdempotency enables Redis backed idempotency of the payable calls.
func WithIdempotency(rdb *redis.Client, ttl time.Duration) Option {
	return func(o *options) {
		o.rdb = rdb
		o.ttl = ttl
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func New(ledger Ledger, opts ...Option) *Server {
	o := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			o.log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{echo: e, ledger: ledger, log: o.log}
	g := e.Group("/v1/contracts/:contract")
	if o.rdb != nil {
		g.Use(Idempotency(o.rdb, o.ttl, o.log))
	}
	g.POST("/approve", s.approve)
	g.POST("/revoke", s.revoke)
	g.POST("/revoke_all", s.revokeAll)
	g.GET("/tokens/:token_id", s.token)
	g.GET("/tokens/:token_id/approvals/:account_id", s.isApproved)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the API until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("starting RPC server", "address", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/comictracker/internal/db"
	"github.com/nkiryanov/comictracker/internal/handlers"
	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/mailer"
	"github.com/nkiryanov/comictracker/internal/repository/postgres"
	"github.com/nkiryanov/comictracker/internal/service/auth"
	"github.com/nkiryanov/comictracker/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/comictracker/internal/service/comic"
	"github.com/nkiryanov/comictracker/internal/service/marketprocessor"
	"github.com/nkiryanov/comictracker/internal/service/reset"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool

	// Background market refresh, nil if disabled
	processor *marketprocessor.Processor
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	marketEvery, err := time.ParseDuration(c.MarketRefreshInterval)
	if err != nil || marketEvery < 0 {
		return nil, fmt.Errorf("market refresh interval %q is not valid", c.MarketRefreshInterval)
	}

	// Fail before touching the database if tokens can't be signed
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	sender, err := newSender(c, log)
	if err != nil {
		return nil, err
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	authService, err := auth.NewService(
		auth.Config{SecureCookie: c.Environment == logger.EnvProduction},
		tokenManager,
		storage.User(),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	resetService, err := reset.NewService(
		reset.Config{LinkBaseURL: c.ResetLinkBaseURL},
		auth.DefaultHasher,
		sender,
		storage.User(),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating reset service. Err: %w", err)
	}

	comicService := comic.NewService(storage.Comic(), nil)

	mux := handlers.NewRouter(authService, resetService, comicService, log)

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		pool:       pool,
	}
	if marketEvery > 0 {
		app.processor = marketprocessor.New(marketprocessor.Config{Interval: marketEvery}, log, comicService)
	}

	return app, nil
}

func newSender(c *Config, logger logger.Logger) (mailer.Sender, error) {
	if !c.usePostmark() {
		logger.Warn("Postmark is not configured, emails are written to directory", "dir", c.MailDir)
		return mailer.NewDevSender(c.MailDir), nil
	}

	sender, err := mailer.NewPostmarkSender(mailer.PostmarkConfig{
		ServerToken:  c.PostmarkServerToken,
		AccountToken: c.PostmarkAccountToken,
		Sender:       c.MailSender,
		Support:      c.MailSupport,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating mail sender. Err: %w", err)
	}

	return sender, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	var processorStopped <-chan struct{}
	if s.processor != nil {
		processorStopped = s.processor.Process(srvCtx)
	} else {
		stopped := make(chan struct{})
		close(stopped)
		processorStopped = stopped
	}

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-processorStopped

	return err
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"canteen-orders/internal/canteen/api/http/handle"
	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/app/services"
	"canteen-orders/internal/xpkg/auth"
	"canteen-orders/internal/xpkg/config"
	xdb "canteen-orders/internal/xpkg/db"
	"canteen-orders/internal/xpkg/logger"

	brokermessage "canteen-orders/internal/canteen/adapter/broker_message"
	database "canteen-orders/internal/canteen/adapter/db"
	"canteen-orders/internal/canteen/adapter/idempotency"

	"github.com/redis/go-redis/v9"
)

var ErrServerClosed = errors.New("Server closed")

type Server struct {
	cfg           *config.Config
	srv           *http.Server
	canteenParams *core.CanteenParams
	mylog         logger.Logger
	db            core.IDB
	mb            core.IPublisher
	rdb           *redis.Client
	ctx           context.Context
	appCtx        context.Context
	mu            sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, canteenParams *core.CanteenParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:           ctx,
		appCtx:        appCtx,
		cfg:           cfg,
		canteenParams: canteenParams,
		mylog:         mylog,
	}
}

// Run connects the backing services, registers routes and listens. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeDatabase(); err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}

	if err := s.initializeRabbitMQ(); err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}

	if err := s.initializeRedis(); err != nil {
		mylog.Action("redis_connection_failed").Error("Failed to connect to redis", err)
		return err
	}

	handler := s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.canteenParams.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.canteenParams.Port, "max-concurrent", s.canteenParams.MaxConcurrent).
		Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.mylog.Action("redis_close_failed").Error("Failed to close redis", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		s.mylog.Action("mb_closed").Info("Message broker closed")
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeDatabase() error {
	db, err := xdb.Start(s.appCtx, &s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Server) initializeRabbitMQ() error {
	mb, err := brokermessage.New(s.appCtx, s.cfg.RMQ, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	return nil
}

func (s *Server) initializeRedis() error {
	if !s.cfg.Redis.Enabled() {
		s.mylog.Action("redis_disabled").Warn("redis.addr is empty, Idempotency-Key is ignored")
		return nil
	}
	rdb, err := idempotency.Connect(s.appCtx, s.cfg.Redis, s.mylog)
	if err != nil {
		return err
	}
	s.rdb = rdb
	return nil
}

// Configure wires repositories, services and handlers into the router.
func (s *Server) Configure() http.Handler {
	timeout := s.cfg.Service.RequestTimeout

	// Repositories
	catalogRepo := database.NewCatalogRepo(s.db)
	orderRepo := database.NewOrderRepo(s.db, s.cfg.DB.LockTimeout)
	userRepo := database.NewUserRepo(s.db)

	// Services
	tokens := auth.NewTokens(s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenTTL)
	catalogService := services.NewCatalogService(catalogRepo, s.mylog)
	orderService := services.NewOrderService(orderRepo, s.mb, s.canteenParams.MaxConcurrent, s.mylog)
	queueService := services.NewQueueService(orderRepo, s.mylog)
	statusService := services.NewStatusService(orderRepo, s.mb, s.mylog)
	userService := services.NewUserService(userRepo, orderRepo, tokens, s.mylog)

	var store core.IIdempotencyStore
	if s.rdb != nil {
		store = idempotency.NewRedis(s.rdb, s.cfg.Redis.IdempotencyTTL)
	}

	return NewRouter(Handlers{
		Middleware: handle.NewMiddleware(userService, store, s.mylog),
		Catalog:    handle.NewCatalogHandler(catalogService, s.mylog),
		Orders:     handle.NewOrderHandler(orderService, timeout, s.mylog),
		Worker:     handle.NewWorkerHandler(queueService, statusService, timeout, s.mylog),
		Users:      handle.NewUserHandler(userService, s.cfg.Auth.TokenTTL, s.mylog),
		Health:     handle.NewHealthHandler(s.db, s.mylog),
	})
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"img-thumbs/internal/broker"
	kafka_impl "img-thumbs/internal/broker/kafka"
	"img-thumbs/internal/config"
	image_h "img-thumbs/internal/http-server/handler/image"
	link_h "img-thumbs/internal/http-server/handler/link"
	"img-thumbs/internal/http-server/middleware"
	"img-thumbs/internal/http-server/router"
	minio_repo "img-thumbs/internal/repository/cloud/minio"
	postgres_repo "img-thumbs/internal/repository/db/postgres"
	image_uc "img-thumbs/internal/usecase/image"
	link_uc "img-thumbs/internal/usecase/link"
	"img-thumbs/internal/usecase/processor"
	user_uc "img-thumbs/internal/usecase/user"
	"img-thumbs/internal/worker"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg       *config.Config
	server    *http.Server
	logger    *zlog.Zerolog
	db        *dbpg.DB
	pool      *worker.Pool
	publisher broker.Publisher
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	retries := cfg.DefaultRetryStrategy()

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	fileRepo, err := minio_repo.NewMinIORepository(cfg, retries, logger)
	if err != nil {
		db.Master.Close()
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	imageRepo := postgres_repo.NewImagesRepository(db, retries)
	planRepo := postgres_repo.NewPlansRepository(db, retries)
	userRepo := postgres_repo.NewUsersRepository(db, retries)
	linkRepo := postgres_repo.NewLinksRepository(db, retries)

	publisher := NewPublisher(cfg, retries, logger)
	pool := worker.NewPool(cfg.Worker.Concurrency, logger)

	imageUsecase := image_uc.NewImageUsecase(imageRepo, planRepo, fileRepo, processor.NewThumbnailer(), pool, publisher, logger)

	linkUsecase, err := link_uc.NewLinkUsecase(imageRepo, planRepo, linkRepo, fileRepo, publisher, link_uc.Options{
		Secret:     cfg.TempLink.Secret,
		MinSeconds: cfg.TempLink.MinSeconds,
		MaxSeconds: cfg.TempLink.MaxSeconds,
		BaseURL:    cfg.Server.BaseURL,
	}, logger)
	if err != nil {
		pool.Close()
		db.Master.Close()
		publisher.Close()
		return nil, err
	}

	userUsecase := user_uc.NewUserUsecase(userRepo, planRepo, logger)

	h := &router.Handler{
		ImageHandler: image_h.NewImageHandler(imageUsecase, logger),
		LinkHandler:  link_h.NewLinkHandler(linkUsecase, logger),
		Auth:         middleware.BasicAuth(userUsecase, logger),
	}

	mux := router.SetupRouter(h, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:       cfg,
		server:    server,
		logger:    logger,
		db:        db,
		pool:      pool,
		publisher: publisher,
	}, nil
}

// OpenDB connects to Postgres with the pool settings from cfg.
func OpenDB(cfg *config.Config) (*dbpg.DB, error) {
	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// NewPublisher returns a Kafka producer, or a no-op publisher when no
// brokers are configured.
func NewPublisher(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) broker.Publisher {
	if !cfg.Kafka.Enabled() {
		logger.Info().Msg("Kafka brokers not configured, events are disabled")
		return broker.NoopPublisher{}
	}
	return kafka_impl.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, retries, logger)
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		a.close()
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if err := a.close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to release resources")
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

// close releases resources once no request can reach them anymore.
func (a *App) close() error {
	a.pool.Close()

	var errs []error
	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
	}
	if a.db != nil && a.db.Master != nil {
		if err := a.db.Master.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"netbanking/internal/config"
	"netbanking/internal/handler"
	"netbanking/internal/infrastructure/cache"
	"netbanking/internal/infrastructure/database"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/infrastructure/mail"
	"netbanking/internal/infrastructure/mq"
	"netbanking/internal/job"
	"netbanking/internal/logger"
	"netbanking/internal/service"
	"netbanking/internal/token"
	"netbanking/pkg/idgen"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	workerID := flag.Int64("worker", 1, "snowflake worker id, unique per instance")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, *workerID, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, workerID int64, log zerolog.Logger) error {
	if err := idgen.Init(workerID); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var locker lock.Locker
	switch cfg.Lock.Backend {
	case "redis":
		rdb, err := cache.NewRedis(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.RetryInterval, cfg.Lock.MaxRetries, log)
	default:
		locker = lock.NewLocalLocker()
	}
	log.Info().Str("backend", cfg.Lock.Backend).Msg("account locker ready")

	if cfg.Kafka.Enabled {
		producer, err := mq.NewSyncProducer(&cfg.Kafka)
		if err != nil {
			return err
		}
		publisher := mq.NewKafkaPublisher(producer)
		defer publisher.Close()

		outboxSender := job.NewOutboxSender(db, publisher, cfg, log)
		go outboxSender.Start(ctx)
	}

	if cfg.Business.ReconcileInterval > 0 {
		reports := service.NewReportService(db, cfg, log)
		reconcileJob := job.NewBalanceReconcileJob(reports, cfg.Business.ReconcileInterval, log)
		go reconcileJob.Start(ctx)
	}

	router, err := handler.SetupRouter(handler.Dependencies{
		DB:     db,
		Locker: locker,
		Mailer: mail.New(&cfg.SMTP),
		Tokens: token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		Config: cfg,
		Log:    log,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	// stop background jobs before draining requests
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

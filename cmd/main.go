package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"eventpass/cmd/buildCFG"
	"eventpass/internal/api/api"
	rabbitReader "eventpass/internal/consumerWorker"
	"eventpass/internal/mailer"
	"eventpass/internal/notify"
	"eventpass/internal/rabbit"
	"eventpass/internal/repo"
	"eventpass/internal/scheduler"
	"eventpass/internal/service"
)

// storage owns the repository and, for postgres, the connection behind it.
type storage struct {
	repo          repo.Repository
	db            *dbpg.DB
	migrationPath string
	rollback      bool
}

func openStorage(cfg buildCFG.Getter, log *zerolog.Logger) (*storage, error) {
	storageCfg, err := buildCFG.BuildStorageConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	if storageCfg.Driver == buildCFG.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &storage{repo: repo.NewMemory()}, nil
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build DB config: %w", err)
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}
	if err := db.Master.Ping(); err != nil {
		_ = db.Master.Close()
		return nil, fmt.Errorf("DB ping: %w", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, log)
	if err != nil {
		_ = db.Master.Close()
		return nil, fmt.Errorf("init repository: %w", err)
	}

	migrationPath := storageCfg.MigrationsDir
	if !filepath.IsAbs(migrationPath) {
		cwd, err := os.Getwd()
		if err != nil {
			_ = db.Master.Close()
			return nil, err
		}
		migrationPath = filepath.Join(cwd, migrationPath)
	}
	if err := repository.MigrateUp(migrationPath); err != nil {
		_ = db.Master.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("Migrations applied successfully")

	return &storage{repo: repository, db: db, migrationPath: migrationPath, rollback: storageCfg.RollbackOnShutdown}, nil
}

func (s *storage) Close(log *zerolog.Logger) {
	if s.db == nil {
		return
	}
	if s.rollback {
		log.Info().Msg("Rolling back migrations...")
		if err := s.repo.MigrateDown(s.migrationPath); err != nil {
			log.Error().Err(err).Msg("failed to rollback migrations")
		}
	}
	if err := s.db.Master.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close DB")
	}
	log.Info().Msg("Database connection closed")
}

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	store, err := openStorage(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close(&log)

	renderer := buildCFG.BuildRenderer(cfg)
	sender := mailer.NewSMTPSender(buildCFG.BuildMailConfig(cfg, &log), &log)
	dispatcher := notify.NewDispatcher(store.repo, sender, renderer, &log)

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var queue notify.Queue
	var reader *rabbitReader.Reader
	var inline *notify.Inline
	if rabbitCfg.Inline() {
		inline = notify.NewInline(dispatcher, &log)
		queue = inline
	} else {
		rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()

		queue = rabbit.NewJobQueue(rmq)
		reader = rabbitReader.NewReader(rmq, dispatcher)
		reader.Start(workerCtx)
	}

	sched := scheduler.New(store.repo, &log)
	if err := sched.Start(buildCFG.BuildSchedulerConfig(cfg).CloseEventsSpec); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	serviceInstance := service.NewService(store.repo, &log, queue, renderer)
	app := api.NewRouters(&api.Routers{
		Service:   serviceInstance,
		Mode:      serverCfg.Mode,
		BaseURL:   serverCfg.BaseURL,
		JWTSecret: buildCFG.BuildAuthConfig(cfg, &log).JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	sched.Stop()
	if reader != nil {
		reader.Stop()
	}
	if inline != nil {
		inline.Wait()
	}

	log.Info().Msg("Shutdown complete")
}

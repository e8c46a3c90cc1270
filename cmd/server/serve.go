package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"podpal/internal/api"
	"podpal/internal/api/handler"
	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/app/worker"
	"podpal/internal/common/security"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/config"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
	"podpal/internal/platform/queue"
	"podpal/internal/platform/storage"
	"podpal/internal/platform/transcriber"
)

func NewServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the transcription worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving (also AUTO_MIGRATE)")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	tokens := security.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiration)

	st, err := openStores(ctx, cfg, hasher, migrate || cfg.AutoMigrate)
	if err != nil {
		return err
	}
	defer st.close()

	rdb, err := queue.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store, uploadDir, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	jobs := repository.NewRedisTranscriptionRepository(rdb, cfg.Transcription.JobTTL)
	jobQueue := queue.New(rdb, cfg.Transcription.QueueName)
	client := transcriber.NewClient(cfg.Transcription.APIURL, cfg.Transcription.APIKey)
	if cfg.Transcription.APIKey == "" {
		logger.Warn("TRANSCRIPTION_API_KEY is not set; transcription requests will be rejected by the provider")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterMetrics(reg)

	production := cfg.IsProduction()
	router := api.NewRouter(api.Deps{
		Auth:           service.NewAuthService(st.accounts, hasher, tokens, production),
		Admin:          service.NewAdminService(st.admins, st.accounts, hasher, tokens, production),
		Profile:        service.NewProfileService(st.accounts),
		Channel:        service.NewChannelService(st.accounts, st.podcasts),
		Podcast:        service.NewPodcastService(st.accounts, st.podcasts, store, cfg.Storage.MaxUploadBytes),
		Transcription:  service.NewTranscriptionService(jobs, st.podcasts, client, jobQueue),
		Tokens:         tokens,
		Logger:         logger,
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 10*time.Minute),
		MaxUploadBytes: 2*cfg.Storage.MaxUploadBytes + 1<<20,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		UploadDir:      uploadDir,
		HealthChecks: map[string]handler.HealthCheck{
			cfg.StoreDriver: st.check,
			"redis":         func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	transcriptionWorker := worker.NewTranscriptionWorker(jobQueue, jobs, client, worker.Options{
		PollInterval:    cfg.Transcription.PollInterval,
		PollMaxInterval: cfg.Transcription.PollMaxInterval,
		Timeout:         cfg.Transcription.Timeout,
	}, logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		transcriptionWorker.Start(workerCtx)
	}()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.APIPort, "env", cfg.AppEnv, "store", cfg.StoreDriver, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serverErr:
		if err != nil {
			workerCancel()
			wg.Wait()
			return fmt.Errorf("listen on %s: %w", cfg.APIPort, err)
		}
	}

	workerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	wg.Wait()

	logger.Info("server and worker stopped")
	return nil
}

// openStorage returns the configured backend. The directory is set only for
// local storage, which the router then serves under /uploads.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, string, error) {
	if cfg.Driver == config.StorageDriverS3 {
		s, err := storage.NewS3Storage(ctx, cfg)
		return s, "", err
	}
	s, err := storage.NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}

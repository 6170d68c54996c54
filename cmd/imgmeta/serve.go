package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/http/handlers"
	"github.com/phambaophuc/image-seo-metadata/internal/http/routes"
	"github.com/phambaophuc/image-seo-metadata/internal/services/batch"
	"github.com/phambaophuc/image-seo-metadata/internal/services/caption"
	"github.com/phambaophuc/image-seo-metadata/internal/services/events"
	"github.com/phambaophuc/image-seo-metadata/internal/services/processor"
	"github.com/phambaophuc/image-seo-metadata/internal/services/queue"
	"github.com/phambaophuc/image-seo-metadata/internal/services/retention"
	"github.com/phambaophuc/image-seo-metadata/internal/services/storage"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and event stream",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Address to bind, overrides PORT")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize services
	repo, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer repo.Close()

	storageSvc := storage.NewStorageService(cfg, logger)
	defer storageSvc.Close()

	var cache caption.Cache
	if storageSvc.CacheEnabled() {
		cache = storageSvc
	}
	captioner, err := newCaptioner(ctx, cache)
	if err != nil {
		return fmt.Errorf("failed to initialize caption provider: %w", err)
	}

	injector := newInjector()

	opts := processor.Options{
		OutputRoot:   cfg.Storage.ProcessedPath,
		PublicPrefix: cfg.Storage.PublicPrefix,
		MaxFileSize:  cfg.Storage.MaxFileSize,
	}
	if storageSvc.MirrorEnabled() {
		opts.Mirror = storageSvc
	}
	proc := processor.NewImageProcessor(captioner, injector, opts, logger)

	hub := events.NewHub(logger)
	defer hub.Close()

	health := []handlers.HealthReporter{storageSvc}
	var queueSvc *queue.QueueService

	if cfg.RabbitMQ.Enabled {
		q, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			// Events still reach SSE clients without the broker.
			logger.Warn("Failed to initialize queue service", zap.Error(err))
		} else {
			defer q.Close()
			hub.AddSink(q)
			queueSvc = q
			health = append(health, q)
		}
	}

	if storageSvc.CacheEnabled() {
		relay := events.NewRedisRelay(storageSvc.RedisClient(), "", logger)
		hub.AddSink(relay)
		go func() {
			if err := relay.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event relay stopped", zap.Error(err))
			}
		}()
	}

	sweeper := retention.NewSweeper(repo, cfg.Storage.ProcessedPath, logger)
	if cfg.Retention.SweepOnStart {
		n, err := sweeper.SweepAll(ctx)
		if err != nil {
			logger.Warn("Start-up sweep incomplete", zap.Error(err))
		}
		logger.Info("Start-up sweep finished", zap.Int("removed", n))
	}

	var scheduler batch.Scheduler
	if cfg.Retention.UseQueue {
		if err := requireRedis("RETENTION_USE_QUEUE"); err != nil {
			return err
		}
		client := asynq.NewClient(redisOpt())
		defer client.Close()
		scheduler = retention.NewAsynqScheduler(client, cfg.Retention.QueueName, cfg.Retention.Delay, logger)

		srv := asynq.NewServer(redisOpt(), asynq.Config{
			Concurrency: cfg.Retention.SchedulerConc,
			Queues:      map[string]int{cfg.Retention.QueueName: 1},
		})
		mux := asynq.NewServeMux()
		sweeper.Register(mux)
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("failed to start retention worker: %w", err)
		}
		defer srv.Shutdown()
	} else {
		timers := retention.NewTimerScheduler(sweeper, cfg.Retention.Delay, logger)
		defer timers.Stop()
		scheduler = timers
	}

	orchestrator := batch.NewOrchestrator(proc, repo, hub, scheduler, cfg.Storage.ProcessedPath, logger)

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(orchestrator, hub, repo, injector, logger, cfg, health...)
	if storageSvc.CacheEnabled() {
		imageHandler.AddStats("cache", storageSvc.GetCacheStats)
	}
	if queueSvc != nil {
		imageHandler.AddStats("queue", queueSvc.Stats)
	}
	router := routes.NewRouter(imageHandler, cfg, logger)

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = ":" + cfg.Server.Port
	}
	server := &http.Server{
		Addr:        addr,
		ReadTimeout: cfg.Server.ReadTimeout,
		// Zero keeps event streams open.
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE handlers only return once the hub closes their subscriptions.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := imageHandler.Wait(shutdownCtx); err != nil {
		logger.Warn("Batches still running at exit", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/api"
	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/bus"
	"github.com/opensource-finance/fhi/internal/cache"
	"github.com/opensource-finance/fhi/internal/config"
	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/repository"
	"github.com/opensource-finance/fhi/internal/rules"
	"github.com/opensource-finance/fhi/internal/trend"
	"github.com/opensource-finance/fhi/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scoring service",
	Long: `Starts the HTTP API backed by the configured repository, cache and event
bus. When worker.enabled is set, score requests published on the bus are
assessed in the background.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if err := config.Validate(cfg, "serve"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "serve"))
	log.Info("starting fhi",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_date", BuildDate),
		zap.String("repository", cfg.Repository.Driver),
		zap.String("cache", cfg.Cache.Type),
		zap.String("event_bus", cfg.EventBus.Type),
	)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return eris.Wrap(err, "serve: init repository")
	}
	defer repo.Close()

	resultCache, err := cache.New(cfg.Cache)
	if err != nil {
		return eris.Wrap(err, "serve: init cache")
	}
	defer resultCache.Close()

	eventBus, err := bus.New(cfg.EventBus)
	if err != nil {
		return eris.Wrap(err, "serve: init event bus")
	}
	defer eventBus.Close()

	engine, err := rules.NewEngine(cfg.Worker.Concurrency)
	if err != nil {
		return eris.Wrap(err, "serve: init achievement engine")
	}
	defer engine.Close()

	if err := loadAchievements(ctx, repo, engine); err != nil {
		return err
	}
	log.Info("achievement engine initialized", zap.Int("rules_count", engine.RulesCount()))

	processor := assessment.NewProcessor(
		assessment.WithRepository(repo),
		assessment.WithCache(resultCache, cfg.Cache.ResultTTL),
		assessment.WithBus(eventBus),
		assessment.WithAchievements(engine),
	)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.New(eventBus, processor)
		if err := asyncWorker.Start(worker.Config{TenantIDs: cfg.Worker.Tenants}); err != nil {
			return eris.Wrap(err, "serve: start worker")
		}
		log.Info("async worker started", zap.Strings("tenants", cfg.Worker.Tenants))
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Repo:             repo,
		Cache:            resultCache,
		Bus:              eventBus,
		Rules:            engine,
		Processor:        processor,
		Trend:            trend.NewService(repo),
		Quota:            cfg.Quota,
		BatchConcurrency: cfg.Worker.Concurrency,
		Version:          Version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("fhi is ready", zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "serve: http server")
		}
	}

	// Stop consuming before the server and its dependencies go away.
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			log.Error("failed to stop async worker", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("fhi shutdown complete")
	return nil
}

// loadAchievements loads the global achievement rules, seeding the built-in
// set when the repository has none.
func loadAchievements(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	stored, err := repo.ListAchievementRules(ctx, api.GlobalTenantID)
	if err != nil {
		return eris.Wrap(err, "serve: list achievement rules")
	}

	if len(stored) == 0 {
		stored = rules.BuiltinAchievements(api.GlobalTenantID)
		now := time.Now().UTC()
		for _, r := range stored {
			r.CreatedAt, r.UpdatedAt = now, now
			if err := repo.SaveAchievementRule(ctx, api.GlobalTenantID, r); err != nil {
				return eris.Wrapf(err, "serve: seed achievement rule %s", r.ID)
			}
		}
		zap.L().Info("seeded built-in achievement rules", zap.Int("count", len(stored)))
	}

	return engine.LoadAll(stored)
}

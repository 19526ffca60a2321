package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"server/internal/adapter/repo"
	"server/internal/conform"
	"server/internal/config"
	"server/internal/domain"
	"server/internal/genclient"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/mask"
	"server/internal/matcher"
	"server/internal/pipeline"
	"server/internal/service"
	"server/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare object storage")
	}

	requests := repo.NewRequestRepository(dbpool)
	ledger := repo.NewCreditLedger(dbpool)
	logs := repo.NewLogSink(dbpool, logger)

	transformer := conform.New(conform.Limits{
		MaxBytes:     cfg.MaxImageBytes,
		MaxDimension: cfg.MaxImageDimension,
	})

	var maskStore mask.Store
	if cfg.MaskCacheBackend == "redis" {
		maskStore = mask.NewRedisStore(cfg.RedisAddr)
	} else {
		maskStore = mask.NewMemoryStore(cfg.MaskCacheTTL)
	}
	segClient := mask.NewSegmentationClient(mask.SegmentationOptions{
		BaseURL: cfg.SegmentationURL,
		Timeout: cfg.SegmentationTimeout,
	})
	masks := mask.NewGenerator(mask.DefaultOptions(), segClient, maskStore, cfg.MaskCacheTTL, logger)

	generator := genclient.NewClient(genclient.Options{
		BaseURL: cfg.GenerationURL,
		APIKey:  cfg.GenerationAPIKey,
		Timeout: cfg.GenerationTimeout,
	}, store)

	// A typed nil would defeat the orchestrator's "matching disabled" check,
	// so only assign the interface when a client exists.
	var products domain.ProductMatcher
	if mc := matcher.NewClient(matcher.Options{BaseURL: cfg.ProductMatchURL}); mc != nil {
		products = mc
	}

	runner := pipeline.NewPoolRunner(cfg.PipelineWorkers)
	defer runner.Close()

	orchestrator := service.New(service.Options{
		Repo:              requests,
		Ledger:            ledger,
		Logs:              logs,
		Conformer:         transformer,
		Masks:             masks,
		Generator:         generator,
		Matcher:           products,
		Runner:            runner,
		Logger:            logger,
		FetchTimeout:      cfg.FetchTimeout,
		CreditsPerRequest: cfg.CreditsPerRequest,
	})

	app := handlers.NewApp(orchestrator, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       filepath.Clean(cfg.StoragePath),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

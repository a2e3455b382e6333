package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reelgen/internal/gallery"
	"reelgen/internal/http/handlers"
	httpapi "reelgen/internal/http/httpapi"
	"reelgen/internal/infra"
	"reelgen/internal/jobstore"
	"reelgen/internal/providers/bedrock"
	"reelgen/internal/providers/storyboard"
	"reelgen/internal/storage"
	"reelgen/internal/styles"
	"reelgen/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	catalog, err := styles.Load(cfg.StylesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style catalog")
	}
	logger.Info().Int("styles", catalog.Len()).Msg("style catalog loaded")

	library, err := gallery.NewLibrary(cfg.ImagesDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open image gallery")
	}

	artifacts, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open artifact store")
	}
	if removed, err := artifacts.CleanupOlderThan(cfg.CleanupMaxAge); err != nil {
		logger.Warn().Err(err).Msg("artifact cleanup failed")
	} else if removed > 0 {
		logger.Info().Int("removed", removed).Msg("stale artifacts removed")
	}

	store, err := jobstore.Open(cfg.JobsDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	defer store.Close()

	remote, err := bedrock.New(ctx, bedrock.Options{
		Region:      cfg.AWSRegion,
		VideoModel:  cfg.BedrockVideoModel,
		PromptModel: cfg.BedrockPromptModel,
		S3OutputURI: cfg.BedrockS3OutputURI,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation client")
	}

	jobs := tracker.New(store, remote, storyboard.NewBuilder(remote), library, catalog, artifacts, logger)

	poller := tracker.NewPoller(jobs, cfg.PollInterval, logger)
	poller.Start(ctx)
	defer poller.Stop()

	app := handlers.NewApp(jobs, catalog, library, artifacts, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		SubmitPerMinute: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("listening on :%s", cfg.Port)
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

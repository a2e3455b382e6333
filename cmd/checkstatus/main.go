// Command checkstatus runs one poll cycle against the remote generation
// service and prints the resulting job states, without starting the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	"reelgen/internal/jobstore"
	"reelgen/internal/providers/bedrock"
	"reelgen/internal/storage"
	"reelgen/internal/styles"
	"reelgen/internal/tracker"
)

func main() {
	jobID := flag.String("job", "", "poll a single job id instead of every active job")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	catalog, err := styles.Load(cfg.StylesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style catalog")
	}
	artifacts, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open artifact store")
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

	jobs := tracker.New(store, remote, nil, nil, catalog, artifacts, logger)

	var targets []*domain.Job
	if *jobID != "" {
		job, err := jobs.Get(ctx, *jobID)
		if err != nil {
			logger.Fatal().Err(err).Str("job_id", *jobID).Msg("job not found")
		}
		targets = []*domain.Job{job}
	} else {
		targets, err = jobs.List(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to list jobs")
		}
	}
	if len(targets) == 0 {
		fmt.Println("no tracked jobs")
		return
	}

	exitCode := 0
	for _, job := range targets {
		polled, err := jobs.Poll(ctx, job.ID)
		if err != nil {
			fmt.Printf("%s  poll error: %v\n", job.ID, err)
			exitCode = 1
			continue
		}
		line := fmt.Sprintf("%s  %-9s  style=%s", polled.ID, polled.Status, polled.Style)
		if polled.ResultRef != "" {
			line += "  video=" + polled.ResultRef
		}
		if polled.FailureReason != "" {
			line += "  reason=" + polled.FailureReason
		}
		if polled.Abandoned {
			line += "  (abandoned)"
		}
		fmt.Println(line)
	}
	os.Exit(exitCode)
}

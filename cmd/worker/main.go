package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"applykit-backend/internal/bootstrap"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 120
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)

	queueURL := strings.TrimSpace(cfg.MirrorQueueURL)
	if queueURL == "" {
		fatal("MIRROR_QUEUE_URL is required", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		fatal("worker.aws_config_failed", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		fatal("bootstrap.failed", err)
	}
	defer app.Close()

	poller := &workerproc.Poller{
		Client:            sqs.NewFromConfig(awsCfg),
		QueueURL:          queueURL,
		Mirrorer:          app.Kits,
		Concurrency:       envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency),
		VisibilitySeconds: envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
		ShutdownTimeout:   time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
	}
	poller.Run(ctx)
}

func fatal(msg string, err error) {
	fields := map[string]any{}
	if err != nil {
		fields["error"] = err.Error()
	}
	telemetry.Error(msg, fields)
	os.Exit(1)
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

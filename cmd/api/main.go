package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/api"
	"github.com/voltflow/charge-orchestrator/internal/clients"
	"github.com/voltflow/charge-orchestrator/internal/config"
	"github.com/voltflow/charge-orchestrator/internal/logging"
	"github.com/voltflow/charge-orchestrator/internal/notify"
	"github.com/voltflow/charge-orchestrator/internal/schedule"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, publisher, err := buildScheduler(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init scheduler", zap.Error(err))
	}

	payments := clients.NewPaymentClient(cfg.PaymentAPIBase, logger)
	chargers := clients.NewChargerStatusClient(cfg.ChargerAPIBase, logger)

	handler := api.NewRouter(cfg, payments, chargers, publisher, registry, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("charge-orchestrator listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("scheduler_provider", cfg.SchedulerProvider))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server", zap.Error(err))
	}
}

func buildScheduler(ctx context.Context, cfg config.Config, logger *zap.Logger) (schedule.Registry, notify.Publisher, error) {
	if cfg.SchedulerProvider != "aws" {
		logger.Warn("using in-memory scheduler; timeout rules will not survive restarts")
		return schedule.NewFakeRegistry(), notify.NewFakePublisher(), nil
	}

	awsConf, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, nil, err
	}
	registry, err := schedule.NewAWSRegistry(
		eventbridge.NewFromConfig(awsConf),
		lambda.NewFromConfig(awsConf),
		schedule.AWSRegistryOptions{
			Region:      cfg.AWSRegion,
			AccountID:   cfg.AWSAccountID,
			FunctionARN: cfg.ExpiryFunctionARN,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	publisher := notify.NewSQSPublisher(sqs.NewFromConfig(awsConf), cfg.StatusQueueURL, logger)
	return registry, publisher, nil
}

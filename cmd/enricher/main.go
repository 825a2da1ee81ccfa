package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"golang.org/x/time/rate"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/config"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/digest"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/discovery"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/dispatch"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/handler"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/metrics"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/secret"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/telemetry"
)

func main() {
	startTime := time.Now()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	logger.Info("starting cloudwatch error digest")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("cannot load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("cannot load aws config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	if cfg.DispatchTarget == config.TargetSlack && cfg.SlackWebhookURL == "" {
		decrypter := secret.NewDecrypter(kms.NewFromConfig(awsCfg), nil)

		cfg.SlackWebhookURL, err = decrypter.DecryptString(ctx, cfg.EncryptedSlackWebhookURL)
		if err != nil {
			logger.Error("cannot decrypt slack webhook url", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	lister := discovery.NewFunctionLister(awslambda.NewFromConfig(awsCfg))
	fetcher := metrics.NewFetcher(cloudwatch.NewFromConfig(awsCfg))

	enricher := alarm.NewEnricher(lister, fetcher, alarm.Options{
		ResourcePrefix: cfg.FunctionPrefix,
		Lookback:       cfg.Lookback,
		Period:         cfg.MetricPeriod,
		Concurrency:    cfg.FetchConcurrency,
		RateLimit:      rate.Limit(cfg.FetchRateLimit),
		FetchTimeout:   cfg.FetchTimeout,
		ListTimeout:    cfg.ListTimeout,
	}, logger)

	sender, err := dispatch.NewSender(awsCfg, cfg)
	if err != nil {
		logger.Error("cannot create sender", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tp, err := telemetry.NewTracerProvider(ctx, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"))
	if err != nil {
		logger.Error("cannot initialize tracer provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("cannot shutdown tracer provider", slog.String("error", err.Error()))
		}
	}()

	logger.Info(
		"started cloudwatch error digest",
		slog.String("target", string(cfg.DispatchTarget)),
		slog.String("region", cfg.AWSRegion),
		slog.String("functionPrefix", cfg.FunctionPrefix),
		slog.Int("fetchConcurrency", cfg.FetchConcurrency),
		slog.Float64("initDurationSec", time.Since(startTime).Seconds()),
	)

	h := handler.NewEventHandler(enricher, digest.NewComposer(cfg.UTCOffset), sender, logger)
	lambda.Start(
		otellambda.InstrumentHandler(
			h.HandleRequest,
			otellambda.WithTracerProvider(tp),
			otellambda.WithFlusher(tp)),
	)
}

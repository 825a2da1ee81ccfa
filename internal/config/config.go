// Package config loads the digest Lambda configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/env"
)

// DispatchTarget names where composed digests are delivered.
type DispatchTarget string

const (
	TargetSlack       DispatchTarget = "slack"
	TargetSNS         DispatchTarget = "sns"
	TargetEventBridge DispatchTarget = "eventbridge"
)

const (
	DefaultFunctionPrefix   = "cbr_dev_"
	DefaultLookback         = 10 * time.Minute
	DefaultMetricPeriod     = 5 * time.Minute
	DefaultFetchConcurrency = 5
	DefaultFetchRateLimit   = 10.0
	DefaultFetchTimeout     = 5 * time.Second
	DefaultListTimeout      = 10 * time.Second
	DefaultDeliveryTimeout  = 10 * time.Second
	DefaultUTCOffset        = 9 * time.Hour
)

// Config holds everything resolved at cold start.
type Config struct {
	AWSRegion      string
	FunctionPrefix string

	Lookback     time.Duration
	MetricPeriod time.Duration

	FetchConcurrency int
	FetchRateLimit   float64
	FetchTimeout     time.Duration
	ListTimeout      time.Duration

	UTCOffset time.Duration

	DispatchTarget  DispatchTarget
	DeliveryTimeout time.Duration

	SlackChannel string
	// SlackWebhookURL is set either directly or, when only
	// EncryptedSlackWebhookURL is provided, after KMS decryption in main.
	SlackWebhookURL          string
	EncryptedSlackWebhookURL string

	SNSTopicARN string
	EventBusARN string
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}
	cfg.AWSRegion = region

	if err := loadPipeline(cfg); err != nil {
		return nil, err
	}

	target, err := env.Get("ALARM_DESTINATION", string(TargetSlack), env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}
	cfg.DispatchTarget = DispatchTarget(target)

	switch cfg.DispatchTarget {
	case TargetSlack:
		if err := loadSlack(cfg); err != nil {
			return nil, err
		}
	case TargetSNS:
		topicARN, err := env.GetRequired("SNS_TOPIC_ARN", env.ParseNonEmptyString)
		if err != nil {
			return nil, err
		}
		cfg.SNSTopicARN = topicARN
	case TargetEventBridge:
		busARN, err := env.GetRequired("EVENT_BUS_ARN", env.ParseNonEmptyString)
		if err != nil {
			return nil, err
		}
		cfg.EventBusARN = busARN
	default:
		return nil, fmt.Errorf("invalid dispatch target: %s", target)
	}

	return cfg, nil
}

func loadPipeline(cfg *Config) error {
	var errs []error
	var err error

	cfg.FunctionPrefix, err = env.Get("FUNCTION_NAME_PREFIX", DefaultFunctionPrefix, env.ParseString)
	errs = append(errs, err)

	cfg.Lookback, err = env.Get("LOOKBACK", DefaultLookback, env.ParsePositiveDuration)
	errs = append(errs, err)

	cfg.MetricPeriod, err = env.Get("METRIC_PERIOD", DefaultMetricPeriod, env.ParsePositiveDuration)
	errs = append(errs, err)
	if err == nil && cfg.MetricPeriod%time.Minute != 0 {
		errs = append(errs, &env.Error{
			Key: "METRIC_PERIOD",
			Err: errors.Join(env.ErrParsing, fmt.Errorf("%s is not a multiple of 60s", cfg.MetricPeriod)),
		})
	}

	cfg.FetchConcurrency, err = env.Get("FETCH_CONCURRENCY", DefaultFetchConcurrency, env.ParsePositiveInt)
	errs = append(errs, err)

	cfg.FetchRateLimit, err = env.Get("FETCH_RATE_LIMIT", DefaultFetchRateLimit, env.ParsePositiveFloat)
	errs = append(errs, err)

	cfg.FetchTimeout, err = env.Get("FETCH_TIMEOUT", DefaultFetchTimeout, env.ParsePositiveDuration)
	errs = append(errs, err)

	cfg.ListTimeout, err = env.Get("LIST_TIMEOUT", DefaultListTimeout, env.ParsePositiveDuration)
	errs = append(errs, err)

	cfg.UTCOffset, err = env.Get("DIGEST_UTC_OFFSET", DefaultUTCOffset, env.ParseDuration)
	errs = append(errs, err)

	cfg.DeliveryTimeout, err = env.Get("DELIVERY_TIMEOUT", DefaultDeliveryTimeout, env.ParsePositiveDuration)
	errs = append(errs, err)

	return errors.Join(errs...)
}

func loadSlack(cfg *Config) error {
	channel, err := env.GetRequired("SLACK_CHANNEL", env.ParseNonEmptyString)
	if err != nil {
		return err
	}
	cfg.SlackChannel = channel

	cfg.SlackWebhookURL, err = env.Get("SLACK_WEBHOOK_URL", "", env.ParseHTTPURL)
	if err != nil {
		return err
	}

	cfg.EncryptedSlackWebhookURL, err = env.Get("KMS_ENCRYPTED_HOOK_URL", "", env.ParseString)
	if err != nil {
		return err
	}

	if cfg.SlackWebhookURL == "" && cfg.EncryptedSlackWebhookURL == "" {
		return &env.Error{Key: "SLACK_WEBHOOK_URL", Err: env.ErrMissing}
	}

	return nil
}

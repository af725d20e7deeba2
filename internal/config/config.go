package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	ListenAddr         string
	StatusQueueURL     string
	PaymentAPIBase     string
	ChargerAPIBase     string
	AWSRegion          string
	AWSAccountID       string
	ExpiryFunctionARN  string
	SchedulerProvider  string
	SchedulerSharedKey string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:         envOrDefault("CHARGE_LISTEN_ADDR", ":8080"),
		StatusQueueURL:     os.Getenv("CHARGE_STATUS_QUEUE_URL"),
		PaymentAPIBase:     normalizeBase(os.Getenv("CHARGE_PAYMENT_API_BASE")),
		ChargerAPIBase:     normalizeBase(os.Getenv("CHARGE_CHARGER_API_BASE")),
		AWSRegion:          envOrDefault("CHARGE_AWS_REGION", "us-east-1"),
		AWSAccountID:       os.Getenv("CHARGE_AWS_ACCOUNT_ID"),
		ExpiryFunctionARN:  os.Getenv("CHARGE_EXPIRY_FUNCTION_ARN"),
		SchedulerProvider:  envOrDefault("CHARGE_SCHEDULER_PROVIDER", "fake"),
		SchedulerSharedKey: os.Getenv("CHARGE_SCHEDULER_SHARED_KEY"),
	}

	if cfg.PaymentAPIBase == "" {
		return Config{}, fmt.Errorf("CHARGE_PAYMENT_API_BASE is required")
	}
	if cfg.ChargerAPIBase == "" {
		return Config{}, fmt.Errorf("CHARGE_CHARGER_API_BASE is required")
	}
	if cfg.SchedulerProvider != "fake" && cfg.SchedulerProvider != "aws" {
		return Config{}, fmt.Errorf("CHARGE_SCHEDULER_PROVIDER must be one of fake|aws")
	}
	if cfg.SchedulerProvider == "aws" {
		if cfg.StatusQueueURL == "" {
			return Config{}, fmt.Errorf("CHARGE_STATUS_QUEUE_URL is required for aws scheduler provider")
		}
		if cfg.AWSAccountID == "" {
			return Config{}, fmt.Errorf("CHARGE_AWS_ACCOUNT_ID is required for aws scheduler provider")
		}
		if cfg.ExpiryFunctionARN == "" {
			return Config{}, fmt.Errorf("CHARGE_EXPIRY_FUNCTION_ARN is required for aws scheduler provider")
		}
	}
	return cfg, nil
}

func envOrDefault(k, v string) string {
	if raw := os.Getenv(k); raw != "" {
		return raw
	}
	return v
}

// normalizeBase keeps collaborator base URLs slash-terminated so callers can
// append "<id>/set_paid/" style suffixes directly.
func normalizeBase(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasSuffix(v, "/") {
		v += "/"
	}
	return v
}

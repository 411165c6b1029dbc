package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	DBSource         string // empty selects the in-memory store
	RedisAddr        string // empty disables Redis delivery
	RedisChannel     string
	SweepInterval    time.Duration
	SweepConcurrency int
	NotifyBuffer     int
	LogLevel         string
	Env              string
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	redisChannel := os.Getenv("REDIS_CHANNEL")
	if redisChannel == "" {
		redisChannel = "auction:notifications"
	}

	sweepInterval := 60 * time.Second
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SWEEP_INTERVAL must be a positive duration, got %q", v)
		}
		sweepInterval = d
	}

	sweepConcurrency, err := positiveInt("SWEEP_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}

	notifyBuffer, err := positiveInt("NOTIFY_BUFFER", 1024)
	if err != nil {
		return nil, err
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		Port:             port,
		DBSource:         os.Getenv("DB_SOURCE"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisChannel:     redisChannel,
		SweepInterval:    sweepInterval,
		SweepConcurrency: sweepConcurrency,
		NotifyBuffer:     notifyBuffer,
		LogLevel:         logLevel,
		Env:              env,
	}, nil
}

func positiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

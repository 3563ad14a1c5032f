package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/archfirm/gatehouse/adapters/events"
	"github.com/archfirm/gatehouse/adapters/metrics"
	"github.com/archfirm/gatehouse/adapters/store"
	"github.com/archfirm/gatehouse/adapters/tokenizer"
	"github.com/archfirm/gatehouse/config"
	"github.com/archfirm/gatehouse/ports"
	"github.com/archfirm/gatehouse/service"
)

// app holds the long-lived dependencies behind the router
type app struct {
	authService *service.AuthService
	closers     []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
		if !publisherOwnsClient(cfg) {
			a.closers = append(a.closers, redisClient.Close)
		}
	}

	attempts := newAttemptStore(ctx, cfg, redisClient)

	publisher, err := newPublisher(cfg, redisClient, log)
	if err != nil {
		if publisherOwnsClient(cfg) {
			_ = redisClient.Close()
		}
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, publisher.Close)

	loginMetrics, err := metrics.NewLoginMetrics(reg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	tok, err := tokenizer.NewHMACTokenizer(cfg.SigningKey(), tokenizer.WithIssuer(cfg.Session.Issuer))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.authService, err = service.NewAuthService(tok, attempts,
		service.AdminCredentials{
			Email:        cfg.Admin.Email,
			Password:     cfg.Admin.Password,
			PasswordHash: cfg.Admin.PasswordHash,
		},
		service.WithLogger(log),
		service.WithMetrics(loginMetrics),
		service.WithAuditPublisher(events.NewWatermillPublisher(publisher)),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Info("dependencies_ready",
		slog.String("rate_limit_backend", cfg.RateLimit.Backend),
		slog.String("events_backend", cfg.Events.Backend),
	)
	return a, nil
}

// newAttemptStore starts the sweeper for the in-memory store; it stops with ctx
func newAttemptStore(ctx context.Context, cfg *config.Config, client *redis.Client) ports.AttemptStore {
	if cfg.RateLimit.Backend == config.BackendRedis {
		return store.NewRedisStore(client, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	}

	mem := store.NewMemoryStore(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	go mem.Run(ctx, cfg.RateLimit.SweepInterval)
	return mem
}

// publisherOwnsClient reports whether closing the redisstream publisher also closes
// the shared Redis client, which then must not be closed a second time
func publisherOwnsClient(cfg *config.Config) bool {
	return cfg.Events.Backend == config.BackendRedis
}

func newPublisher(cfg *config.Config, client *redis.Client, log *slog.Logger) (message.Publisher, error) {
	logger := watermill.NewSlogLogger(log)

	if cfg.Events.Backend == config.BackendRedis {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: client,
			},
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		return publisher, nil
	}

	return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
}

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archfirm/gatehouse/adapters/store"
	"github.com/archfirm/gatehouse/config"
	"github.com/archfirm/gatehouse/service"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Env:     config.EnvDevelopment,
		Admin:   config.AdminConfig{Email: "admin@x.com", Password: "s3cret"},
		Session: config.SessionConfig{Issuer: "gatehouse"},
		RateLimit: config.RateLimitConfig{
			MaxAttempts:   5,
			Window:        15 * time.Minute,
			Backend:       config.BackendMemory,
			SweepInterval: time.Minute,
		},
		Events: config.EventsConfig{Backend: config.BackendMemory},
	}
}

func TestBuildMemoryBackends(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	a, err := build(ctx, memoryConfig(), log, reg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	result, err := a.authService.Login(ctx, service.LoginInput{Email: "admin@x.com", Password: "s3cret", Client: "1.2.3.4"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "gatehouse_login_attempts_total", families[0].GetName())
}

func TestBuildRejectsUnparsableRedisURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimit.Backend = config.BackendRedis
	cfg.Redis.URL = "://nope"

	_, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestNewAttemptStoreMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newAttemptStore(ctx, memoryConfig(), nil)
	_, ok := s.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestSetupLogger(t *testing.T) {
	assert.True(t, setupLogger(config.EnvDevelopment).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, setupLogger(config.EnvProduction).Enabled(context.Background(), slog.LevelDebug))
}

func TestPublisherOwnsClient(t *testing.T) {
	tests := []struct {
		limiter, events string
		want            bool
	}{
		{config.BackendMemory, config.BackendMemory, false},
		{config.BackendRedis, config.BackendMemory, false},
		{config.BackendMemory, config.BackendRedis, true},
		{config.BackendRedis, config.BackendRedis, true},
	}
	for _, tt := range tests {
		cfg := memoryConfig()
		cfg.RateLimit.Backend = tt.limiter
		cfg.Events.Backend = tt.events

		assert.Equal(t, tt.want, publisherOwnsClient(cfg), "limiter=%s events=%s", tt.limiter, tt.events)
	}
}

func TestRunReturnsListenError(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTP = config.HTTPConfig{Host: "127.0.0.1", Port: "-1"}

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to listen")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after listen failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTP = config.HTTPConfig{Host: "127.0.0.1", Port: "0"}
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

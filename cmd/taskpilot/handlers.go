package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/taskpilot/internal/agent"
	"github.com/haasonsaas/taskpilot/internal/agent/providers"
	"github.com/haasonsaas/taskpilot/internal/auth"
	"github.com/haasonsaas/taskpilot/internal/config"
	"github.com/haasonsaas/taskpilot/internal/conversations"
	"github.com/haasonsaas/taskpilot/internal/gateway"
	"github.com/haasonsaas/taskpilot/internal/observability"
	"github.com/haasonsaas/taskpilot/internal/reminders"
	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/internal/tasks"
	"github.com/haasonsaas/taskpilot/internal/tools"
	"github.com/haasonsaas/taskpilot/pkg/models"
)

// runServe implements the serve command logic: configuration loading, service
// initialization, and graceful shutdown.
func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	logger.Info("starting TaskPilot",
		"version", version,
		"commit", commit,
		"config", configPath,
		"llm_provider", cfg.LLM.Provider,
	)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}

	metrics := observability.NewMetrics()

	taskStore, convStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer taskStore.Close()
	defer convStore.Close()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	registry, err := agent.NewRegistry(tools.All(taskStore)...)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	orchestrator, err := agent.NewOrchestrator(provider, registry, convStore, agent.OrchestratorConfig{
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		CompletionTimeout: cfg.LLM.Timeout,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	server := gateway.NewServer(orchestrator, convStore, jwtService, gateway.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.HTTPPort,
		Logger:  logger,
		Metrics: metrics,
	})

	var scheduler *reminders.Scheduler
	if cfg.Reminders.Enabled {
		scheduler = reminders.NewScheduler(taskStore, &reminders.LogNotifier{Logger: logger}, reminders.SchedulerConfig{
			Schedule: cfg.Reminders.Schedule,
			Logger:   logger,
			Metrics:  metrics,
		})
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start reminder scheduler: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// runToken mints a signed access token for the given user id.
func runToken(cmd *cobra.Command, configPath, userID, email, name string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}

	svc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	token, err := svc.Generate(&models.User{ID: userID, Email: email, Name: name})
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	cmd.Println(token)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openStores builds the task and conversation stores for the configured
// database URL. Both stores share the same backend.
func openStores(cfg *config.Config) (tasks.Store, conversations.Store, error) {
	driver, err := storage.ParseDriver(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case storage.DriverMemory:
		return tasks.NewMemoryStore(), conversations.NewMemoryStore(), nil

	case storage.DriverSQLite:
		path := storage.SQLitePath(cfg.Database.URL)
		taskStore, err := tasks.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open task store: %w", err)
		}
		convStore, err := conversations.NewSQLiteStore(path)
		if err != nil {
			taskStore.Close()
			return nil, nil, fmt.Errorf("failed to open conversation store: %w", err)
		}
		return taskStore, convStore, nil

	case storage.DriverPostgres:
		pgCfg := tasks.DefaultPostgresConfig()
		pgCfg.MaxOpenConns = cfg.Database.MaxConnections
		pgCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		taskStore, err := tasks.NewPostgresStore(cfg.Database.URL, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open task store: %w", err)
		}
		convStore, err := conversations.NewPostgresStore(cfg.Database.URL, 10*time.Second)
		if err != nil {
			taskStore.Close()
			return nil, nil, fmt.Errorf("failed to open conversation store: %w", err)
		}
		return taskStore, convStore, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// buildProvider constructs the configured LLM provider.
func buildProvider(cfg *config.Config) (agent.LLMProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "openai", "":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
		})
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.LLM.APIKey,
			DefaultModel: cfg.LLM.Model,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q (expected openai or anthropic)", cfg.LLM.Provider)
	}
}

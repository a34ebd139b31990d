package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/cache"
	"github.com/shahar-caura/relay/internal/config"
	"github.com/shahar-caura/relay/internal/provider/notifier"
	"github.com/shahar-caura/relay/internal/store"
	"github.com/shahar-caura/relay/internal/transport"
)

const retryBackoff = 500 * time.Millisecond

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig layers env files under the real environment, then loads path.
func loadConfig(path string) (*config.Config, error) {
	config.LoadEnvFiles()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openStore(configPath string) (*store.SQLiteStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return s, nil
}

// stack is the fully wired classification agent plus the resources it owns.
type stack struct {
	agent  agent.Agent
	store  *store.SQLiteStore
	client *transport.Client
	cache  *cache.Redis
}

// buildStack wires the classifier and its wrappers from cfg. Every outcome is
// recorded in the store, sent to the notifier when one is configured, and
// passed to extra.
func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...agent.Hook) (*stack, error) {
	st := &stack{client: transport.New(cfg.Ollama.API.Timeout.Duration)}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	st.store = s

	models := append([]string{cfg.Ollama.API.Model}, cfg.Ollama.API.FallbackModels...)
	agents := make([]agent.Agent, len(models))
	for i, model := range models {
		c := agent.NewClassifier(st.client, cfg.Ollama.API.URL, model, logger)
		agents[i] = agent.WithRetry(c, cfg.Classifier.Retries, retryBackoff, logger)
	}
	a := agents[0]
	if len(agents) > 1 {
		pool, err := agent.NewPool(agents, models, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		a = pool
	}

	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL.Duration)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		st.cache = rc
		a = agent.Cached(a, rc, strings.Join(models, ","), logger)
	}

	if cfg.Classifier.Lenient {
		a = agent.Lenient(a)
	}

	hooks := []agent.Hook{s.Record}
	if cfg.Notifier.Provider == "slack" {
		hooks = append(hooks, notifier.Hook(notifier.New(cfg.Notifier.WebhookURL, st.client)))
	}
	hooks = append(hooks, extra...)

	st.agent = agent.Observed(a, logger, hooks...)

	logger.Debug("classifier ready",
		"url", cfg.Ollama.API.URL,
		"models", models,
		"retries", cfg.Classifier.Retries,
		"cache", st.cache != nil,
		"lenient", cfg.Classifier.Lenient,
	)

	return st, nil
}

// Close releases everything the stack opened.
func (st *stack) Close() error {
	var errs []error
	if st.cache != nil {
		errs = append(errs, st.cache.Close())
	}
	if st.store != nil {
		errs = append(errs, st.store.Close())
	}
	st.client.CloseIdleConnections()
	return errors.Join(errs...)
}

package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shahar-caura/relay/internal/intent"
)

// Lenient substitutes NoAction for unrecognized intent tokens. Every other
// failure passes through unchanged.
func Lenient(a Agent) Agent {
	return AgentFunc(func(ctx context.Context, input string) (*intent.Result, error) {
		res, err := a.Process(ctx, input)
		if errors.Is(err, intent.ErrUnrecognizedIntent) {
			return intent.NewResult(intent.NoAction, nil), nil
		}
		return res, err
	})
}

// WithRetry retries transport failures up to retries extra times, waiting
// backoff*attempt between tries. Other failures return immediately.
func WithRetry(a Agent, retries int, backoff time.Duration, logger *slog.Logger) Agent {
	if retries <= 0 {
		return a
	}
	logger = orDiscard(logger)

	return AgentFunc(func(ctx context.Context, input string) (*intent.Result, error) {
		res, err := a.Process(ctx, input)
		for attempt := 1; attempt <= retries && intent.Retryable(err); attempt++ {
			logger.Warn("classification backend unreachable, retrying", "attempt", attempt, "max", retries, "error", err)

			select {
			case <-ctx.Done():
				return nil, err
			case <-time.After(backoff * time.Duration(attempt)):
			}

			res, err = a.Process(ctx, input)
		}
		return res, err
	})
}

// Cache stores successful results by key.
type Cache interface {
	Get(ctx context.Context, key string) (*intent.Result, bool, error)
	Set(ctx context.Context, key string, result *intent.Result) error
}

// Cached serves repeated inputs from cache. Only successes are stored; cache
// errors are logged and the call falls through to a.
func Cached(a Agent, cache Cache, namespace string, logger *slog.Logger) Agent {
	logger = orDiscard(logger)

	return AgentFunc(func(ctx context.Context, input string) (*intent.Result, error) {
		key := CacheKey(namespace, input)

		if res, ok, err := cache.Get(ctx, key); err != nil {
			logger.Warn("cache read failed", "error", err)
		} else if ok {
			logger.Debug("cache hit", "intent", res.Intent)
			return res, nil
		}

		res, err := a.Process(ctx, input)
		if err != nil {
			return nil, err
		}

		if err := cache.Set(ctx, key, res); err != nil {
			logger.Warn("cache write failed", "error", err)
		}
		return res, nil
	})
}

// CacheKey derives a fixed-length key from namespace and input.
func CacheKey(namespace, input string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + input))
	return hex.EncodeToString(sum[:])
}

// Hook observes a finished classification. Exactly one of res and err is non-nil.
type Hook func(ctx context.Context, input string, res *intent.Result, err error) error

// Observed logs every outcome and runs hooks after each call. Hook errors are
// logged and never change what the caller receives.
func Observed(a Agent, logger *slog.Logger, hooks ...Hook) Agent {
	logger = orDiscard(logger)

	return AgentFunc(func(ctx context.Context, input string) (*intent.Result, error) {
		start := time.Now()
		res, err := a.Process(ctx, input)
		if res == nil && err == nil {
			err = ErrNoResult
		}
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("classification failed", "kind", intent.KindOf(err), "error", err, "elapsed", elapsed)
		} else {
			logger.Info("classification complete", "intent", res.Intent, "elapsed", elapsed)
		}

		for i, h := range hooks {
			if herr := h(ctx, input, res, err); herr != nil {
				logger.Warn("classification hook failed", "hook", i, "error", herr)
			}
		}
		return res, err
	})
}

// Router classifies a request and dispatches it to the handler registered for
// the resulting intent. Handlers must be registered before the first Process call.
type Router struct {
	classifier Agent
	handlers   map[intent.Intent]Agent
	logger     *slog.Logger
}

// NewRouter returns a Router with no handlers.
func NewRouter(classifier Agent, logger *slog.Logger) *Router {
	return &Router{
		classifier: classifier,
		handlers:   make(map[intent.Intent]Agent),
		logger:     orDiscard(logger),
	}
}

// Handle registers h for intent i, replacing any previous handler.
func (r *Router) Handle(i intent.Intent, h Agent) error {
	if !i.Valid() {
		return fmt.Errorf("agent: registering handler: %w", intent.UnrecognizedIntent(string(i)))
	}
	r.handlers[i] = h
	return nil
}

// Process classifies input. When a handler is registered for the intent the
// original input is passed to it and its result is returned; otherwise the
// classification itself is returned.
func (r *Router) Process(ctx context.Context, input string) (*intent.Result, error) {
	res, err := r.classifier.Process(ctx, input)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoResult
	}

	h, ok := r.handlers[res.Intent]
	if !ok {
		return res, nil
	}

	r.logger.Debug("dispatching to handler", "intent", res.Intent)
	out, err := h.Process(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("agent: handling %s: %w", res.Intent, err)
	}
	if out == nil {
		return nil, fmt.Errorf("agent: handling %s: %w", res.Intent, ErrNoResult)
	}
	return out, nil
}

// Package agent turns free-form requests into typed intent results.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shahar-caura/relay/internal/intent"
	"github.com/shahar-caura/relay/internal/provider"
	"github.com/shahar-caura/relay/internal/provider/ollama"
	"github.com/shahar-caura/relay/internal/transport"
)

// ErrNoResult is returned by wrappers when an agent reports neither a result
// nor an error.
var ErrNoResult = errors.New("agent: no result and no error")

// Agent classifies a single request. Exactly one of the returned result and
// error is non-nil.
type Agent interface {
	Process(ctx context.Context, input string) (*intent.Result, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, input string) (*intent.Result, error)

func (f AgentFunc) Process(ctx context.Context, input string) (*intent.Result, error) {
	return f(ctx, input)
}

// Classifier asks an Ollama chat endpoint for a classification. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	sender provider.Sender
	url    string
	model  string
	logger *slog.Logger
}

// NewClassifier returns a Classifier that posts to url with the given model.
func NewClassifier(sender provider.Sender, url, model string, logger *slog.Logger) *Classifier {
	return &Classifier{
		sender: sender,
		url:    url,
		model:  model,
		logger: orDiscard(logger),
	}
}

// Model returns the model name sent with every request.
func (c *Classifier) Model() string { return c.model }

// Process runs one classification round trip. Failures are returned as
// *intent.Error and are never retried here.
func (c *Classifier) Process(ctx context.Context, input string) (*intent.Result, error) {
	req, err := ollama.BuildRequest(c.model, input)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	c.logger.Debug("sending classification request", "model", c.model, "url", c.url, "input_len", len(input))

	resp, err := c.sender.Send(ctx, c.url, req)
	if err != nil {
		return nil, fromTransport(err)
	}

	var body json.RawMessage
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fromTransport(err)
	}

	content, err := ollama.ParseEnvelope(body)
	if err != nil {
		return nil, err
	}

	raw, err := intent.Extract(content)
	if err != nil {
		c.logger.Debug("no classification in model output", "content", content)
		return nil, err
	}

	result, err := raw.Resolve()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("classified", "intent", result.Intent, "params", len(result.Params))
	return result, nil
}

// fromTransport maps transport failures onto classification error kinds.
func fromTransport(err error) error {
	var se *transport.StatusError
	switch {
	case errors.As(err, &se):
		return intent.BackendError(se.Code, se.Body)
	case errors.Is(err, transport.ErrDecodeFailed):
		return intent.MalformedResponse("decoding response body", err)
	default:
		return intent.TransportFailure(err)
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// Package bus answers classification requests over NATS request/reply.
package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
)

// Options configures a Responder.
type Options struct {
	URL     string
	Name    string
	Subject string
	Queue   string
	// Timeout bounds each classification; zero means no bound beyond the agent's own.
	Timeout time.Duration
}

// Request is the JSON request body. Plain-text payloads are accepted too.
type Request struct {
	Input string `json:"input"`
}

// Responder queue-subscribes to a subject and replies with the outcome of
// each classification.
type Responder struct {
	conn   *nats.Conn
	agent  agent.Agent
	opts   Options
	logger *slog.Logger
}

// Connect dials the NATS server. Reconnects are retried indefinitely.
func Connect(opts Options, a agent.Agent, logger *slog.Logger) (*Responder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "relay"
	}

	conn, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connecting to %s: %w", opts.URL, err)
	}

	return newResponder(conn, a, opts, logger), nil
}

func newResponder(conn *nats.Conn, a agent.Agent, opts Options, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Responder{conn: conn, agent: a, opts: opts, logger: logger}
}

// Run serves requests until ctx is cancelled, then drains the subscription.
func (r *Responder) Run(ctx context.Context) error {
	sub, err := r.conn.QueueSubscribe(r.opts.Subject, r.opts.Queue, func(msg *nats.Msg) {
		reply := r.handle(ctx, msg.Data)
		if msg.Reply == "" {
			r.logger.Warn("bus: request without reply subject", "subject", msg.Subject)
			return
		}
		if err := msg.Respond(reply); err != nil {
			r.logger.Error("bus: sending reply", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("bus: subscribing to %s: %w", r.opts.Subject, err)
	}

	r.logger.Info("listening on nats", "subject", r.opts.Subject, "queue", r.opts.Queue)

	<-ctx.Done()

	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("bus: draining subscription: %w", err)
	}
	return nil
}

// Close closes the connection.
func (r *Responder) Close() {
	r.conn.Close()
}

// handle classifies one request payload and returns the encoded reply.
func (r *Responder) handle(ctx context.Context, data []byte) []byte {
	input, err := decodeRequest(data)
	if err != nil {
		return encode(intent.Failure{Error: "invalid request", Kind: "invalid_request", Detail: err.Error()})
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	res, err := r.agent.Process(ctx, input)
	if err != nil {
		r.logger.Debug("bus: classification failed", "kind", intent.KindOf(err), "error", err)
		return encode(intent.Describe(err))
	}
	return encode(res)
}

// decodeRequest accepts either a {"input": ...} object or raw text.
func decodeRequest(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return string(trimmed), nil
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return "", fmt.Errorf("decoding request: %w", err)
	}
	return req.Input, nil
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Result and Failure always encode.
		return []byte(`{"error":"internal error","kind":"internal"}`)
	}
	return data
}

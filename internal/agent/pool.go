package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shahar-caura/relay/internal/intent"
)

// Pool tries its agents in order, moving to the next one when the backend
// is unreachable or refuses the request. Failures in the model's answer are
// returned from the agent that produced them.
type Pool struct {
	agents []Agent
	names  []string
	logger *slog.Logger
}

// NewPool creates a pool from agents and their display names. agents and
// names must have the same length and at least one entry.
func NewPool(agents []Agent, names []string, logger *slog.Logger) (*Pool, error) {
	if len(agents) == 0 {
		return nil, errors.New("agent: pool needs at least one agent")
	}
	if len(agents) != len(names) {
		return nil, fmt.Errorf("agent: pool has %d agents but %d names", len(agents), len(names))
	}
	return &Pool{agents: agents, names: names, logger: orDiscard(logger)}, nil
}

// Primary returns the first agent in the pool.
func (p *Pool) Primary() Agent {
	return p.agents[0]
}

// Len returns the number of agents in the pool.
func (p *Pool) Len() int {
	return len(p.agents)
}

func (p *Pool) Process(ctx context.Context, input string) (*intent.Result, error) {
	var err error
	for i, a := range p.agents {
		var res *intent.Result
		res, err = a.Process(ctx, input)
		if err == nil || !fallsBack(err) || ctx.Err() != nil {
			return res, err
		}
		if i+1 < len(p.agents) {
			p.logger.Warn("classifier unavailable, falling back",
				"from", p.names[i], "to", p.names[i+1], "error", err)
		}
	}
	return nil, err
}

func fallsBack(err error) bool {
	return errors.Is(err, intent.ErrTransport) || errors.Is(err, intent.ErrBackend)
}

// Outcome is the result of classifying one input in a batch.
type Outcome struct {
	Input  string
	Result *intent.Result
	Err    error
}

// Batch classifies inputs with at most workers concurrent calls. Outcomes are
// returned in input order.
func Batch(ctx context.Context, a Agent, inputs []string, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome, len(inputs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input string) {
			defer wg.Done()
			outcomes[i].Input = input

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i].Err = intent.TransportFailure(ctx.Err())
				return
			}
			defer func() { <-sem }()

			outcomes[i].Result, outcomes[i].Err = a.Process(ctx, input)
		}(i, input)
	}
	wg.Wait()

	return outcomes
}

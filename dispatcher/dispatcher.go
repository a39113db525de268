// Package dispatcher holds the candidate agents for incoming requests.
//
// No selection policy is defined for more than one agent: Route refuses to guess
// and returns ErrNoRoutingPolicy. With a single agent that agent handles everything.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/agent"
	"github.com/uslanozan/Gollama-the-Navigator/history"
	"github.com/uslanozan/Gollama-the-Navigator/models"
)

var (
	ErrNoAgents        = errors.New("dispatcher has no agents")
	ErrNoRoutingPolicy = errors.New("no routing policy for multiple agents")
	ErrAgentNotFound   = errors.New("agent not found")
)

// Runner executes one turn for an agent.
type Runner interface {
	Run(ctx context.Context, a *agent.Agent, history []models.Message, prompt string) (*agent.Result, error)
}

type Dispatcher struct {
	model   models.ModelReference
	agents  []*agent.Agent
	runner  Runner
	history history.Store
	logger  *zap.Logger
}

// Option configures the parts of a Dispatcher needed by Handle.
type Option func(*Dispatcher)

func WithRunner(r Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

func WithHistory(s history.Store) Option {
	return func(d *Dispatcher) { d.history = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func New(model models.ModelReference, agents []*agent.Agent, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		model:   model,
		agents:  append([]*agent.Agent(nil), agents...),
		history: history.NewMemoryStore(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Model() models.ModelReference { return d.model }

// Agents returns the agents in registration order.
func (d *Dispatcher) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), d.agents...)
}

func (d *Dispatcher) Get(name string) (*agent.Agent, error) {
	for _, a := range d.agents {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
}

// ToolSpecs lists the tools of every agent.
func (d *Dispatcher) ToolSpecs() []models.ToolSpec {
	var specs []models.ToolSpec
	for _, a := range d.agents {
		specs = append(specs, a.ToolSpecs()...)
	}
	return specs
}

// Route picks the agent for prompt. The prompt is not inspected.
func (d *Dispatcher) Route(_ string) (*agent.Agent, error) {
	switch len(d.agents) {
	case 0:
		return nil, ErrNoAgents
	case 1:
		return d.agents[0], nil
	default:
		return nil, fmt.Errorf("%w (%d agents)", ErrNoRoutingPolicy, len(d.agents))
	}
}

// Reply is the outcome of Handle.
type Reply struct {
	Agent   string
	Content string
}

// Handle routes prompt, runs it with the session's history and stores the new messages.
func (d *Dispatcher) Handle(ctx context.Context, sessionID, prompt string) (*Reply, error) {
	if d.runner == nil {
		return nil, errors.New("dispatcher has no runner")
	}

	a, err := d.Route(prompt)
	if err != nil {
		return nil, err
	}

	past, err := d.history.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	d.logger.Info("dispatching prompt",
		zap.String("agent", a.Name()),
		zap.String("session_id", sessionID),
		zap.Int("history", len(past)))

	res, err := d.runner.Run(ctx, a, past, prompt)
	if err != nil {
		return nil, err
	}

	if err := d.history.Append(ctx, sessionID, res.Messages...); err != nil {
		// history is best effort
		d.logger.Warn("failed to store history", zap.String("session_id", sessionID), zap.Error(err))
	}

	return &Reply{Agent: a.Name(), Content: res.Content}, nil
}

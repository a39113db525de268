// Package agent binds a model reference, descriptive metadata and tools, and
// runs conversations for such a binding against an Ollama chat endpoint.
package agent

import (
	"github.com/uslanozan/Gollama-the-Navigator/models"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

const (
	DefaultName        = "Smart Travel Assistant"
	DefaultDescription = "A helpful assistant for user questions related to locations,maps & directions."
	DefaultInstruction = "Answer user questions to the best of your knowledge"
)

type Config struct {
	Name        string
	Description string
	Instruction string
	Model       models.ModelReference
	Tools       []tools.Tool
}

// Agent is immutable once built.
type Agent struct {
	name        string
	description string
	instruction string
	model       models.ModelReference
	tools       []tools.Tool
}

func New(cfg Config) *Agent {
	return &Agent{
		name:        cfg.Name,
		description: cfg.Description,
		instruction: cfg.Instruction,
		model:       cfg.Model,
		tools:       append([]tools.Tool(nil), cfg.Tools...),
	}
}

// NewTravelAssistant builds the root agent with its default metadata.
func NewTravelAssistant(model models.ModelReference, toolset ...tools.Tool) *Agent {
	return New(Config{
		Name:        DefaultName,
		Description: DefaultDescription,
		Instruction: DefaultInstruction,
		Model:       model,
		Tools:       toolset,
	})
}

func (a *Agent) Name() string                 { return a.name }
func (a *Agent) Description() string          { return a.description }
func (a *Agent) Instruction() string          { return a.instruction }
func (a *Agent) Model() models.ModelReference { return a.model }

// Tools returns a copy of the tools in construction order.
func (a *Agent) Tools() []tools.Tool {
	return append([]tools.Tool(nil), a.tools...)
}

func (a *Agent) Tool(name string) (tools.Tool, error) {
	return tools.Find(a.tools, name)
}

// ToolSpecs describes the agent's tools for GET /tools.
func (a *Agent) ToolSpecs() []models.ToolSpec {
	specs := make([]models.ToolSpec, 0, len(a.tools))
	for _, t := range a.tools {
		specs = append(specs, models.ToolSpec{
			Agent:       a.name,
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return specs
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/uslanozan/Gollama-the-Navigator/models"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
	"github.com/uslanozan/Gollama-the-Navigator/tracing"
)

// ErrMaxSteps is returned when the model keeps requesting tools past the step limit.
var ErrMaxSteps = errors.New("agent exceeded max tool steps")

// ChatClient is the part of *api.Client the runner needs.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// NewOllamaClient connects to the endpoint named by the model reference.
func NewOllamaClient(model models.ModelReference, timeout time.Duration) (*api.Client, error) {
	base, err := model.BaseURL()
	if err != nil {
		return nil, err
	}
	return api.NewClient(base, &http.Client{Timeout: timeout}), nil
}

type Runner struct {
	client   ChatClient
	logger   *zap.Logger
	maxSteps int
}

func NewRunner(client ChatClient, logger *zap.Logger, maxSteps int) *Runner {
	if maxSteps <= 0 {
		maxSteps = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, logger: logger, maxSteps: maxSteps}
}

// Result is the outcome of one user turn.
type Result struct {
	Content string
	// Messages holds the turn's new messages, starting with the user prompt.
	Messages []models.Message
}

// Run sends instruction, history and prompt to the model, executing tool calls
// until the model answers in plain text.
func (r *Runner) Run(ctx context.Context, a *Agent, history []models.Message, prompt string) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "agent.run",
		attribute.String("agent", a.Name()),
		attribute.String("model", a.Model().String()))
	defer func() { tracing.End(span, err) }()

	ollamaTools, err := toOllamaTools(a.tools)
	if err != nil {
		return nil, err
	}

	msgs := make([]api.Message, 0, len(history)+2)
	if a.Instruction() != "" {
		msgs = append(msgs, api.Message{Role: string(models.RoleSystem), Content: a.Instruction()})
	}
	for _, m := range history {
		msgs = append(msgs, toOllamaMessage(m))
	}

	turn := []models.Message{{Role: models.RoleUser, Content: prompt}}
	msgs = append(msgs, api.Message{Role: string(models.RoleUser), Content: prompt})

	for step := 0; step < r.maxSteps; step++ {
		reply, err := r.chat(ctx, a, msgs, ollamaTools)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, reply)

		if len(reply.ToolCalls) == 0 {
			turn = append(turn, models.Message{Role: models.RoleAssistant, Content: reply.Content})
			return &Result{Content: reply.Content, Messages: turn}, nil
		}

		callsJSON, err := json.Marshal(reply.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("marshal tool calls: %w", err)
		}
		turn = append(turn, models.Message{Role: models.RoleAssistant, Content: reply.Content, ToolCallsJSON: callsJSON})

		for _, call := range reply.ToolCalls {
			out := r.callTool(ctx, a, call)
			msgs = append(msgs, api.Message{Role: string(models.RoleTool), Content: out, ToolName: call.Function.Name})
			turn = append(turn, models.Message{Role: models.RoleTool, Content: out, ToolName: call.Function.Name})
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxSteps, r.maxSteps)
}

func (r *Runner) chat(ctx context.Context, a *Agent, msgs []api.Message, ollamaTools api.Tools) (api.Message, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    a.Model().Name,
		Messages: msgs,
		Tools:    ollamaTools,
		Stream:   &stream,
	}

	var (
		content strings.Builder
		calls   []api.ToolCall
	)
	err := r.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		calls = append(calls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		r.logger.Error("model chat failed", zap.String("agent", a.Name()), zap.String("model", a.Model().String()), zap.Error(err))
		return api.Message{}, fmt.Errorf("chat with %s: %w", a.Model(), err)
	}

	r.logger.Debug("model replied",
		zap.String("agent", a.Name()),
		zap.Int("content_len", content.Len()),
		zap.Int("tool_calls", len(calls)))

	return api.Message{Role: string(models.RoleAssistant), Content: content.String(), ToolCalls: calls}, nil
}

// callTool never fails the turn: errors are reported back to the model as text.
func (r *Runner) callTool(ctx context.Context, a *Agent, call api.ToolCall) string {
	name := call.Function.Name
	ctx, span := tracing.StartSpan(ctx, "agent.tool_call", attribute.String("tool", name))

	out, err := r.invokeTool(ctx, a, call)
	tracing.End(span, err)

	if err != nil {
		r.logger.Warn("tool call failed", zap.String("agent", a.Name()), zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("error calling tool %s: %v", name, err)
	}
	r.logger.Info("tool called", zap.String("agent", a.Name()), zap.String("tool", name))
	return out
}

func (r *Runner) invokeTool(ctx context.Context, a *Agent, call api.ToolCall) (string, error) {
	t, err := a.Tool(call.Function.Name)
	if err != nil {
		return "", err
	}
	args, err := json.Marshal(call.Function.Arguments)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
	}
	return t.Invoke(ctx, args)
}

func toOllamaMessage(m models.Message) api.Message {
	msg := api.Message{Role: string(m.Role), Content: m.Content, ToolName: m.ToolName}
	if len(m.ToolCallsJSON) > 0 {
		var calls []api.ToolCall
		if err := json.Unmarshal(m.ToolCallsJSON, &calls); err == nil {
			msg.ToolCalls = calls
		}
	}
	return msg
}

// toOllamaTools converts tool schemas into Ollama's function-tool format.
// api.ToolProperty has no nested properties, so object-typed parameters keep
// their shape only as text in the description (see foldNestedObjects).
func toOllamaTools(list []tools.Tool) (api.Tools, error) {
	out := make(api.Tools, 0, len(list))
	for _, t := range list {
		params := foldNestedObjects(t.Schema)
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}

		raw, err := json.Marshal(map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}

		var tool api.Tool
		if err := json.Unmarshal(raw, &tool); err != nil {
			return nil, fmt.Errorf("tool %s: convert schema: %w", t.Name, err)
		}
		out = append(out, tool)
	}
	return out, nil
}

// foldNestedObjects appends the schema of each object-typed top-level property
// to that property's description. Schemas it cannot parse pass through.
func foldNestedObjects(schema json.RawMessage) json.RawMessage {
	if len(schema) == 0 {
		return schema
	}
	var root map[string]any
	if err := json.Unmarshal(schema, &root); err != nil {
		return schema
	}
	props, ok := root["properties"].(map[string]any)
	if !ok {
		return schema
	}

	changed := false
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		nested, ok := prop["properties"]
		if !ok {
			continue
		}
		shape := map[string]any{"type": "object", "properties": nested}
		if req, ok := prop["required"]; ok {
			shape["required"] = req
		}
		data, err := json.Marshal(shape)
		if err != nil {
			continue
		}
		desc, _ := prop["description"].(string)
		prop["description"] = strings.TrimSpace(desc + " JSON schema: " + string(data))
		props[name] = prop
		changed = true
	}
	if !changed {
		return schema
	}

	data, err := json.Marshal(root)
	if err != nil {
		return schema
	}
	return data
}

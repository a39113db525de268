package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uslanozan/Gollama-the-Navigator/agent"
	"github.com/uslanozan/Gollama-the-Navigator/history"
	"github.com/uslanozan/Gollama-the-Navigator/models"
	"github.com/uslanozan/Gollama-the-Navigator/tools"
)

var testModel = models.ModelReference{Provider: models.ProviderOllamaChat, Name: "gemma3:270m", APIBase: "localhost:10010"}

type fakeRunner struct {
	histories [][]models.Message
	err       error
}

func (f *fakeRunner) Run(_ context.Context, a *agent.Agent, past []models.Message, prompt string) (*agent.Result, error) {
	f.histories = append(f.histories, past)
	if f.err != nil {
		return nil, f.err
	}
	answer := a.Name() + " answers " + prompt
	return &agent.Result{
		Content: answer,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: prompt},
			{Role: models.RoleAssistant, Content: answer},
		},
	}, nil
}

type failingStore struct{ history.Store }

func (failingStore) Load(context.Context, string) ([]models.Message, error) { return nil, nil }
func (failingStore) Append(context.Context, string, ...models.Message) error {
	return errors.New("disk full")
}

func travel() *agent.Agent {
	return agent.NewTravelAssistant(testModel, tools.DirectionsTool())
}

func TestRoute(t *testing.T) {
	t.Run("no agents", func(t *testing.T) {
		_, err := New(testModel, nil).Route("hi")
		assert.ErrorIs(t, err, ErrNoAgents)
	})

	t.Run("single agent", func(t *testing.T) {
		a := travel()
		got, err := New(testModel, []*agent.Agent{a}).Route("anything at all")
		require.NoError(t, err)
		assert.Same(t, a, got)
	})

	t.Run("several agents", func(t *testing.T) {
		d := New(testModel, []*agent.Agent{travel(), agent.New(agent.Config{Name: "production", Model: testModel})})
		_, err := d.Route("directions to Berlin")
		assert.ErrorIs(t, err, ErrNoRoutingPolicy)
	})
}

func TestAccessors(t *testing.T) {
	a := travel()
	b := agent.New(agent.Config{Name: "second", Model: testModel})
	d := New(testModel, []*agent.Agent{a, b})

	assert.Equal(t, testModel, d.Model())
	assert.Equal(t, []*agent.Agent{a, b}, d.Agents())

	got, err := d.Get("second")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = d.Get("third")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	specs := d.ToolSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "get_directions", specs[0].Name)
}

func TestHandle_KeepsHistoryPerSession(t *testing.T) {
	runner := &fakeRunner{}
	d := New(testModel, []*agent.Agent{travel()}, WithRunner(runner))
	ctx := context.Background()

	reply, err := d.Handle(ctx, "s1", "first")
	require.NoError(t, err)
	assert.Equal(t, "Smart Travel Assistant", reply.Agent)
	assert.Equal(t, "Smart Travel Assistant answers first", reply.Content)

	_, err = d.Handle(ctx, "s1", "second")
	require.NoError(t, err)
	_, err = d.Handle(ctx, "s2", "other")
	require.NoError(t, err)

	require.Len(t, runner.histories, 3)
	assert.Empty(t, runner.histories[0])
	assert.Len(t, runner.histories[1], 2)
	assert.Empty(t, runner.histories[2])
}

func TestHandle_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(testModel, []*agent.Agent{travel()}).Handle(ctx, "s", "hi")
	assert.Error(t, err, "no runner")

	_, err = New(testModel, nil, WithRunner(&fakeRunner{})).Handle(ctx, "s", "hi")
	assert.ErrorIs(t, err, ErrNoAgents)

	boom := errors.New("model down")
	_, err = New(testModel, []*agent.Agent{travel()}, WithRunner(&fakeRunner{err: boom})).Handle(ctx, "s", "hi")
	assert.ErrorIs(t, err, boom)
}

func TestHandle_HistoryWriteFailureIsNotFatal(t *testing.T) {
	d := New(testModel, []*agent.Agent{travel()}, WithRunner(&fakeRunner{}), WithHistory(failingStore{}))

	reply, err := d.Handle(context.Background(), "s", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Content)
}

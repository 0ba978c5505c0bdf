package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
)

type scriptedCaller struct {
	responses []siumai.ChatResponse
	calls     int
}

func (c *scriptedCaller) Generate(ctx context.Context, req siumai.ChatRequest) (siumai.ChatResponse, error) {
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

type echoResolver struct{}

func (echoResolver) Resolve(ctx context.Context, name, argsJSON string) (string, error) {
	return `{"ok":true}`, nil
}

func toolCallResponse(id, name, args string) siumai.ChatResponse {
	return siumai.ChatResponse{
		Content:      siumai.PartsContent(siumai.ToolCallPart{ID: id, Name: name, ArgumentsJSON: args}),
		FinishReason: &siumai.FinishReason{Kind: siumai.FinishToolCalls},
	}
}

func textResponse(text string) siumai.ChatResponse {
	return siumai.ChatResponse{
		Content:      siumai.TextContent(text),
		FinishReason: &siumai.FinishReason{Kind: siumai.FinishStop},
	}
}

func TestOrchestrator_StopsOnNoToolCalls(t *testing.T) {
	caller := &scriptedCaller{responses: []siumai.ChatResponse{
		toolCallResponse("call_1", "get_weather", `{"city":"ny"}`),
		textResponse("it is sunny"),
	}}
	o := New(Config{
		Caller:     caller,
		Dispatcher: NewDispatcher(map[string]ToolResolver{"get_weather": echoResolver{}}),
	})

	result, err := o.Generate(context.Background(), siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("weather?")}},
	})
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "it is sunny", result.FinalResponse().Text())
	assert.Equal(t, 2, caller.calls)
}

func TestOrchestrator_SafetyStopAtMaxSteps(t *testing.T) {
	infiniteToolCalls := make([]siumai.ChatResponse, 0, DefaultMaxSteps)
	for i := 0; i < DefaultMaxSteps; i++ {
		infiniteToolCalls = append(infiniteToolCalls, toolCallResponse("call", "noop", `{}`))
	}
	caller := &scriptedCaller{responses: infiniteToolCalls}
	o := New(Config{
		Caller:     caller,
		Dispatcher: NewDispatcher(map[string]ToolResolver{"noop": echoResolver{}}),
	})

	result, err := o.Generate(context.Background(), siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("loop")}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Steps, DefaultMaxSteps)
}

func TestOrchestrator_PrepareStepCanOverrideMessages(t *testing.T) {
	caller := &scriptedCaller{responses: []siumai.ChatResponse{textResponse("done")}}
	var seenMessages [][]siumai.Message
	o := New(Config{
		Caller:     caller,
		Dispatcher: NewDispatcher(nil),
		PrepareStep: func(ctx context.Context, step StepContext) (StepOverrides, error) {
			seenMessages = append(seenMessages, step.Messages)
			return StepOverrides{Messages: append(step.Messages, siumai.Message{Role: siumai.RoleSystem, Content: siumai.TextContent("be terse")})}, nil
		},
	})

	_, err := o.Generate(context.Background(), siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
	})
	require.NoError(t, err)
	require.Len(t, seenMessages, 1)
	assert.Len(t, seenMessages[0], 1)
}

func TestStopConditions_AnyOfShortCircuits(t *testing.T) {
	calledSecond := false
	cond := AnyOf(
		func(steps []StepResult) bool { return true },
		func(steps []StepResult) bool { calledSecond = true; return false },
	)
	assert.True(t, cond(nil))
	assert.False(t, calledSecond)
}

func TestStopConditions_AllOfShortCircuits(t *testing.T) {
	calledSecond := false
	cond := AllOf(
		func(steps []StepResult) bool { return false },
		func(steps []StepResult) bool { calledSecond = true; return true },
	)
	assert.False(t, cond(nil))
	assert.False(t, calledSecond)
}

func TestHasToolCall_MatchesMostRecentStepOnly(t *testing.T) {
	cond := HasToolCall("get_weather")
	steps := []StepResult{
		{ToolCalls: []siumai.ToolCallPart{{Name: "search"}}},
		{ToolCalls: []siumai.ToolCallPart{{Name: "get_weather"}}},
	}
	assert.True(t, cond(steps))
	assert.False(t, cond(steps[:1]))
}

// scriptedStreamCaller replays one pre-built event channel per Generate
// call, mirroring Client.GenerateStream's "closed channel, no further
// sends" contract without needing an httptest server.
type scriptedStreamCaller struct {
	steps []func() <-chan siumai.ChatStreamEvent
	calls int
}

func scriptedStream(events ...siumai.ChatStreamEvent) func() <-chan siumai.ChatStreamEvent {
	return func() <-chan siumai.ChatStreamEvent {
		ch := make(chan siumai.ChatStreamEvent, len(events))
		for _, e := range events {
			ch <- e
		}
		close(ch)
		return ch
	}
}

func (c *scriptedStreamCaller) GenerateStream(ctx context.Context, req siumai.ChatRequest) (<-chan siumai.ChatStreamEvent, error) {
	ch := c.steps[c.calls]()
	c.calls++
	return ch, nil
}

func drainStepEvents(t *testing.T, events <-chan StepStreamEvent) []StepStreamEvent {
	t.Helper()
	var out []StepStreamEvent
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestOrchestrator_GenerateStream_RunsToolLoopAcrossSteps(t *testing.T) {
	caller := &scriptedStreamCaller{steps: []func() <-chan siumai.ChatStreamEvent{
		scriptedStream(
			siumai.ToolCallDeltaEvent{ID: "call_1", FunctionName: "get_weather", ArgumentsDelta: `{"city":"ny"}`},
			siumai.StreamEndEvent{Response: toolCallResponse("call_1", "get_weather", `{"city":"ny"}`)},
		),
		scriptedStream(
			siumai.ContentDeltaEvent{Delta: "it is sunny"},
			siumai.StreamEndEvent{Response: textResponse("it is sunny")},
		),
	}}
	o := New(Config{
		StreamCaller: caller,
		Dispatcher:   NewDispatcher(map[string]ToolResolver{"get_weather": echoResolver{}}),
	})

	events, err := o.GenerateStream(context.Background(), siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("weather?")}},
	})
	require.NoError(t, err)

	got := drainStepEvents(t, events)
	require.Equal(t, 2, caller.calls)

	var sawToolDelta, sawFinalEnd bool
	var lastStepIndex int
	for _, se := range got {
		lastStepIndex = se.StepIndex
		switch ev := se.Event.(type) {
		case siumai.ToolCallDeltaEvent:
			assert.Equal(t, 0, se.StepIndex)
			sawToolDelta = true
		case siumai.StreamEndEvent:
			if se.StepIndex == 1 {
				assert.Equal(t, "it is sunny", ev.Response.Text())
				sawFinalEnd = true
			}
		}
	}
	assert.True(t, sawToolDelta)
	assert.True(t, sawFinalEnd)
	assert.Equal(t, 1, lastStepIndex)
}

func TestOrchestrator_GenerateStream_RequiresStreamCaller(t *testing.T) {
	o := New(Config{Dispatcher: NewDispatcher(nil)})
	_, err := o.GenerateStream(context.Background(), siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
	})
	require.Error(t, err)
}

func TestOrchestrator_GenerateStream_CtxCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	caller := &scriptedStreamCaller{steps: []func() <-chan siumai.ChatStreamEvent{
		scriptedStream(siumai.StreamEndEvent{Response: toolCallResponse("call_1", "get_weather", `{}`)}),
	}}
	o := New(Config{
		StreamCaller: caller,
		Dispatcher:   NewDispatcher(map[string]ToolResolver{"get_weather": echoResolver{}}),
	})
	cancel()

	events, err := o.GenerateStream(ctx, siumai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("weather?")}},
	})
	require.NoError(t, err)
	got := drainStepEvents(t, events)
	assert.Empty(t, got)
}

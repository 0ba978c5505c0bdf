package streamconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
)

func responsesFrame(eventType, data string) Frame {
	return Frame{Event: eventType, Data: []byte(data)}
}

func TestOpenAIResponses_CreatedEmitsStreamStartOnce(t *testing.T) {
	c := NewOpenAIResponses()
	events, err := c.Convert(responsesFrame("response.created", `{"type":"response.created","response":{"id":"resp_1","model":"gpt-4.1"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	start, ok := events[0].(siumai.StreamStartEvent)
	require.True(t, ok)
	assert.Equal(t, "resp_1", start.Metadata.ID)
}

func TestOpenAIResponses_TextDeltaEmitsContentDelta(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))
	events, err := c.Convert(responsesFrame("response.output_text.delta", `{"type":"response.output_text.delta","delta":"hi"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	delta, ok := events[0].(siumai.ContentDeltaEvent)
	require.True(t, ok)
	assert.Equal(t, "hi", delta.Delta)
}

func TestOpenAIResponses_FunctionCallLifecycleEmitsToolEvents(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))

	events, err := c.Convert(responsesFrame("response.output_item.added", `{"type":"response.output_item.added","output_index":0,"item":{"id":"fc_1","type":"function_call","name":"get_weather"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	startEvt, ok := events[0].(siumai.CustomEvent)
	require.True(t, ok)
	assert.Equal(t, "tool-input-start", startEvt.Data["type"])

	events, err = c.Convert(responsesFrame("response.function_call_arguments.delta", `{"type":"response.function_call_arguments.delta","output_index":0,"item_id":"fc_1","delta":"{\"city\":"}`))
	require.NoError(t, err)
	var sawDelta bool
	for _, e := range events {
		if tc, ok := e.(siumai.ToolCallDeltaEvent); ok {
			assert.Equal(t, `{"city":`, tc.ArgumentsDelta)
			sawDelta = true
		}
	}
	assert.True(t, sawDelta)

	events, err = c.Convert(responsesFrame("response.output_item.done", `{"type":"response.output_item.done","output_index":0,"item":{"id":"fc_1","type":"function_call","name":"get_weather","arguments":"{\"city\":\"ny\"}"}}`))
	require.NoError(t, err)
	var sawToolCall bool
	for _, e := range events {
		if ce, ok := e.(siumai.CustomEvent); ok && ce.Data["type"] == "tool-call" {
			assert.Equal(t, "fc_1", ce.Data["toolCallId"])
			sawToolCall = true
		}
	}
	assert.True(t, sawToolCall)
}

func TestOpenAIResponses_CompletedProducesStreamEnd(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))
	events, err := c.Convert(responsesFrame("response.completed", `{"type":"response.completed","response":{"id":"r","model":"gpt-4.1","status":"completed","output":[{"type":"message","content":[{"text":"hi"}]}],"usage":{"input_tokens":3,"output_tokens":2,"total_tokens":5}}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	end, ok := events[0].(siumai.StreamEndEvent)
	require.True(t, ok)
	require.NotNil(t, end.Response.FinishReason)
	assert.Equal(t, siumai.FinishStop, end.Response.FinishReason.Kind)
	assert.Equal(t, "hi", end.Response.Text())
}

func TestOpenAIResponses_UnknownEventIgnored(t *testing.T) {
	c := NewOpenAIResponses()
	events, err := c.Convert(responsesFrame("response.mcp_call.in_progress", `{"type":"response.mcp_call.in_progress"}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOpenAIResponses_ApplyPatchCustomToolCallEmitsToolEvents(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-5"}}`))

	events, err := c.Convert(responsesFrame("response.output_item.added", `{"output_index":0,"item":{"id":"ap_1","type":"custom_tool_call","name":"apply_patch"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	start := events[0].(siumai.CustomEvent)
	assert.Equal(t, "tool-input-start", start.Data["type"])
	assert.Equal(t, "apply_patch", start.Data["toolName"])

	events, err = c.Convert(responsesFrame("response.custom_tool_call_input.delta", `{"output_index":0,"item_id":"ap_1","delta":"{\"callId\":\"ap_1\",\"operation\":"}`))
	require.NoError(t, err)
	var sawDelta bool
	for _, e := range events {
		if ce, ok := e.(siumai.CustomEvent); ok && ce.Data["type"] == "tool-input-delta" {
			sawDelta = true
		}
	}
	assert.True(t, sawDelta)

	events, err = c.Convert(responsesFrame("response.output_item.done", `{"output_index":0,"item":{"id":"ap_1","type":"custom_tool_call","name":"apply_patch","arguments":"{\"callId\":\"ap_1\",\"operation\":{\"type\":\"create_file\"}}"}}`))
	require.NoError(t, err)
	var call siumai.CustomEvent
	var sawToolCall bool
	for _, e := range events {
		if ce, ok := e.(siumai.CustomEvent); ok && ce.Data["type"] == "tool-call" {
			call = ce
			sawToolCall = true
		}
	}
	require.True(t, sawToolCall)
	assert.Equal(t, "apply_patch", call.Data["toolName"])
	assert.Equal(t, "ap_1", call.Data["toolCallId"])
}

func TestOpenAIResponses_WebSearchCallEmitsToolEventsWithoutDelta(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))

	_, err := c.Convert(responsesFrame("response.output_item.added", `{"output_index":0,"item":{"id":"ws_1","type":"web_search_call"}}`))
	require.NoError(t, err)

	events, err := c.Convert(responsesFrame("response.output_item.done", `{"output_index":0,"item":{"id":"ws_1","type":"web_search_call","action":{"query":"weather today"}}}`))
	require.NoError(t, err)

	var sawEnd, sawCall bool
	for _, e := range events {
		ce, ok := e.(siumai.CustomEvent)
		if !ok {
			continue
		}
		switch ce.Data["type"] {
		case "tool-input-end":
			sawEnd = true
		case "tool-call":
			sawCall = true
			assert.Equal(t, "web_search", ce.Data["toolName"])
			assert.Equal(t, `{"query":"weather today"}`, ce.Data["input"])
		}
	}
	assert.True(t, sawEnd)
	assert.True(t, sawCall)
}

func TestOpenAIResponses_CodeInterpreterCallStreamsCodeDelta(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))

	_, _ = c.Convert(responsesFrame("response.output_item.added", `{"output_index":0,"item":{"id":"ci_1","type":"code_interpreter_call"}}`))
	events, err := c.Convert(responsesFrame("response.code_interpreter_call_code.delta", `{"output_index":0,"item_id":"ci_1","delta":"print(1)"}`))
	require.NoError(t, err)
	var sawDelta bool
	for _, e := range events {
		if tc, ok := e.(siumai.ToolCallDeltaEvent); ok {
			assert.Equal(t, "print(1)", tc.ArgumentsDelta)
			sawDelta = true
		}
	}
	assert.True(t, sawDelta)

	events, err = c.Convert(responsesFrame("response.output_item.done", `{"output_index":0,"item":{"id":"ci_1","type":"code_interpreter_call","code":"print(1)"}}`))
	require.NoError(t, err)
	var sawToolCall bool
	for _, e := range events {
		if ce, ok := e.(siumai.CustomEvent); ok && ce.Data["type"] == "tool-call" {
			assert.Equal(t, "code_interpreter", ce.Data["toolName"])
			sawToolCall = true
		}
	}
	assert.True(t, sawToolCall)
}

func TestOpenAIResponses_McpCallArgumentsDeltaEmitsToolCallDelta(t *testing.T) {
	c := NewOpenAIResponses()
	_, _ = c.Convert(responsesFrame("response.created", `{"response":{"id":"r","model":"gpt-4.1"}}`))

	_, _ = c.Convert(responsesFrame("response.output_item.added", `{"output_index":0,"item":{"id":"mc_1","type":"mcp_call","name":"search_docs"}}`))
	events, err := c.Convert(responsesFrame("response.mcp_call_arguments.delta", `{"output_index":0,"item_id":"mc_1","delta":"{\"q\":"}`))
	require.NoError(t, err)
	var sawDelta bool
	for _, e := range events {
		if tc, ok := e.(siumai.ToolCallDeltaEvent); ok {
			assert.Equal(t, `{"q":`, tc.ArgumentsDelta)
			sawDelta = true
		}
	}
	assert.True(t, sawDelta)
}

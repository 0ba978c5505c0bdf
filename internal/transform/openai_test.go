package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
)

func TestOpenAIRequest_Transform(t *testing.T) {
	maxTokens := 256
	temp := 0.5

	tests := []struct {
		name    string
		xform   OpenAIRequest
		req     siumai.ChatRequest
		check   func(t *testing.T, body map[string]any)
	}{
		{
			name:  "plain text message uses max_completion_tokens on OpenAI proper",
			xform: NewOpenAIRequest(),
			req: siumai.ChatRequest{
				Model:     "gpt-4o",
				Messages:  []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
				MaxTokens: &maxTokens,
				Temperature: &temp,
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "gpt-4o", body["model"])
				assert.Equal(t, 256, body["max_completion_tokens"])
				assert.Equal(t, 0.5, body["temperature"])
			},
		},
		{
			name:  "developer role downgrades to system when unsupported",
			xform: OpenAIRequest{MaxTokensField: "max_tokens"},
			req: siumai.ChatRequest{
				Model: "grok-2",
				Messages: []siumai.Message{
					{Role: siumai.RoleDeveloper, Content: siumai.TextContent("be terse")},
					{Role: siumai.RoleUser, Content: siumai.TextContent("hi")},
				},
			},
			check: func(t *testing.T, body map[string]any) {
				messages := body["messages"].([]map[string]any)
				require.Len(t, messages, 2)
				assert.Equal(t, "system", messages[0]["role"])
			},
		},
		{
			name:  "stream_options omitted for vendors that reject it",
			xform: OpenAIRequest{OmitStreamOptions: true, MaxTokensField: "max_tokens"},
			req: siumai.ChatRequest{
				Model:    "llama-3.3-70b",
				Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
				Stream:   true,
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["stream"])
				assert.NotContains(t, body, "stream_options")
			},
		},
		{
			name:  "tool_choice required with a specific name",
			xform: NewOpenAIRequest(),
			req: siumai.ChatRequest{
				Model:      "gpt-4o",
				Messages:   []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
				ToolChoice: &siumai.ToolChoice{Mode: siumai.ToolChoiceRequired, Name: "get_weather"},
			},
			check: func(t *testing.T, body map[string]any) {
				tc := body["tool_choice"].(map[string]any)
				assert.Equal(t, "function", tc["type"])
			},
		},
		{
			name:  "custom provider options merge straight into the body",
			xform: NewOpenAIRequest(),
			req: siumai.ChatRequest{
				Model:           "gpt-4o",
				Messages:        []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
				ProviderOptions: siumai.CustomOptions{Data: map[string]any{"logprobs": true}},
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["logprobs"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.xform.Transform(tt.req)
			require.NoError(t, err)
			tt.check(t, body)
		})
	}
}

func TestOpenAIRequest_Transform_RejectsInvalidRequest(t *testing.T) {
	_, err := NewOpenAIRequest().Transform(siumai.ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)
}

func TestOpenAIRequest_AudioPart_URLSourceDegradesToTextPlaceholder(t *testing.T) {
	req := siumai.ChatRequest{
		Model: "gpt-4o",
		Messages: []siumai.Message{{
			Role: siumai.RoleUser,
			Content: siumai.PartsContent(
				siumai.AudioPart{Source: siumai.URLSource{URL: "https://example.com/clip.wav"}, MediaType: "wav"},
			),
		}},
	}
	body, err := NewOpenAIRequest().Transform(req)
	require.NoError(t, err)

	messages := body["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	parts := messages[0]["content"].([]any)
	require.Len(t, parts, 1)
	part := parts[0].(map[string]any)
	assert.Equal(t, "text", part["type"])
	assert.Contains(t, part["text"], "https://example.com/clip.wav")
}

func TestOpenAIRequest_AudioPart_InlineDataRoutesThroughInputAudio(t *testing.T) {
	req := siumai.ChatRequest{
		Model: "gpt-4o",
		Messages: []siumai.Message{{
			Role: siumai.RoleUser,
			Content: siumai.PartsContent(
				siumai.AudioPart{Source: siumai.Base64Source{Data: "abc123"}, MediaType: "wav"},
			),
		}},
	}
	body, err := NewOpenAIRequest().Transform(req)
	require.NoError(t, err)

	messages := body["messages"].([]map[string]any)
	parts := messages[0]["content"].([]any)
	require.Len(t, parts, 1)
	part := parts[0].(map[string]any)
	assert.Equal(t, "input_audio", part["type"])
	audio := part["input_audio"].(map[string]any)
	assert.Equal(t, "abc123", audio["data"])
	assert.Equal(t, "wav", audio["format"])
}

func TestOpenAIRequest_ToolResultPart_ExpandsToOwnToolMessage(t *testing.T) {
	req := siumai.ChatRequest{
		Model: "gpt-4o",
		Messages: []siumai.Message{{
			Role:    siumai.RoleTool,
			Content: siumai.PartsContent(siumai.ToolResultPart{ID: "call_1", OutputJSON: `{"ok":true}`}),
		}},
	}
	body, err := NewOpenAIRequest().Transform(req)
	require.NoError(t, err)

	messages := body["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "tool", messages[0]["role"])
	assert.Equal(t, "call_1", messages[0]["tool_call_id"])
}

func TestOpenAIResponse_Transform(t *testing.T) {
	wire := map[string]any{
		"id":    "chatcmpl_1",
		"model": "gpt-4o",
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content":           "hello there",
					"reasoning_content": "thinking...",
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10.0,
			"completion_tokens": 5.0,
			"total_tokens":      15.0,
		},
	}

	resp, err := NewOpenAIResponse().Transform(wire)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl_1", resp.ID)
	require.NotNil(t, resp.FinishReason)
	assert.Equal(t, siumai.FinishStop, resp.FinishReason.Kind)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAIResponse_Transform_ToolCalls(t *testing.T) {
	wire := map[string]any{
		"id":    "chatcmpl_2",
		"model": "gpt-4o",
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"tool_calls": []any{
						map[string]any{
							"id": "call_1",
							"function": map[string]any{
								"name":      "get_weather",
								"arguments": `{"city":"ny"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}

	resp, err := NewOpenAIResponse().Transform(wire)
	require.NoError(t, err)
	require.NotNil(t, resp.FinishReason)
	assert.Equal(t, siumai.FinishToolCalls, resp.FinishReason.Kind)
	toolCalls := resp.ToolCalls()
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "get_weather", toolCalls[0].Name)
}

func TestOpenAIResponse_Transform_APIErrorBecomesLlmError(t *testing.T) {
	wire := map[string]any{"error": map[string]any{"message": "invalid api key"}}
	_, err := NewOpenAIResponse().Transform(wire)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
)

func TestAnthropicRequest_Transform(t *testing.T) {
	tests := []struct {
		name  string
		req   siumai.ChatRequest
		check func(t *testing.T, body map[string]any)
	}{
		{
			name: "system messages hoist out to top-level system field",
			req: siumai.ChatRequest{
				Model: "claude-3-5-sonnet",
				Messages: []siumai.Message{
					{Role: siumai.RoleSystem, Content: siumai.TextContent("be terse")},
					{Role: siumai.RoleUser, Content: siumai.TextContent("hi")},
				},
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "be terse", body["system"])
				messages := body["messages"].([]map[string]any)
				require.Len(t, messages, 1)
				assert.Equal(t, "user", messages[0]["role"])
			},
		},
		{
			name: "default max_tokens applies when the caller leaves it unset",
			req: siumai.ChatRequest{
				Model:    "claude-3-5-sonnet",
				Messages: []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 4096, body["max_tokens"])
			},
		},
		{
			name: "tool role messages become user-role tool_result blocks",
			req: siumai.ChatRequest{
				Model: "claude-3-5-sonnet",
				Messages: []siumai.Message{{
					Role:    siumai.RoleTool,
					Content: siumai.PartsContent(siumai.ToolResultPart{ID: "toolu_1", OutputJSON: `{"ok":true}`}),
				}},
			},
			check: func(t *testing.T, body map[string]any) {
				messages := body["messages"].([]map[string]any)
				require.Len(t, messages, 1)
				assert.Equal(t, "user", messages[0]["role"])
				blocks := messages[0]["content"].([]map[string]any)
				require.Len(t, blocks, 1)
				assert.Equal(t, "tool_result", blocks[0]["type"])
			},
		},
		{
			name: "thinking budget sets the thinking block",
			req: siumai.ChatRequest{
				Model:           "claude-3-5-sonnet",
				Messages:        []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
				ProviderOptions: siumai.AnthropicOptions{ThinkingBudget: 2048},
			},
			check: func(t *testing.T, body map[string]any) {
				thinking := body["thinking"].(map[string]any)
				assert.Equal(t, "enabled", thinking["type"])
				assert.Equal(t, 2048, thinking["budget_tokens"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := NewAnthropicRequest().Transform(tt.req)
			require.NoError(t, err)
			tt.check(t, body)
		})
	}
}

func TestAnthropicRequest_ToolUsePart_ParsesArgumentsJSONIntoInput(t *testing.T) {
	req := siumai.ChatRequest{
		Model: "claude-3-5-sonnet",
		Messages: []siumai.Message{{
			Role:    siumai.RoleAssistant,
			Content: siumai.PartsContent(siumai.ToolCallPart{ID: "toolu_1", Name: "get_weather", ArgumentsJSON: `{"city":"ny"}`}),
		}},
	}
	body, err := NewAnthropicRequest().Transform(req)
	require.NoError(t, err)

	messages := body["messages"].([]map[string]any)
	blocks := messages[0]["content"].([]map[string]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "tool_use", blocks[0]["type"])
	input := blocks[0]["input"].(map[string]any)
	assert.Equal(t, "ny", input["city"])
}

func TestAnthropicResponse_Transform(t *testing.T) {
	wire := map[string]any{
		"id":    "msg_1",
		"model": "claude-3-5-sonnet",
		"content": []any{
			map[string]any{"type": "text", "text": "hello"},
		},
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10.0,
			"output_tokens": 5.0,
		},
	}

	resp, err := AnthropicResponse{}.Transform(wire)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "hello", resp.Text())
	require.NotNil(t, resp.FinishReason)
	assert.Equal(t, siumai.FinishStop, resp.FinishReason.Kind)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestAnthropicResponse_Transform_ToolUse(t *testing.T) {
	wire := map[string]any{
		"id":    "msg_2",
		"model": "claude-3-5-sonnet",
		"content": []any{
			map[string]any{
				"type":  "tool_use",
				"id":    "toolu_1",
				"name":  "get_weather",
				"input": map[string]any{"city": "ny"},
			},
		},
		"stop_reason": "tool_use",
	}

	resp, err := AnthropicResponse{}.Transform(wire)
	require.NoError(t, err)
	require.NotNil(t, resp.FinishReason)
	assert.Equal(t, siumai.FinishToolCalls, resp.FinishReason.Kind)
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"ny"}`, calls[0].ArgumentsJSON)
}

func TestAnthropicResponse_Transform_APIError(t *testing.T) {
	wire := map[string]any{"error": map[string]any{"message": "overloaded"}}
	_, err := AnthropicResponse{}.Transform(wire)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestConvertToolCallID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already anthropic id passes through", "toolu_abc", "toolu_abc"},
		{"openai call_ id is rewritten", "call_abc", "toolu_abc"},
		{"unprefixed id gets toolu_ prefix", "abc", "toolu_abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertToolCallID(tt.in))
		})
	}
}

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
)

func TestOpenAIResponsesRequest_Transform_RenamesMessagesToInput(t *testing.T) {
	maxTokens := 512
	req := siumai.ChatRequest{
		Model:     "gpt-4.1",
		Messages:  []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
		MaxTokens: &maxTokens,
	}

	body, err := OpenAIResponsesRequest{}.Transform(req)
	require.NoError(t, err)
	assert.NotContains(t, body, "messages")
	assert.NotContains(t, body, "max_completion_tokens")
	assert.Equal(t, 512, body["max_output_tokens"])
	input, ok := body["input"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0]["role"])
}

func TestOpenAIResponsesResponse_Transform(t *testing.T) {
	tests := []struct {
		name  string
		wire  map[string]any
		check func(t *testing.T, resp siumai.ChatResponse)
	}{
		{
			name: "message output maps to text content",
			wire: map[string]any{
				"id":     "resp_1",
				"model":  "gpt-4.1",
				"status": "completed",
				"output": []any{
					map[string]any{
						"type":    "message",
						"content": []any{map[string]any{"text": "hello there"}},
					},
				},
			},
			check: func(t *testing.T, resp siumai.ChatResponse) {
				assert.Equal(t, "hello there", resp.Text())
				require.NotNil(t, resp.FinishReason)
				assert.Equal(t, siumai.FinishStop, resp.FinishReason.Kind)
			},
		},
		{
			name: "function_call output maps to a ToolCallPart",
			wire: map[string]any{
				"id":     "resp_2",
				"model":  "gpt-4.1",
				"status": "completed",
				"output": []any{
					map[string]any{
						"type":      "function_call",
						"call_id":   "call_1",
						"name":      "get_weather",
						"arguments": `{"city":"ny"}`,
					},
				},
			},
			check: func(t *testing.T, resp siumai.ChatResponse) {
				calls := resp.ToolCalls()
				require.Len(t, calls, 1)
				assert.Equal(t, "get_weather", calls[0].Name)
				assert.Equal(t, "call_1", calls[0].ID)
			},
		},
		{
			name: "reasoning summary maps to a ReasoningPart",
			wire: map[string]any{
				"id":     "resp_3",
				"model":  "gpt-4.1",
				"status": "completed",
				"output": []any{
					map[string]any{
						"type":    "reasoning",
						"summary": []any{map[string]any{"text": "thinking it through"}},
					},
					map[string]any{
						"type":    "message",
						"content": []any{map[string]any{"text": "done"}},
					},
				},
			},
			check: func(t *testing.T, resp siumai.ChatResponse) {
				var sawReasoning bool
				for _, p := range resp.Content.Parts {
					if rp, ok := p.(siumai.ReasoningPart); ok {
						sawReasoning = true
						assert.Equal(t, "thinking it through", rp.Text)
					}
				}
				assert.True(t, sawReasoning)
			},
		},
		{
			name: "incomplete status maps to FinishLength",
			wire: map[string]any{
				"id":     "resp_4",
				"model":  "gpt-4.1",
				"status": "incomplete",
				"output": []any{},
			},
			check: func(t *testing.T, resp siumai.ChatResponse) {
				require.NotNil(t, resp.FinishReason)
				assert.Equal(t, siumai.FinishLength, resp.FinishReason.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := OpenAIResponsesResponse{}.Transform(tt.wire)
			require.NoError(t, err)
			tt.check(t, resp)
		})
	}
}

func TestOpenAIResponsesResponse_Transform_APIError(t *testing.T) {
	_, err := OpenAIResponsesResponse{}.Transform(map[string]any{
		"error": map[string]any{"message": "rate limited"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

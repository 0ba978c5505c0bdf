package siumai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatResponse_ToolCalls(t *testing.T) {
	resp := ChatResponse{
		Content: PartsContent(
			TextPart{Text: "let me check"},
			ToolCallPart{ID: "call_1", Name: "get_weather", ArgumentsJSON: `{"city":"ny"}`},
			ToolCallPart{ID: "call_2", Name: "get_time", ArgumentsJSON: `{}`},
		),
	}

	calls := resp.ToolCalls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, "get_time", calls[1].Name)
}

func TestChatResponse_Text(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		resp := ChatResponse{Content: TextContent("hello")}
		assert.Equal(t, "hello", resp.Text())
	})

	t.Run("multi-modal concatenates text parts", func(t *testing.T) {
		resp := ChatResponse{
			Content: PartsContent(
				TextPart{Text: "hello "},
				ToolCallPart{ID: "call_1", Name: "noop"},
				TextPart{Text: "world"},
			),
		}
		assert.Equal(t, "hello world", resp.Text())
	})
}

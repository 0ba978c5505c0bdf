package siumai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_Validate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		req     ChatRequest
		wantErr ErrorKind
	}{
		{
			name:    "empty model",
			req:     ChatRequest{Messages: []Message{{Role: RoleUser, Content: TextContent("hi")}}},
			wantErr: ErrorInvalidInput,
		},
		{
			name:    "empty messages",
			req:     ChatRequest{Model: "gpt-4o"},
			wantErr: ErrorInvalidInput,
		},
		{
			name: "negative temperature",
			req: ChatRequest{
				Model:       "gpt-4o",
				Messages:    []Message{{Role: RoleUser, Content: TextContent("hi")}},
				Temperature: f(-1),
			},
			wantErr: ErrorInvalidParameter,
		},
		{
			name: "top_p out of range",
			req: ChatRequest{
				Model:    "gpt-4o",
				Messages: []Message{{Role: RoleUser, Content: TextContent("hi")}},
				TopP:     f(1.5),
			},
			wantErr: ErrorInvalidParameter,
		},
		{
			name: "presence penalty out of range",
			req: ChatRequest{
				Model:           "gpt-4o",
				Messages:        []Message{{Role: RoleUser, Content: TextContent("hi")}},
				PresencePenalty: f(3),
			},
			wantErr: ErrorInvalidParameter,
		},
		{
			name: "valid",
			req: ChatRequest{
				Model:    "gpt-4o",
				Messages: []Message{{Role: RoleUser, Content: TextContent("hi")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var llmErr *LlmError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantErr, llmErr.Kind)
		})
	}
}

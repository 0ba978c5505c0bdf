package providerspec

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/transform"
)

func ctxWithKey(key string) *RequestContext {
	return &RequestContext{Context: context.Background(), APIKey: key}
}

func TestOpenAI_BuildHeaders(t *testing.T) {
	s := NewOpenAI("")
	s.Organization = "org_1"

	h, err := s.BuildHeaders(ctxWithKey("sk-test"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", h.Get("Authorization"))
	assert.Equal(t, "org_1", h.Get("OpenAI-Organization"))

	_, err = s.BuildHeaders(ctxWithKey(""))
	var llmErr *siumai.LlmError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, siumai.ErrorMissingAPIKey, llmErr.Kind)
}

func TestOpenAI_ChatURL_SwitchesOnResponsesAPI(t *testing.T) {
	s := NewOpenAI("")
	url, err := s.ChatURL(false, siumai.ChatRequest{Model: "gpt-4o"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", url)

	req := siumai.ChatRequest{Model: "gpt-4o", ProviderOptions: siumai.OpenAIOptions{ResponsesAPI: true}}
	url, err = s.ChatURL(false, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/responses", url)
}

func TestOpenAI_ChooseChatTransformers_SwitchesToResponsesBundle(t *testing.T) {
	s := NewOpenAI("")

	chatReq := siumai.ChatRequest{Model: "gpt-4o", Stream: true}
	bundle, err := s.ChooseChatTransformers(chatReq, nil)
	require.NoError(t, err)
	assert.IsType(t, transform.NewOpenAIRequest(), bundle.Request)
	require.NotNil(t, bundle.Stream)

	respReq := siumai.ChatRequest{Model: "gpt-4o", Stream: true, ProviderOptions: siumai.OpenAIOptions{ResponsesAPI: true}}
	bundle, err = s.ChooseChatTransformers(respReq, nil)
	require.NoError(t, err)
	assert.IsType(t, transform.OpenAIResponsesRequest{}, bundle.Request)
	assert.IsType(t, transform.OpenAIResponsesResponse{}, bundle.Response)
	require.NotNil(t, bundle.Stream)
}

func TestAnthropic_BuildHeaders(t *testing.T) {
	s := NewAnthropic("")
	s.BetaFeatures = []string{"tools-2024-04-04"}

	h, err := s.BuildHeaders(ctxWithKey("anthropic-key"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic-key", h.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", h.Get("anthropic-version"))
	assert.Equal(t, "tools-2024-04-04", h.Get("anthropic-beta"))
}

func TestAnthropic_MergeRequestHeaders_UnionsBetaTokens(t *testing.T) {
	s := NewAnthropic("")
	base := http.Header{"Anthropic-Beta": {"a,b"}}
	extra := http.Header{"Anthropic-Beta": {"b,c"}}
	merged := s.MergeRequestHeaders(base, extra)
	assert.Equal(t, "a,b,c", merged.Get("anthropic-beta"))
}

func TestGemini_ChatURL_StreamingSwitchesVerb(t *testing.T) {
	s := NewGemini("")
	url, err := s.ChatURL(false, siumai.ChatRequest{Model: "gemini-2.0-flash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent", url)

	url, err = s.ChatURL(true, siumai.ChatRequest{Model: "gemini-2.0-flash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:streamGenerateContent?alt=sse", url)
}

func TestXAI_ChooseChatTransformers_OmitsStreamOptionsAndUsesMaxTokens(t *testing.T) {
	s := NewXAI("")
	bundle, err := s.ChooseChatTransformers(siumai.ChatRequest{Model: "grok-3"}, nil)
	require.NoError(t, err)
	body, err := bundle.Request.Transform(siumai.ChatRequest{
		Model:     "grok-3",
		Messages:  []siumai.Message{{Role: siumai.RoleUser, Content: siumai.TextContent("hi")}},
		MaxTokens: intPtr(100),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), toFloat(body["max_tokens"]))
	_, hasStreamOptions := body["stream_options"]
	assert.False(t, hasStreamOptions)
}

type fakeAdapter struct {
	id              string
	base            string
	supportsStreamO bool
}

func (a fakeAdapter) ID() string                    { return a.id }
func (a fakeAdapter) BaseURL() string                { return a.base }
func (a fakeAdapter) ReasoningFieldOrder() []string  { return nil }
func (a fakeAdapter) ToolCallIDPrefix() string       { return "call_" }
func (a fakeAdapter) TransformBody(b map[string]any) map[string]any {
	b["vendor_marker"] = a.id
	return b
}
func (a fakeAdapter) SupportsField(field string) bool { return field != "stream_options" || a.supportsStreamO }

type fakeResolver struct{ adapters map[string]Adapter }

func (r fakeResolver) Resolve(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

func TestCompat_ResolvesAdapterForURLAndBeforeSend(t *testing.T) {
	resolver := fakeResolver{adapters: map[string]Adapter{
		"deepseek": fakeAdapter{id: "deepseek", base: "https://api.deepseek.com/v1"},
	}}
	s := NewCompat(resolver)
	ctx := &RequestContext{Context: context.Background(), ProviderID: "deepseek", APIKey: "key"}

	url, err := s.ChatURL(false, siumai.ChatRequest{Model: "deepseek-chat"}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/v1/chat/completions", url)

	body, err := s.ChatBeforeSend(map[string]any{}, siumai.ChatRequest{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", body["vendor_marker"])
}

func intPtr(i int) *int { return &i }

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return -1
	}
}

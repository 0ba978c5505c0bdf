package providerspec

import (
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Groq is the ProviderSpec for Groq's OpenAI-compatible chat API. Like XAI,
// no Go reference file in the pack covers Groq; grounded on
// original_source/siumai-provider-groq for the max_tokens/no-stream_options
// delta over OpenAI proper.
type Groq struct {
	BaseURL string // default "https://api.groq.com/openai/v1"
}

func NewGroq(baseURL string) *Groq {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &Groq{BaseURL: baseURL}
}

func (s *Groq) ID() string { return "groq" }

func (s *Groq) Capabilities() map[Capability]bool {
	return map[Capability]bool{CapChat: true, CapStreaming: true, CapTools: true}
}

func (s *Groq) BuildHeaders(ctx *RequestContext) (http.Header, error) {
	h := BaseHeaders()
	key := ctx.APIKey
	if key == "" && ctx.Token != nil {
		tok, err := ctx.Token.Token(ctx.Context)
		if err != nil {
			return nil, err
		}
		key = tok
	}
	if key == "" {
		return nil, siumai.MissingAPIKey(s.ID())
	}
	h.Set("Authorization", "Bearer "+key)
	return h, nil
}

func (s *Groq) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

func (s *Groq) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	return strings.TrimSuffix(s.BaseURL, "/") + "/chat/completions", nil
}

func (s *Groq) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	reqT := transform.NewOpenAIRequest()
	reqT.DeveloperRoleSupported = false
	reqT.OmitStreamOptions = true
	reqT.MaxTokensField = "max_tokens"
	bundle := TransformerBundle{
		Request:  reqT,
		Response: transform.NewOpenAIResponse(),
	}
	if req.Stream {
		bundle.Stream = streamconv.NewOpenAIChat()
	}
	return bundle, nil
}

func (s *Groq) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if opts, ok := req.ProviderOptions.(siumai.GroqOptions); ok && opts.ServiceTier != "" {
		body["service_tier"] = opts.ServiceTier
	}
	return body, nil
}

func (s *Groq) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

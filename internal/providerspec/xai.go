package providerspec

import (
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// XAI is the ProviderSpec for xAI's Grok API. No Go reference file in the
// pack covers xAI (see DESIGN.md); the request-shape delta over OpenAI
// proper (max_tokens, no stream_options, no Developer role) is grounded on
// original_source/siumai-provider-groq and the xAI Rust provider module.
type XAI struct {
	BaseURL string // default "https://api.x.ai/v1"
}

func NewXAI(baseURL string) *XAI {
	if baseURL == "" {
		baseURL = "https://api.x.ai/v1"
	}
	return &XAI{BaseURL: baseURL}
}

func (s *XAI) ID() string { return "xai" }

func (s *XAI) Capabilities() map[Capability]bool {
	return map[Capability]bool{CapChat: true, CapStreaming: true, CapTools: true, CapVision: true}
}

func (s *XAI) BuildHeaders(ctx *RequestContext) (http.Header, error) {
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

func (s *XAI) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

func (s *XAI) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	return strings.TrimSuffix(s.BaseURL, "/") + "/chat/completions", nil
}

func (s *XAI) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
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

func (s *XAI) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if opts, ok := req.ProviderOptions.(siumai.XAIOptions); ok && len(opts.SearchParameters) > 0 {
		body["search_parameters"] = opts.SearchParameters
	}
	return body, nil
}

func (s *XAI) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

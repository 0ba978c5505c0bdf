package providerspec

import (
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Adapter contributes the vendor-specific pieces an OpenAI-compatible
// aggregator needs on top of the shared OpenAI wire shape (§4.1's
// composition rule), generalized from internal/providers/openrouter.go and
// internal/providers/nvidia.go's hand-written special cases.
type Adapter interface {
	ID() string
	BaseURL() string
	// ReasoningFieldOrder reports the reasoning field(s) this vendor uses,
	// in priority order; nil means the default list (reasoning_content,
	// thinking, reasoning). The transformers and stream converters read
	// their own fixed list and do not consult it.
	ReasoningFieldOrder() []string
	// ToolCallIDPrefix reports the tool-call id prefix this vendor uses
	// (e.g. "call_"); empty when it has none. Ids are not rewritten with it.
	ToolCallIDPrefix() string
	// TransformBody applies vendor parameter transformation to an
	// already-OpenAI-shaped wire body (model whitelists, dropped fields).
	TransformBody(body map[string]any) map[string]any
	SupportsField(field string) bool
}

// AdapterResolver looks an Adapter up by provider id; internal/registry
// implements this over its adapter map.
type AdapterResolver interface {
	Resolve(providerID string) (Adapter, bool)
}

// Compat is the ProviderSpec for OpenAI-compatible aggregators (DeepSeek,
// SiliconFlow, OpenRouter, Together, Fireworks, MiniMax, Moonshot, Qwen,
// GLM, Doubao, Nvidia NIM), resolving vendor quirks from an AdapterResolver
// at request time per §4.1's composition rule.
type Compat struct {
	Resolver AdapterResolver
}

func NewCompat(resolver AdapterResolver) *Compat {
	return &Compat{Resolver: resolver}
}

func (s *Compat) ID() string { return "openai-compatible" }

func (s *Compat) Capabilities() map[Capability]bool {
	return map[Capability]bool{CapChat: true, CapStreaming: true, CapTools: true}
}

func (s *Compat) adapter(ctx *RequestContext) (Adapter, bool) {
	if s.Resolver == nil || ctx == nil {
		return nil, false
	}
	return s.Resolver.Resolve(ctx.ProviderID)
}

func (s *Compat) BuildHeaders(ctx *RequestContext) (http.Header, error) {
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
		return nil, siumai.MissingAPIKey(ctx.ProviderID)
	}
	h.Set("Authorization", "Bearer "+key)
	return h, nil
}

func (s *Compat) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

func (s *Compat) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	base := ctx.BaseURL
	if a, ok := s.adapter(ctx); ok && base == "" {
		base = a.BaseURL()
	}
	if base == "" {
		return "", &siumai.LlmError{Kind: siumai.ErrorInvalidInput, Message: "no base URL for provider " + ctx.ProviderID}
	}
	return strings.TrimSuffix(base, "/") + "/chat/completions", nil
}

func (s *Compat) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	reqT := transform.NewOpenAIRequest()
	reqT.DeveloperRoleSupported = false
	if a, ok := s.adapter(ctx); ok {
		reqT.OmitStreamOptions = !a.SupportsField("stream_options")
		ctx.AdapterHint = a
	}
	respT := transform.NewOpenAIResponse()
	bundle := TransformerBundle{Request: reqT, Response: respT}
	if req.Stream {
		bundle.Stream = streamconv.NewOpenAIChat()
	}
	return bundle, nil
}

func (s *Compat) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if a, ok := s.adapter(ctx); ok {
		body = a.TransformBody(body)
	}
	if custom, ok := req.ProviderOptions.(siumai.CustomOptions); ok {
		for k, v := range custom.Data {
			body[k] = v
		}
	}
	return body, nil
}

func (s *Compat) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

package providerspec

import (
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Ollama is the ProviderSpec for a local or remote Ollama instance exposing
// its OpenAI-compatible /v1/chat/completions route. New, grounded on
// Ollama's documented OpenAI-compatible surface (nothing in the pack runs
// locally-hosted models) plus the OpenAI request transformer it reuses.
type Ollama struct {
	BaseURL string // default "http://localhost:11434/v1"
}

func NewOllama(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return &Ollama{BaseURL: baseURL}
}

func (s *Ollama) ID() string { return "ollama" }

func (s *Ollama) Capabilities() map[Capability]bool {
	return map[Capability]bool{CapChat: true, CapStreaming: true, CapTools: true, CapVision: true}
}

// BuildHeaders never fails on a missing key: Ollama is typically
// unauthenticated locally, but an injected token or extra Authorization
// header is still honored for remote/gateway-fronted deployments.
func (s *Ollama) BuildHeaders(ctx *RequestContext) (http.Header, error) {
	h := BaseHeaders()
	if ctx.APIKey != "" {
		h.Set("Authorization", "Bearer "+ctx.APIKey)
	} else if ctx.Token != nil {
		tok, err := ctx.Token.Token(ctx.Context)
		if err != nil {
			return nil, err
		}
		h.Set("Authorization", "Bearer "+tok)
	}
	return h, nil
}

func (s *Ollama) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

func (s *Ollama) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	return strings.TrimSuffix(s.BaseURL, "/") + "/chat/completions", nil
}

func (s *Ollama) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	bundle := TransformerBundle{
		Request:  transform.NewOpenAIRequest(),
		Response: transform.NewOpenAIResponse(),
	}
	if req.Stream {
		bundle.Stream = streamconv.NewOpenAIChat()
	}
	return bundle, nil
}

func (s *Ollama) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if opts, ok := req.ProviderOptions.(siumai.OllamaOptions); ok {
		if opts.KeepAlive != "" {
			body["keep_alive"] = opts.KeepAlive
		}
		if opts.NumCtx != nil {
			body["options"] = map[string]any{"num_ctx": *opts.NumCtx}
		}
	}
	return body, nil
}

func (s *Ollama) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

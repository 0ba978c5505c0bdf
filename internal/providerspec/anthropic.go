package providerspec

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Anthropic is the ProviderSpec for the Anthropic Messages API, grounded on
// internal/providers/anthropic.go + base.go. Its AnthropicProvider is a
// passthrough (it receives already-Anthropic-shaped requests); this spec
// does the unified-to-wire mapping work a reverse-proxy frontend never had
// to, since its callers already spoke Anthropic's wire format directly.
type Anthropic struct {
	BaseURL       string // default "https://api.anthropic.com/v1"
	Version       string // default "2023-06-01"
	BetaFeatures  []string
}

func NewAnthropic(baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &Anthropic{BaseURL: baseURL, Version: "2023-06-01"}
}

func (s *Anthropic) ID() string { return "anthropic" }

func (s *Anthropic) Capabilities() map[Capability]bool {
	return map[Capability]bool{
		CapChat: true, CapStreaming: true, CapTools: true,
		CapVision: true, CapReasoning: true, CapStructured: true,
	}
}

func (s *Anthropic) BuildHeaders(ctx *RequestContext) (http.Header, error) {
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
	h.Set("x-api-key", key)
	version := s.Version
	if version == "" {
		version = "2023-06-01"
	}
	h.Set("anthropic-version", version)
	if len(s.BetaFeatures) > 0 {
		h.Set("anthropic-beta", strings.Join(s.BetaFeatures, ","))
	}
	return h, nil
}

// MergeRequestHeaders unions anthropic-beta by comma-token de-dup (§4.1)
// instead of letting extra silently replace base's value.
func (s *Anthropic) MergeRequestHeaders(base, extra http.Header) http.Header {
	merged := base.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for k, v := range extra {
		if !strings.EqualFold(k, "anthropic-beta") {
			merged[k] = v
			continue
		}
		merged.Set("anthropic-beta", unionCommaTokens(merged.Get("anthropic-beta"), strings.Join(v, ",")))
	}
	return merged
}

func unionCommaTokens(a, b string) string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Split(a+","+b, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return strings.Join(out, ",")
}

func (s *Anthropic) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	return strings.TrimSuffix(s.BaseURL, "/") + "/messages", nil
}

func (s *Anthropic) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	bundle := TransformerBundle{
		Request:  transform.NewAnthropicRequest(),
		Response: transform.AnthropicResponse{},
	}
	if req.Stream {
		bundle.Stream = streamconv.NewAnthropic()
	}
	return bundle, nil
}

func (s *Anthropic) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if opts, ok := req.ProviderOptions.(siumai.AnthropicOptions); ok {
		if opts.ThinkingBudget != nil {
			body["thinking"] = map[string]any{"type": "enabled", "budget_tokens": *opts.ThinkingBudget}
		}
	}
	return body, nil
}

func (s *Anthropic) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	if status == http.StatusTooManyRequests {
		if ra := headers.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				d := time.Duration(secs) * time.Second
				return &siumai.LlmError{Kind: siumai.ErrorRateLimit, Message: body, StatusCode: status, RetryAfter: &d}
			}
		}
	}
	return nil
}

// Package providerspec defines the per-provider policy object (§4.1): how
// headers, URLs, and transformer bundles are chosen for a given provider.
package providerspec

import (
	"context"
	"net/http"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Capability names a feature a provider may or may not support.
type Capability string

const (
	CapChat         Capability = "chat"
	CapStreaming    Capability = "streaming"
	CapTools        Capability = "tools"
	CapEmbedding    Capability = "embedding"
	CapVision       Capability = "vision"
	CapReasoning    Capability = "reasoning"
	CapStructured   Capability = "structured_output"
)

// TokenProvider supplies a bearer credential at request time, the injection
// point named by §4.1's "Authorization via injected token provider" (used by
// Vertex/ADC-style auth where a static API key isn't the credential).
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// RequestContext carries everything a ProviderSpec needs beyond the
// ChatRequest itself: credentials, per-call overrides, vendor context.
type RequestContext struct {
	Context context.Context

	ProviderID string
	APIKey     string
	Token      TokenProvider

	BaseURL string

	// Vertex-specific; empty for the Gemini Developer API.
	Project  string
	Location string

	// ExtraHeaders are per-request overrides merged via MergeRequestHeaders.
	ExtraHeaders http.Header

	// AdapterHint is resolved by Compat from the registry
	// using ProviderID; nil for non-compat providers.
	AdapterHint any
}

// TransformerBundle is the set of transformers chosen for one request.
type TransformerBundle struct {
	Request  transform.RequestTransformer
	Response transform.ResponseTransformer
	Stream   streamconv.Converter // nil if the request isn't streamed
}

// ProviderSpec is the per-provider policy object of §4.1.
type ProviderSpec interface {
	ID() string
	Capabilities() map[Capability]bool

	BuildHeaders(ctx *RequestContext) (http.Header, error)
	MergeRequestHeaders(base, extra http.Header) http.Header

	ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error)
	ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error)

	// ChatBeforeSend applies pure JSON-to-JSON mutation after request
	// transform and before send (thinking mode, reasoning effort, service
	// tier, custom extension keys). Returning the input unchanged is valid.
	ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error)

	// ClassifyHTTPError lets a provider pre-empt the generic classifier
	// (§4.7). Returning nil defers to it.
	ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError
}

// BaseHeaders sets the one header every JSON chat request carries,
// regardless of provider.
func BaseHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

// MergeHeadersUnion is the default MergeRequestHeaders: extra overwrites
// base key-by-key, except it never drops a key base set that extra doesn't
// mention.
func MergeHeadersUnion(base, extra http.Header) http.Header {
	merged := base.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

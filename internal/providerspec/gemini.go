package providerspec

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// Gemini is the ProviderSpec for the Gemini Developer API, grounded on
// internal/providers/gemini.go + internal/handlers/proxy.go's
// buildEndpointURL (the only reference code in the pack that already
// builds a Gemini-specific URL shape).
type Gemini struct {
	BaseURL string // default "https://generativelanguage.googleapis.com/v1beta/models"
}

func NewGemini(baseURL string) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return &Gemini{BaseURL: baseURL}
}

func (s *Gemini) ID() string { return "gemini" }

func (s *Gemini) Capabilities() map[Capability]bool {
	return map[Capability]bool{
		CapChat: true, CapStreaming: true, CapTools: true,
		CapVision: true, CapReasoning: true, CapStructured: true,
	}
}

func (s *Gemini) BuildHeaders(ctx *RequestContext) (http.Header, error) {
	h := BaseHeaders()
	if ctx.Token != nil {
		tok, err := ctx.Token.Token(ctx.Context)
		if err != nil {
			return nil, err
		}
		h.Set("Authorization", "Bearer "+tok)
		return h, nil
	}
	if ctx.APIKey == "" {
		return nil, siumai.MissingAPIKey(s.ID())
	}
	h.Set("x-goog-api-key", ctx.APIKey)
	return h, nil
}

func (s *Gemini) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

// ChatURL mirrors internal/handlers/proxy.go's buildEndpointURL: the model
// name is part of the path, and the verb switches on streaming.
func (s *Gemini) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	if req.Model == "" {
		return "", &siumai.LlmError{Kind: siumai.ErrorInvalidInput, Message: "model is required"}
	}
	base := strings.TrimSuffix(s.BaseURL, "/")
	verb := "generateContent"
	if stream {
		verb = "streamGenerateContent?alt=sse"
	}
	return fmt.Sprintf("%s/%s:%s", base, req.Model, verb), nil
}

func (s *Gemini) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	bundle := TransformerBundle{
		Request:  transform.GeminiRequest{},
		Response: transform.GeminiResponse{Warnings: transform.GeminiToolWarnings(req.Tools)},
	}
	if req.Stream {
		bundle.Stream = streamconv.NewGemini()
	}
	return bundle, nil
}

func (s *Gemini) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	return body, nil
}

func (s *Gemini) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

// VertexSpec wraps Gemini with the Vertex enterprise/express URL forms
// (§6.1) instead of the Developer API's generativelanguage.googleapis.com
// host. Auth always flows through the injected TokenProvider (ADC), never
// a static API key.
type VertexSpec struct {
	*Gemini
	Project  string
	Location string
	Express  bool
}

func NewVertexSpec(project, location string, express bool) *VertexSpec {
	var base string
	if express {
		base = "https://aiplatform.googleapis.com/v1/publishers/google/models"
	} else {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1beta1/projects/%s/locations/%s/publishers/google/models",
			location, project, location)
	}
	return &VertexSpec{Gemini: NewGemini(base), Project: project, Location: location, Express: express}
}

func (s *VertexSpec) ID() string { return "vertex" }

func (s *VertexSpec) BuildHeaders(ctx *RequestContext) (http.Header, error) {
	h := BaseHeaders()
	if ctx.Token == nil {
		return nil, siumai.MissingAPIKey(s.ID())
	}
	tok, err := ctx.Token.Token(ctx.Context)
	if err != nil {
		return nil, err
	}
	h.Set("Authorization", "Bearer "+tok)
	return h, nil
}

package providerspec

import (
	"net/http"
	"strings"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/streamconv"
	"github.com/siumai/siumai/internal/transform"
)

// OpenAI is the ProviderSpec for OpenAI proper (not the compat adapters),
// grounded on internal/providers/openai.go, generalized from "transform an
// intercepted Anthropic request" into "transform siumai's own ChatRequest".
type OpenAI struct {
	BaseURL        string // default "https://api.openai.com/v1"
	Organization   string
	Project        string
	UseResponsesAPI bool
}

func NewOpenAI(baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{BaseURL: baseURL}
}

func (s *OpenAI) ID() string { return "openai" }

func (s *OpenAI) Capabilities() map[Capability]bool {
	return map[Capability]bool{
		CapChat: true, CapStreaming: true, CapTools: true,
		CapVision: true, CapReasoning: true, CapStructured: true,
	}
}

func (s *OpenAI) BuildHeaders(ctx *RequestContext) (http.Header, error) {
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
	if s.Organization != "" {
		h.Set("OpenAI-Organization", s.Organization)
	}
	if s.Project != "" {
		h.Set("OpenAI-Project", s.Project)
	}
	return h, nil
}

func (s *OpenAI) MergeRequestHeaders(base, extra http.Header) http.Header {
	return MergeHeadersUnion(base, extra)
}

func (s *OpenAI) ChatURL(stream bool, req siumai.ChatRequest, ctx *RequestContext) (string, error) {
	base := strings.TrimSuffix(s.BaseURL, "/")
	if s.responsesAPI(req) {
		return base + "/responses", nil
	}
	return base + "/chat/completions", nil
}

func (s *OpenAI) responsesAPI(req siumai.ChatRequest) bool {
	if opts, ok := req.ProviderOptions.(siumai.OpenAIOptions); ok {
		return opts.ResponsesAPI
	}
	return s.UseResponsesAPI
}

func (s *OpenAI) ChooseChatTransformers(req siumai.ChatRequest, ctx *RequestContext) (TransformerBundle, error) {
	if s.responsesAPI(req) {
		bundle := TransformerBundle{
			Request:  transform.OpenAIResponsesRequest{},
			Response: transform.OpenAIResponsesResponse{},
		}
		if req.Stream {
			bundle.Stream = streamconv.NewOpenAIResponses()
		}
		return bundle, nil
	}

	reqT := transform.NewOpenAIRequest()
	bundle := TransformerBundle{
		Request:  reqT,
		Response: transform.NewOpenAIResponse(),
	}
	if req.Stream {
		bundle.Stream = streamconv.NewOpenAIChat()
	}
	return bundle, nil
}

func (s *OpenAI) ChatBeforeSend(body map[string]any, req siumai.ChatRequest, ctx *RequestContext) (map[string]any, error) {
	if opts, ok := req.ProviderOptions.(siumai.OpenAIOptions); ok {
		if opts.ReasoningEffort != "" {
			body["reasoning_effort"] = opts.ReasoningEffort
		}
		if opts.ServiceTier != "" {
			body["service_tier"] = opts.ServiceTier
		}
	}
	return body, nil
}

func (s *OpenAI) ClassifyHTTPError(status int, body string, headers http.Header) *siumai.LlmError {
	return nil
}

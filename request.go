package siumai

import "fmt"

// ChatRequest is the provider-agnostic request the caller builds.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []Tool

	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	TopK             *int
	Stop             []string
	Seed             *int64
	FrequencyPenalty *float64
	PresencePenalty  *float64

	Stream bool

	ToolChoice *ToolChoice

	// ProviderOptions carries provider-specific knobs; nil means none.
	ProviderOptions ProviderOptions
}

// Validate enforces §4.2's transform-time validation rules. It is called by
// request transformers before any wire-format mapping happens, so failures
// never touch the network.
func (r ChatRequest) Validate() error {
	if r.Model == "" {
		return &LlmError{Kind: ErrorInvalidInput, Category: CategoryValidation, Message: "model must be non-empty"}
	}
	if len(r.Messages) == 0 {
		return &LlmError{Kind: ErrorInvalidInput, Category: CategoryValidation, Message: "messages must not be empty"}
	}
	if r.Temperature != nil && *r.Temperature < 0 {
		return invalidParam("temperature", *r.Temperature, "must be >= 0")
	}
	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return invalidParam("top_p", *r.TopP, "must be in [0,1]")
	}
	if r.FrequencyPenalty != nil && (*r.FrequencyPenalty < -2 || *r.FrequencyPenalty > 2) {
		return invalidParam("frequency_penalty", *r.FrequencyPenalty, "must be in [-2,2]")
	}
	if r.PresencePenalty != nil && (*r.PresencePenalty < -2 || *r.PresencePenalty > 2) {
		return invalidParam("presence_penalty", *r.PresencePenalty, "must be in [-2,2]")
	}
	return nil
}

func invalidParam(name string, value float64, rule string) error {
	return &LlmError{
		Kind:     ErrorInvalidParameter,
		Category: CategoryValidation,
		Message:  fmt.Sprintf("%s=%v invalid: %s", name, value, rule),
		Details:  map[string]any{"parameter": name},
	}
}

// ProviderOptions is a discriminated union of provider-specific request
// knobs. Concrete variants implement providerOptions() so only this
// package's types and CustomOptions satisfy the interface.
type ProviderOptions interface {
	providerOptions()
}

// OpenAIOptions carries OpenAI/Responses-API-specific knobs.
type OpenAIOptions struct {
	ReasoningEffort string // "low" | "medium" | "high"
	ServiceTier     string
	ResponsesAPI    bool
	Organization    string
	Project         string
}

func (OpenAIOptions) providerOptions() {}

// AnthropicOptions carries Anthropic Messages-API-specific knobs.
type AnthropicOptions struct {
	ThinkingBudget int
	BetaFeatures   []string // merged into the anthropic-beta header
}

func (AnthropicOptions) providerOptions() {}

// GeminiOptions carries Gemini/Vertex-specific knobs.
type GeminiOptions struct {
	SafetySettings  []map[string]any
	ThinkingBudget  *int
	CachedContent   string
}

func (GeminiOptions) providerOptions() {}

// XAIOptions carries xAI-specific knobs.
type XAIOptions struct {
	SearchParameters map[string]any
}

func (XAIOptions) providerOptions() {}

// GroqOptions carries Groq-specific knobs.
type GroqOptions struct {
	ServiceTier string
}

func (GroqOptions) providerOptions() {}

// OllamaOptions carries Ollama-specific knobs.
type OllamaOptions struct {
	KeepAlive string
	NumCtx    *int
}

func (OllamaOptions) providerOptions() {}

// CustomOptions is the forward-extension escape hatch: an opaque map routed
// to a named provider by chat_before_send, per §9's "extension mechanism
// without string-typed soup".
type CustomOptions struct {
	ProviderID string
	Data       map[string]any
}

func (CustomOptions) providerOptions() {}

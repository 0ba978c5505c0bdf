package siumai

// FinishReason is the unified reason generation stopped.
type FinishReason struct {
	Kind  FinishKind
	Other string // populated when Kind == FinishOther
}

type FinishKind string

const (
	FinishStop       FinishKind = "stop"
	FinishLength     FinishKind = "length"
	FinishToolCalls  FinishKind = "tool_calls"
	FinishContentFilter FinishKind = "content_filter"
	FinishOther      FinishKind = "other"
)

// Usage is token accounting, with provider-specific extras left optional.
type Usage struct {
	PromptTokens        int
	CompletionTokens     int
	TotalTokens         int
	ReasoningTokens      *int
	CacheCreationTokens  *int
	CacheReadTokens      *int
}

// WarningKind enumerates the typed response warnings of §3.4.
type WarningKind string

const (
	WarningUnsupportedSetting WarningKind = "unsupported_setting"
	WarningUnsupportedTool    WarningKind = "unsupported_tool"
	WarningOther              WarningKind = "other"
)

// Warning is a non-fatal note attached to a ChatResponse, e.g. a
// provider-options key or tool combination the provider can't honor.
type Warning struct {
	Kind     WarningKind
	Setting  string // WarningUnsupportedSetting
	ToolName string // WarningUnsupportedTool
	Message  string
	Details  string
}

// ChatResponse is the unified, aggregated result of a non-streaming (or
// fully-drained streaming) chat call.
type ChatResponse struct {
	ID     string
	Model  string
	Content MessageContent

	Usage        *Usage
	FinishReason *FinishReason

	Audio            []byte
	SystemFingerprint string
	ServiceTier      string

	Warnings []Warning

	// ProviderMetadata is namespaced raw provider data, e.g. provider_metadata["google"].
	ProviderMetadata map[string]map[string]any
	// RawMetadata is the unparsed top-level wire fields the transformer did
	// not otherwise model.
	RawMetadata map[string]any
}

// ToolCalls is a derived view over Content: every ToolCallPart it contains,
// in order.
func (r ChatResponse) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, p := range r.Content.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// Text concatenates every TextPart (or returns the bare string content).
func (r ChatResponse) Text() string {
	if !r.Content.IsMultiModal() {
		return r.Content.Text
	}
	var out string
	for _, p := range r.Content.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

package transform

import (
	"encoding/json"
	"fmt"

	"github.com/siumai/siumai"
)

// reasoningFieldPriority is the §4.3 priority list for extracting
// provider-native reasoning text: first non-empty field wins.
var reasoningFieldPriority = []string{"reasoning_content", "thinking", "reasoning"}

// OpenAIResponse maps an OpenAI Chat Completions response envelope into a
// unified ChatResponse. Grounded on internal/providers/openai.go's
// convertOpenAIToAnthropic/convertMessageContent, run the other way:
// extraction of the same fields, assembled into ContentPart variants
// instead of Anthropic content blocks.
type OpenAIResponse struct {
	// MetadataNamespace is the provider_metadata key this transformer writes
	// raw top-level fields under (e.g. "openai", "deepseek").
	MetadataNamespace string
}

func NewOpenAIResponse() OpenAIResponse { return OpenAIResponse{MetadataNamespace: "openai"} }

func (t OpenAIResponse) Transform(wire map[string]any) (siumai.ChatResponse, error) {
	if errVal, ok := wire["error"]; ok && errVal != nil {
		errMap, _ := errVal.(map[string]any)
		msg, _ := errMap["message"].(string)
		return siumai.ChatResponse{}, siumai.NewError(siumai.ErrorAPI, msg)
	}

	choices, _ := wire["choices"].([]any)
	if len(choices) == 0 {
		return siumai.ChatResponse{}, fmt.Errorf("openai response: no choices")
	}
	choice, _ := choices[0].(map[string]any)
	message, _ := choice["message"].(map[string]any)
	if message == nil {
		message, _ = choice["delta"].(map[string]any)
	}

	resp := siumai.ChatResponse{
		ID:               stringField(wire, "id"),
		Model:            stringField(wire, "model"),
		SystemFingerprint: stringField(wire, "system_fingerprint"),
		ServiceTier:      stringField(wire, "service_tier"),
	}

	var parts []siumai.ContentPart
	if reasoning := firstNonEmptyField(message, reasoningFieldPriority); reasoning != "" {
		parts = append(parts, siumai.ReasoningPart{Text: reasoning})
	}
	if content, ok := message["content"].(string); ok && content != "" {
		parts = append(parts, siumai.TextPart{Text: content})
	}
	if toolCalls, ok := message["tool_calls"].([]any); ok {
		for _, tc := range toolCalls {
			tcMap, _ := tc.(map[string]any)
			fn, _ := tcMap["function"].(map[string]any)
			parts = append(parts, siumai.ToolCallPart{
				ID:            stringField(tcMap, "id"),
				Name:          stringField(fn, "name"),
				ArgumentsJSON: stringField(fn, "arguments"),
			})
		}
	}
	if len(parts) == 1 {
		if tp, ok := parts[0].(siumai.TextPart); ok {
			resp.Content = siumai.TextContent(tp.Text)
		} else {
			resp.Content = siumai.PartsContent(parts...)
		}
	} else if len(parts) > 0 {
		resp.Content = siumai.PartsContent(parts...)
	}

	if fr, ok := choice["finish_reason"].(string); ok && fr != "" {
		reason := mapOpenAIFinishReason(fr)
		resp.FinishReason = &reason
	}

	if usage, ok := wire["usage"].(map[string]any); ok {
		resp.Usage = mapOpenAIUsage(usage)
	}

	resp.ProviderMetadata = map[string]map[string]any{t.MetadataNamespace: wire}
	return resp, nil
}

func mapOpenAIFinishReason(reason string) siumai.FinishReason {
	switch reason {
	case "stop":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "length":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "tool_calls", "function_call":
		return siumai.FinishReason{Kind: siumai.FinishToolCalls}
	case "content_filter":
		return siumai.FinishReason{Kind: siumai.FinishContentFilter}
	default:
		return siumai.FinishReason{Kind: siumai.FinishOther, Other: reason}
	}
}

func mapOpenAIUsage(usage map[string]any) *siumai.Usage {
	u := &siumai.Usage{
		PromptTokens:     intField(usage, "prompt_tokens"),
		CompletionTokens: intField(usage, "completion_tokens"),
		TotalTokens:      intField(usage, "total_tokens"),
	}
	if details, ok := usage["completion_tokens_details"].(map[string]any); ok {
		if rt := intField(details, "reasoning_tokens"); rt > 0 {
			u.ReasoningTokens = &rt
		}
	}
	if details, ok := usage["prompt_tokens_details"].(map[string]any); ok {
		if cached := intField(details, "cached_tokens"); cached > 0 {
			u.CacheReadTokens = &cached
		}
	}
	return u
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		i, _ := v.Int64()
		return int(i)
	}
	return 0
}

func firstNonEmptyField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringField(m, k); s != "" {
			return s
		}
	}
	return ""
}

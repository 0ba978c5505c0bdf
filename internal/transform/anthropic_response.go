package transform

import (
	"encoding/json"

	"github.com/siumai/siumai"
)

// AnthropicResponse maps an Anthropic Messages API response envelope into a
// unified ChatResponse. Grounded on internal/providers/base.go's
// convertMessageContent/ConvertToAnthropic run in reverse: extracting the
// same content-block shape instead of building it.
type AnthropicResponse struct{}

func (AnthropicResponse) Transform(wire map[string]any) (siumai.ChatResponse, error) {
	if errVal, ok := wire["error"].(map[string]any); ok {
		msg, _ := errVal["message"].(string)
		return siumai.ChatResponse{}, siumai.NewError(siumai.ErrorAPI, msg)
	}

	blocks, _ := wire["content"].([]any)
	var parts []siumai.ContentPart
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(block, "type") {
		case "text":
			parts = append(parts, siumai.TextPart{Text: stringField(block, "text")})
		case "thinking":
			parts = append(parts, siumai.ReasoningPart{
				Text:      stringField(block, "thinking"),
				Signature: stringField(block, "signature"),
			})
		case "tool_use":
			var argsJSON string
			if input, ok := block["input"]; ok {
				if b, err := json.Marshal(input); err == nil {
					argsJSON = string(b)
				}
			}
			parts = append(parts, siumai.ToolCallPart{
				ID:            stringField(block, "id"),
				Name:          stringField(block, "name"),
				ArgumentsJSON: argsJSON,
			})
		case "tool_result":
			var outJSON string
			if content, ok := block["content"]; ok {
				if b, err := json.Marshal(content); err == nil {
					outJSON = string(b)
				}
			}
			isErr, _ := block["is_error"].(bool)
			parts = append(parts, siumai.ToolResultPart{
				ID:         stringField(block, "tool_use_id"),
				OutputJSON: outJSON,
				IsError:    isErr,
			})
		}
	}

	resp := siumai.ChatResponse{
		ID:    stringField(wire, "id"),
		Model: stringField(wire, "model"),
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

	if sr, ok := wire["stop_reason"].(string); ok && sr != "" {
		reason := mapAnthropicStopReason(sr)
		resp.FinishReason = &reason
	}

	if usage, ok := wire["usage"].(map[string]any); ok {
		u := &siumai.Usage{
			PromptTokens:     intField(usage, "input_tokens"),
			CompletionTokens: intField(usage, "output_tokens"),
		}
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
		if v := intField(usage, "cache_read_input_tokens"); v > 0 {
			u.CacheReadTokens = &v
		}
		if v := intField(usage, "cache_creation_input_tokens"); v > 0 {
			u.CacheCreationTokens = &v
		}
		resp.Usage = u
	}

	resp.ProviderMetadata = map[string]map[string]any{"anthropic": wire}
	return resp, nil
}

func mapAnthropicStopReason(reason string) siumai.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "max_tokens":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "tool_use":
		return siumai.FinishReason{Kind: siumai.FinishToolCalls}
	default:
		return siumai.FinishReason{Kind: siumai.FinishOther, Other: reason}
	}
}

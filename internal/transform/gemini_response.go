package transform

import (
	"encoding/json"
	"fmt"

	"github.com/siumai/siumai"
)

// GeminiResponse maps a Gemini generateContent response envelope into a
// unified ChatResponse. Grounded on internal/providers/gemini.go's
// convertGeminiToAnthropic/convertGeminiContent, run to produce unified
// ContentParts instead of Anthropic content blocks.
//
// Warnings carries request-time warnings (e.g. GeminiToolWarnings) detected
// before the call was sent; ChooseChatTransformers populates it per request
// since a request transformer only ever sees the request and a response
// transformer only ever sees the wire reply.
type GeminiResponse struct {
	Warnings []siumai.Warning
}

func (g GeminiResponse) Transform(wire map[string]any) (siumai.ChatResponse, error) {
	if errVal, ok := wire["error"].(map[string]any); ok {
		msg, _ := errVal["message"].(string)
		return siumai.ChatResponse{}, siumai.NewError(siumai.ErrorAPI, msg)
	}

	candidates, _ := wire["candidates"].([]any)
	if len(candidates) == 0 {
		return siumai.ChatResponse{}, fmt.Errorf("gemini response: no candidates")
	}
	candidate, _ := candidates[0].(map[string]any)
	content, _ := candidate["content"].(map[string]any)
	parts, _ := content["parts"].([]any)

	resp := siumai.ChatResponse{
		ID:    stringField(wire, "responseId"),
		Model: stringField(wire, "modelVersion"),
	}

	var mapped []siumai.ContentPart
	for i, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok && text != "" {
			if thought, _ := part["thought"].(bool); thought {
				mapped = append(mapped, siumai.ReasoningPart{Text: text})
			} else {
				mapped = append(mapped, siumai.TextPart{Text: text})
			}
			continue
		}
		if fc, ok := part["functionCall"].(map[string]any); ok {
			var argsJSON string
			if args, ok := fc["args"]; ok {
				if b, err := json.Marshal(args); err == nil {
					argsJSON = string(b)
				}
			}
			mapped = append(mapped, siumai.ToolCallPart{
				ID:            fmt.Sprintf("gemini_call_%d", i),
				Name:          stringField(fc, "name"),
				ArgumentsJSON: argsJSON,
			})
		}
	}

	if len(mapped) == 1 {
		if tp, ok := mapped[0].(siumai.TextPart); ok {
			resp.Content = siumai.TextContent(tp.Text)
		} else {
			resp.Content = siumai.PartsContent(mapped...)
		}
	} else if len(mapped) > 0 {
		resp.Content = siumai.PartsContent(mapped...)
	}

	if fr, ok := candidate["finishReason"].(string); ok && fr != "" {
		reason := mapGeminiFinishReason(fr)
		resp.FinishReason = &reason
	}

	if usage, ok := wire["usageMetadata"].(map[string]any); ok {
		u := &siumai.Usage{
			PromptTokens:     intField(usage, "promptTokenCount"),
			CompletionTokens: intField(usage, "candidatesTokenCount"),
			TotalTokens:      intField(usage, "totalTokenCount"),
		}
		if rt := intField(usage, "thoughtsTokenCount"); rt > 0 {
			u.ReasoningTokens = &rt
		}
		resp.Usage = u
	}

	resp.ProviderMetadata = map[string]map[string]any{"google": wire}
	resp.Warnings = append(resp.Warnings, g.Warnings...)
	return resp, nil
}

func mapGeminiFinishReason(reason string) siumai.FinishReason {
	switch reason {
	case "STOP":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "MAX_TOKENS":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "SAFETY", "RECITATION":
		return siumai.FinishReason{Kind: siumai.FinishContentFilter}
	default:
		return siumai.FinishReason{Kind: siumai.FinishStop}
	}
}

package transform

import (
	"github.com/siumai/siumai"
)

// OpenAIResponsesRequest maps a unified ChatRequest into an OpenAI
// Responses API wire body. Grounded on openai.go's Transform, adapted to
// the Responses API's "input" array instead of "messages" (spec §4.1's
// chat_url already routes to /responses when requested; this is the
// sibling transformer chosen alongside it).
type OpenAIResponsesRequest struct{}

func (OpenAIResponsesRequest) Transform(req siumai.ChatRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reqT := NewOpenAIRequest()
	body, err := reqT.Transform(req)
	if err != nil {
		return nil, err
	}
	messages := body["messages"]
	delete(body, "messages")
	body["input"] = messages
	if req.MaxTokens != nil {
		delete(body, reqT.MaxTokensField)
		body["max_output_tokens"] = *req.MaxTokens
	}
	return body, nil
}

// OpenAIResponsesResponse parses a `response.completed` payload (or the
// equivalent non-streaming Responses API envelope) into a unified
// ChatResponse. Grounded on §4.3's "output[*].content[*].text"
// extraction rule; nothing in the pack proxies the /responses endpoint.
type OpenAIResponsesResponse struct{}

func (OpenAIResponsesResponse) Transform(wire map[string]any) (siumai.ChatResponse, error) {
	if errVal, ok := wire["error"].(map[string]any); ok {
		msg, _ := errVal["message"].(string)
		return siumai.ChatResponse{}, siumai.NewError(siumai.ErrorAPI, msg)
	}

	resp := siumai.ChatResponse{
		ID:    stringField(wire, "id"),
		Model: stringField(wire, "model"),
	}

	output, _ := wire["output"].([]any)
	var mapped []siumai.ContentPart
	for _, o := range output {
		item, ok := o.(map[string]any)
		if !ok {
			continue
		}
		switch item["type"] {
		case "message":
			content, _ := item["content"].([]any)
			for _, c := range content {
				part, ok := c.(map[string]any)
				if !ok {
					continue
				}
				if text, ok := part["text"].(string); ok && text != "" {
					mapped = append(mapped, siumai.TextPart{Text: text})
				}
			}
		case "function_call":
			mapped = append(mapped, siumai.ToolCallPart{
				ID:            stringField(item, "call_id"),
				Name:          stringField(item, "name"),
				ArgumentsJSON: stringField(item, "arguments"),
			})
		case "reasoning":
			if summary, ok := item["summary"].([]any); ok {
				for _, s := range summary {
					part, ok := s.(map[string]any)
					if !ok {
						continue
					}
					if text, ok := part["text"].(string); ok && text != "" {
						mapped = append(mapped, siumai.ReasoningPart{Text: text})
					}
				}
			}
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

	if status, ok := wire["status"].(string); ok && status != "" {
		reason := mapResponsesFinishReason(status)
		resp.FinishReason = &reason
	}

	if usage, ok := wire["usage"].(map[string]any); ok {
		u := &siumai.Usage{
			PromptTokens:     intField(usage, "input_tokens"),
			CompletionTokens: intField(usage, "output_tokens"),
			TotalTokens:      intField(usage, "total_tokens"),
		}
		if details, ok := usage["output_tokens_details"].(map[string]any); ok {
			if rt := intField(details, "reasoning_tokens"); rt > 0 {
				u.ReasoningTokens = &rt
			}
		}
		resp.Usage = u
	}

	resp.ProviderMetadata = map[string]map[string]any{"openai": wire}
	return resp, nil
}

func mapResponsesFinishReason(status string) siumai.FinishReason {
	switch status {
	case "completed":
		return siumai.FinishReason{Kind: siumai.FinishStop}
	case "incomplete":
		return siumai.FinishReason{Kind: siumai.FinishLength}
	case "failed":
		return siumai.FinishReason{Kind: siumai.FinishOther, Other: "failed"}
	default:
		return siumai.FinishReason{Kind: siumai.FinishStop}
	}
}

package streamconv

import (
	"encoding/json"
	"fmt"

	"github.com/siumai/siumai"
)

// Gemini converts Gemini streamGenerateContent SSE frames into unified
// ChatStreamEvent values, grounded on internal/providers/gemini.go's
// convertGeminiToAnthropicStream/handleGeminiParts.
type Gemini struct {
	started bool
	meta    siumai.StreamMetadata

	textIndex int
	toolCalls []siumai.ToolCallPart

	pendingFinish string
	usage         *siumai.Usage
	done          bool
}

func NewGemini() *Gemini { return &Gemini{} }

func (c *Gemini) Convert(frame Frame) ([]siumai.ChatStreamEvent, error) {
	if c.done {
		return nil, nil
	}

	var chunk map[string]any
	if err := json.Unmarshal(frame.Data, &chunk); err != nil {
		c.done = true
		return []siumai.ChatStreamEvent{siumai.ErrorEvent{Err: fmt.Errorf("parse gemini stream frame: %w", err)}}, nil
	}

	var events []siumai.ChatStreamEvent
	if !c.started {
		c.started = true
		c.meta = siumai.StreamMetadata{
			ID:    stringField(chunk, "responseId"),
			Model: stringField(chunk, "modelVersion"),
		}
		events = append(events, siumai.StreamStartEvent{Metadata: c.meta})
	}

	candidates, _ := chunk["candidates"].([]any)
	if len(candidates) > 0 {
		candidate, _ := candidates[0].(map[string]any)
		content, _ := candidate["content"].(map[string]any)
		parts, _ := content["parts"].([]any)
		for i, p := range parts {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				if thought, _ := part["thought"].(bool); thought {
					events = append(events, siumai.ThinkingDeltaEvent{Delta: text})
				} else {
					events = append(events, siumai.ContentDeltaEvent{Delta: text, Index: c.textIndex})
				}
				continue
			}
			if fc, ok := part["functionCall"].(map[string]any); ok {
				id := fmt.Sprintf("gemini_call_%d", i)
				var argsJSON string
				if args, ok := fc["args"]; ok {
					if b, err := json.Marshal(args); err == nil {
						argsJSON = string(b)
					}
				}
				name := stringField(fc, "name")
				c.toolCalls = append(c.toolCalls, siumai.ToolCallPart{ID: id, Name: name, ArgumentsJSON: argsJSON})
				events = append(events, siumai.ToolCallDeltaEvent{
					ID: id, FunctionName: name, ArgumentsDelta: argsJSON, Index: i,
				})
			}
		}

		if fr, ok := candidate["finishReason"].(string); ok && fr != "" {
			c.pendingFinish = fr
		}
	}

	if usageMeta, ok := chunk["usageMetadata"].(map[string]any); ok {
		u := siumai.Usage{
			PromptTokens:     intField(usageMeta, "promptTokenCount"),
			CompletionTokens: intField(usageMeta, "candidatesTokenCount"),
			TotalTokens:      intField(usageMeta, "totalTokenCount"),
		}
		if rt := intField(usageMeta, "thoughtsTokenCount"); rt > 0 {
			u.ReasoningTokens = &rt
		}
		c.usage = &u
		events = append(events, siumai.UsageUpdateEvent{Usage: u})
	}

	if c.pendingFinish != "" {
		events = append(events, c.finish()...)
	}

	return events, nil
}

func (c *Gemini) finish() []siumai.ChatStreamEvent {
	if c.done {
		return nil
	}
	c.done = true

	resp := siumai.ChatResponse{ID: c.meta.ID, Model: c.meta.Model}
	if len(c.toolCalls) > 0 {
		parts := make([]siumai.ContentPart, len(c.toolCalls))
		for i, tc := range c.toolCalls {
			parts[i] = tc
		}
		resp.Content = siumai.PartsContent(parts...)
	}
	if c.pendingFinish != "" {
		reason := mapGeminiStreamFinish(c.pendingFinish)
		resp.FinishReason = &reason
	}
	if c.usage != nil {
		resp.Usage = c.usage
	}
	return []siumai.ChatStreamEvent{siumai.StreamEndEvent{Response: resp}}
}

func (c *Gemini) Finalize() []siumai.ChatStreamEvent {
	return c.finish()
}

func mapGeminiStreamFinish(reason string) siumai.FinishReason {
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

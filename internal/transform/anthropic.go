package transform

import (
	"encoding/base64"
	"encoding/json"

	"github.com/siumai/siumai"
)

// AnthropicRequest maps a unified ChatRequest into an Anthropic Messages API
// wire body. Grounded on internal/providers/base.go's
// TransformAnthropicToOpenAI run in reverse (system message hoisted back out
// to a top-level `system` field instead of prepended as a message; content
// blocks built directly instead of collapsed to a content string).
type AnthropicRequest struct {
	DefaultMaxTokens int
}

func NewAnthropicRequest() AnthropicRequest {
	return AnthropicRequest{DefaultMaxTokens: 4096}
}

func (t AnthropicRequest) Transform(req siumai.ChatRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxTokens := t.DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
	}

	var system string
	var messages []map[string]any
	for _, m := range req.Messages {
		if m.Role == siumai.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += textOf(m.Content)
			continue
		}
		messages = append(messages, t.transformMessage(m))
	}
	if system != "" {
		body["system"] = system
	}
	body["messages"] = messages

	if req.Stream {
		body["stream"] = true
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}
	if req.TopK != nil {
		body["top_k"] = *req.TopK
	}
	if len(req.Stop) > 0 {
		body["stop_sequences"] = req.Stop
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = transformAnthropicToolChoice(*req.ToolChoice)
	}
	if len(req.Tools) > 0 {
		body["tools"] = t.transformTools(req.Tools)
	}

	if opts, ok := req.ProviderOptions.(siumai.AnthropicOptions); ok && opts.ThinkingBudget > 0 {
		body["thinking"] = map[string]any{"type": "enabled", "budget_tokens": opts.ThinkingBudget}
	}
	if custom, ok := req.ProviderOptions.(siumai.CustomOptions); ok {
		for k, v := range custom.Data {
			body[k] = v
		}
	}

	return body, nil
}

func transformAnthropicToolChoice(tc siumai.ToolChoice) map[string]any {
	switch tc.Mode {
	case siumai.ToolChoiceRequired:
		if tc.Name != "" {
			return map[string]any{"type": "tool", "name": tc.Name}
		}
		return map[string]any{"type": "any"}
	case siumai.ToolChoiceNone:
		return map[string]any{"type": "none"}
	default:
		return map[string]any{"type": "auto"}
	}
}

func textOf(c siumai.MessageContent) string {
	if !c.IsMultiModal() {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(siumai.TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

func (t AnthropicRequest) transformMessage(m siumai.Message) map[string]any {
	role := string(m.Role)
	if m.Role == siumai.RoleTool {
		role = "user" // tool_result blocks live in a user-role message
	}

	if !m.Content.IsMultiModal() {
		return map[string]any{"role": role, "content": m.Content.Text}
	}

	var blocks []map[string]any
	for _, p := range m.Content.Parts {
		switch part := p.(type) {
		case siumai.TextPart:
			blocks = append(blocks, map[string]any{"type": "text", "text": part.Text})
		case siumai.ImagePart:
			blocks = append(blocks, map[string]any{"type": "image", "source": anthropicSource(part.Source)})
		case siumai.ToolCallPart:
			var input any
			if part.ArgumentsJSON != "" {
				_ = json.Unmarshal([]byte(part.ArgumentsJSON), &input)
			}
			blocks = append(blocks, map[string]any{
				"type": "tool_use", "id": part.ID, "name": part.Name, "input": input,
			})
		case siumai.ToolResultPart:
			blocks = append(blocks, map[string]any{
				"type": "tool_result", "tool_use_id": part.ID, "content": part.OutputJSON, "is_error": part.IsError,
			})
		case siumai.ReasoningPart:
			block := map[string]any{"type": "thinking", "thinking": part.Text}
			if part.Signature != "" {
				block["signature"] = part.Signature
			}
			blocks = append(blocks, block)
		case siumai.AudioPart, siumai.FilePart, siumai.ToolApprovalResponsePart:
			// Anthropic Messages has no wire slot for these; dropped.
		}
	}
	return map[string]any{"role": role, "content": blocks}
}

func anthropicSource(src siumai.MediaSource) map[string]any {
	switch s := src.(type) {
	case siumai.URLSource:
		return map[string]any{"type": "url", "url": s.URL}
	case siumai.Base64Source:
		return map[string]any{"type": "base64", "media_type": "image/png", "data": s.Data}
	case siumai.BinarySource:
		return map[string]any{"type": "base64", "media_type": "image/png", "data": base64.StdEncoding.EncodeToString(s.Data)}
	}
	return nil
}

func (t AnthropicRequest) transformTools(tools []siumai.Tool) []map[string]any {
	var out []map[string]any
	for _, tool := range tools {
		switch tv := tool.(type) {
		case siumai.FunctionTool:
			out = append(out, map[string]any{
				"name": tv.Name, "description": tv.Description, "input_schema": tv.JSONSchema,
			})
		case siumai.ProviderDefinedTool:
			out = append(out, map[string]any{"type": tv.ID, "name": tv.Name})
		}
	}
	return out
}

// convertToolCallID maps between OpenAI's call_* ids and Anthropic's
// toolu_* ids, grounded verbatim on internal/providers/openai.go's
// convertToolCallID.
func convertToolCallID(id string) string {
	const toolu, call = "toolu_", "call_"
	switch {
	case len(id) >= len(toolu) && id[:len(toolu)] == toolu:
		return id
	case len(id) >= len(call) && id[:len(call)] == call:
		return toolu + id[len(call):]
	default:
		return toolu + id
	}
}

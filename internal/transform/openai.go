package transform

import (
	"encoding/base64"
	"fmt"

	"github.com/siumai/siumai"
)

// OpenAIRequest maps a unified ChatRequest into an OpenAI Chat Completions
// wire body. Grounded on the reverse direction
// (internal/providers/openai.go's convertMessageContent/convertOpenAIToAnthropic)
// run backwards: the field names and per-part shapes are the same, only the
// direction of mapping is flipped (unified → OpenAI instead of OpenAI →
// Anthropic).
type OpenAIRequest struct {
	// DeveloperRoleSupported is false for vendors (xAI, Groq) that map
	// Developer messages to System instead, per §4.2.
	DeveloperRoleSupported bool
	// OmitStreamOptions is true for vendors (Groq) that reject the
	// stream_options field.
	OmitStreamOptions bool
	// MaxTokensField is "max_completion_tokens" for OpenAI proper, or
	// "max_tokens" for xAI/Groq/most compatible vendors.
	MaxTokensField string
}

// NewOpenAIRequest returns the canonical OpenAI-proper transformer.
func NewOpenAIRequest() OpenAIRequest {
	return OpenAIRequest{DeveloperRoleSupported: true, MaxTokensField: "max_completion_tokens"}
}

func (t OpenAIRequest) Transform(req siumai.ChatRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": t.transformMessages(req.Messages),
	}

	if req.Stream {
		body["stream"] = true
		if !t.OmitStreamOptions {
			body["stream_options"] = map[string]any{"include_usage": true}
		}
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		field := t.MaxTokensField
		if field == "" {
			field = "max_tokens"
		}
		body[field] = *req.MaxTokens
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}
	if len(req.Stop) > 0 {
		body["stop"] = req.Stop
	}
	if req.Seed != nil {
		body["seed"] = *req.Seed
	}
	if req.FrequencyPenalty != nil {
		body["frequency_penalty"] = *req.FrequencyPenalty
	}
	if req.PresencePenalty != nil {
		body["presence_penalty"] = *req.PresencePenalty
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = transformToolChoice(*req.ToolChoice)
	}
	if len(req.Tools) > 0 {
		tools, err := t.transformTools(req.Tools)
		if err != nil {
			return nil, err
		}
		body["tools"] = tools
	}

	if opts, ok := req.ProviderOptions.(siumai.OpenAIOptions); ok {
		if opts.ReasoningEffort != "" {
			body["reasoning_effort"] = opts.ReasoningEffort
		}
		if opts.ServiceTier != "" {
			body["service_tier"] = opts.ServiceTier
		}
	}
	if custom, ok := req.ProviderOptions.(siumai.CustomOptions); ok {
		for k, v := range custom.Data {
			body[k] = v
		}
	}

	return body, nil
}

func transformToolChoice(tc siumai.ToolChoice) any {
	switch tc.Mode {
	case siumai.ToolChoiceRequired:
		if tc.Name != "" {
			return map[string]any{"type": "function", "function": map[string]any{"name": tc.Name}}
		}
		return "required"
	case siumai.ToolChoiceNone:
		return "none"
	default:
		return "auto"
	}
}

func (t OpenAIRequest) role(r siumai.Role) string {
	if r == siumai.RoleDeveloper && !t.DeveloperRoleSupported {
		return "system"
	}
	return string(r)
}

func (t OpenAIRequest) transformMessages(messages []siumai.Message) []map[string]any {
	var out []map[string]any
	for _, m := range messages {
		out = append(out, t.transformMessage(m)...)
	}
	return out
}

// transformMessage may expand a single unified Message into several wire
// messages: a tool-role message's ToolResultParts each become their own
// {role: tool, tool_call_id: ...} entry, per §4.2.
func (t OpenAIRequest) transformMessage(m siumai.Message) []map[string]any {
	role := t.role(m.Role)

	if !m.Content.IsMultiModal() {
		return []map[string]any{{"role": role, "content": m.Content.Text}}
	}

	var (
		out         []map[string]any
		parts       []any
		toolCalls   []map[string]any
		textOnly    string
		sawNonText  bool
	)

	for _, p := range m.Content.Parts {
		switch part := p.(type) {
		case siumai.TextPart:
			if sawNonText || len(parts) > 0 {
				parts = append(parts, map[string]any{"type": "text", "text": part.Text})
			} else {
				textOnly += part.Text
			}
		case siumai.ImagePart:
			sawNonText = true
			parts = flushText(parts, &textOnly)
			img := map[string]any{"url": mediaURL(part.Source, "image/png")}
			if part.Detail != "" {
				img["detail"] = string(part.Detail)
			}
			parts = append(parts, map[string]any{"type": "image_url", "image_url": img})
		case siumai.AudioPart:
			sawNonText = true
			parts = flushText(parts, &textOnly)
			if urlSrc, isURL := part.Source.(siumai.URLSource); isURL {
				// input_audio.data only accepts inline base64; a remote URL
				// has no wire slot, so degrade to a text placeholder per
				// §4.2 rather than send a value the endpoint would reject.
				parts = append(parts, map[string]any{
					"type": "text",
					"text": fmt.Sprintf("[audio: %s]", urlSrc.URL),
				})
				break
			}
			data, format := audioData(part.Source, part.MediaType)
			parts = append(parts, map[string]any{
				"type":        "input_audio",
				"input_audio": map[string]any{"data": data, "format": format},
			})
		case siumai.FilePart:
			sawNonText = true
			parts = flushText(parts, &textOnly)
			parts = append(parts, map[string]any{
				"type": "file",
				"file": map[string]any{"file_data": mediaURL(part.Source, part.MediaType)},
			})
		case siumai.ToolCallPart:
			toolCalls = append(toolCalls, map[string]any{
				"id":   part.ID,
				"type": "function",
				"function": map[string]any{
					"name":      part.Name,
					"arguments": part.ArgumentsJSON,
				},
			})
		case siumai.ToolResultPart:
			out = append(out, map[string]any{
				"role":         "tool",
				"tool_call_id": part.ID,
				"content":      part.OutputJSON,
			})
		case siumai.ReasoningPart:
			// OpenAI Chat Completions has no wire slot for caller-supplied
			// reasoning on replay; dropped silently (it is provider-emitted
			// only).
		case siumai.ToolApprovalResponsePart:
			// no OpenAI Chat Completions wire equivalent; consumed upstream
			// by the orchestrator instead.
		}
	}

	msg := map[string]any{"role": role}
	if len(parts) > 0 {
		parts = flushText(parts, &textOnly)
		msg["content"] = parts
	} else {
		msg["content"] = textOnly
	}
	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
		if _, has := msg["content"]; has && msg["content"] == "" {
			delete(msg, "content")
		}
	}
	if msg["content"] != "" || len(toolCalls) > 0 || len(out) == 0 {
		out = append([]map[string]any{msg}, out...)
	}
	return out
}

func flushText(parts []any, textOnly *string) []any {
	if *textOnly != "" {
		parts = append(parts, map[string]any{"type": "text", "text": *textOnly})
		*textOnly = ""
	}
	return parts
}

func mediaURL(src siumai.MediaSource, mime string) string {
	switch s := src.(type) {
	case siumai.URLSource:
		return s.URL
	case siumai.Base64Source:
		return fmt.Sprintf("data:%s;base64,%s", mime, s.Data)
	case siumai.BinarySource:
		return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(s.Data))
	}
	return ""
}

// audioData returns the inline base64 payload for an input_audio part.
// URLSource is handled by the AudioPart case before this is ever called:
// input_audio has no wire slot for a remote URL.
func audioData(src siumai.MediaSource, mediaType string) (data, format string) {
	format = mediaType
	switch s := src.(type) {
	case siumai.Base64Source:
		return s.Data, format
	case siumai.BinarySource:
		return base64.StdEncoding.EncodeToString(s.Data), format
	}
	return "", format
}

func (t OpenAIRequest) transformTools(tools []siumai.Tool) ([]map[string]any, error) {
	var out []map[string]any
	for _, tool := range tools {
		switch tv := tool.(type) {
		case siumai.FunctionTool:
			out = append(out, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        tv.Name,
					"description": tv.Description,
					"parameters":  tv.JSONSchema,
				},
			})
		case siumai.ProviderDefinedTool:
			// OpenAI places provider-defined tools straight into the tools
			// list by name, per §4.2.
			out = append(out, map[string]any{"type": tv.Name})
		}
	}
	return out, nil
}
